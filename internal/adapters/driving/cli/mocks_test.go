package cli

import (
	"context"
	"errors"
	"time"

	"github.com/conduitworks/parley/internal/adapters/driven/storage/memory"
	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driving"
)

// setupTestServices swaps the package-level services for mocks and
// returns a cleanup that restores the originals.
func setupTestServices() func() {
	oldChat := chatService
	oldKnowledge := knowledgeService
	oldModels := modelsService
	oldConversations := conversations

	chatService = &mockChatService{}
	knowledgeService = &mockKnowledgeService{}
	modelsService = &mockModelsService{}
	conversations = memory.NewConversationStore()

	return func() {
		chatService = oldChat
		knowledgeService = oldKnowledge
		modelsService = oldModels
		conversations = oldConversations
	}
}

type mockChatService struct {
	lastRequest driving.SendMessageRequest
	err         error
}

func (m *mockChatService) SendMessage(_ context.Context, req driving.SendMessageRequest) (*driving.TurnResult, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return &driving.TurnResult{
		Content:      "mock reply",
		Model:        req.Model,
		Source:       "cloud",
		InputTokens:  12,
		OutputTokens: 8,
		Cost:         0.0005,
	}, nil
}

type mockKnowledgeService struct {
	err error
}

func (m *mockKnowledgeService) AddDocument(_ context.Context, title, content string, _ map[string]any) (*driving.IngestReceipt, error) {
	if m.err != nil {
		return nil, m.err
	}
	if title == "" || content == "" {
		return nil, errors.New("title and content are required")
	}
	return &driving.IngestReceipt{DocumentID: "doc-1"}, nil
}

func (m *mockKnowledgeService) ListDocuments(_ context.Context) ([]domain.DocumentGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.DocumentGroup{
		{Title: "Guide", ChunkCount: 2, CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}, nil
}

func (m *mockKnowledgeService) DeleteDocument(_ context.Context, _ string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return 2, nil
}

func (m *mockKnowledgeService) Search(_ context.Context, _ string, _ int) ([]domain.RetrievalResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.RetrievalResult{
		{DocumentID: "doc-1", Title: "Guide", Content: "setup instructions", Similarity: 0.91},
	}, nil
}

type mockModelsService struct {
	catalog *driving.ModelCatalog
	err     error
}

func (m *mockModelsService) ListModels(_ context.Context) (*driving.ModelCatalog, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.catalog != nil {
		return m.catalog, nil
	}
	return &driving.ModelCatalog{
		Models: []driving.ModelInfo{
			{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", CostLabel: "$3/$15 per Mtok", Type: "cloud", Provider: "anthropic"},
			{ID: "local-llama3-8b", Name: "llama3:8b", CostLabel: "free", Type: "local", Provider: "ollama"},
		},
		LocalAvailable: true,
	}, nil
}
