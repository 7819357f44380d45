package services

import (
	"context"
	"fmt"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors are looked up per text; texts without an entry get the
// fallback vector.
type mockEmbeddingService struct {
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	dims     int
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 4
}

func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }

func (m *mockEmbeddingService) Close() error { return nil }

// mockCloudLLM implements driven.CloudLLM for testing.
type mockCloudLLM struct {
	reply   driven.CloudReply
	sendErr error

	gotModel     string
	gotMessages  []domain.PromptMessage
	gotMaxTokens int
}

func (m *mockCloudLLM) SendMessages(_ context.Context, model string, messages []domain.PromptMessage, maxTokens int) (*driven.CloudReply, error) {
	m.gotModel = model
	m.gotMessages = messages
	m.gotMaxTokens = maxTokens
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	reply := m.reply
	return &reply, nil
}

func (m *mockCloudLLM) Ping(_ context.Context) error { return nil }

func (m *mockCloudLLM) Close() error { return nil }

// mockLocalLLM implements driven.LocalLLM for testing.
type mockLocalLLM struct {
	response    string
	generateErr error
	tags        []string
	listErr     error

	gotModel  string
	gotPrompt string
}

func (m *mockLocalLLM) Generate(_ context.Context, model, prompt string) (string, error) {
	m.gotModel = model
	m.gotPrompt = prompt
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.response, nil
}

func (m *mockLocalLLM) ListModels(_ context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.tags, nil
}

func (m *mockLocalLLM) Endpoint() string { return "http://localhost:11434" }

func (m *mockLocalLLM) Ping(_ context.Context) error { return m.listErr }

func (m *mockLocalLLM) Close() error { return nil }

// mockRAGBackend implements driven.RAGBackend for testing.
type mockRAGBackend struct {
	reply    driven.RAGReply
	queryErr error

	gotQuery   string
	gotModel   string
	gotInclude bool
	gotTopK    int
}

func (m *mockRAGBackend) Query(_ context.Context, query, model string, includeContext bool, topK int) (*driven.RAGReply, error) {
	m.gotQuery = query
	m.gotModel = model
	m.gotInclude = includeContext
	m.gotTopK = topK
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	reply := m.reply
	return &reply, nil
}

func (m *mockRAGBackend) Endpoint() string { return "http://localhost:8080" }

func (m *mockRAGBackend) Ping(_ context.Context) error { return m.queryErr }

func (m *mockRAGBackend) Close() error { return nil }

// mockFileStore implements driven.FileStore for testing.
type mockFileStore struct {
	files   map[string][]byte
	readErr error
}

func (m *mockFileStore) ReadFile(_ context.Context, path string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, domain.ErrNotFound)
	}
	return data, nil
}
