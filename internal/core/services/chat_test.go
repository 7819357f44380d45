package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduitworks/parley/internal/adapters/driven/storage/memory"
	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
	"github.com/conduitworks/parley/internal/core/ports/driving"
)

type chatFixture struct {
	service *ChatService
	convs   *memory.ConversationStore
	docs    *memory.DocumentStore
	cloud   *mockCloudLLM
	local   *mockLocalLLM
	rag     *mockRAGBackend
	files   *mockFileStore
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	return newChatFixtureWithConfig(t, ChatConfig{})
}

func newChatFixtureWithConfig(t *testing.T, cfg ChatConfig) *chatFixture {
	t.Helper()

	convs := memory.NewConversationStore()
	docs := memory.NewDocumentStore()
	embed := &mockEmbeddingService{fallback: []float32{1, 0, 0, 0}}
	files := &mockFileStore{files: map[string][]byte{}}
	cloud := &mockCloudLLM{reply: driven.CloudReply{
		Content:      "cloud reply",
		Model:        "claude-sonnet-4-20250514",
		InputTokens:  100,
		OutputTokens: 50,
	}}
	local := &mockLocalLLM{response: "local reply"}
	rag := &mockRAGBackend{reply: driven.RAGReply{
		Content: "rag reply",
		Context: []string{"ctx-1", "ctx-2"},
	}}

	retrieval := NewRetrievalService(docs, embed)
	history := NewHistoryBuilder(files)
	service := NewChatService(convs, history, retrieval, cloud, local, rag, cfg)

	require.NoError(t, convs.CreateConversation(context.Background(), &domain.Conversation{
		ID:        "conv-1",
		Title:     "test chat",
		CreatedAt: time.Now(),
	}))

	return &chatFixture{
		service: service,
		convs:   convs,
		docs:    docs,
		cloud:   cloud,
		local:   local,
		rag:     rag,
		files:   files,
	}
}

func TestChatService_SendMessage_Validation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.service.SendMessage(ctx, driving.SendMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.service.SendMessage(ctx, driving.SendMessageRequest{ConversationID: "conv-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChatService_SendMessage_UnknownConversation(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.service.SendMessage(context.Background(), driving.SendMessageRequest{
		ConversationID: "missing",
		Content:        "hi",
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatService_SendMessage_CloudTurn(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	result, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "hello",
		Model:          "claude-opus-4-20250514",
	})

	require.NoError(t, err)
	assert.Equal(t, "cloud reply", result.Content)
	assert.Equal(t, "claude-opus-4-20250514", result.Model)
	assert.Equal(t, SourceCloud, result.Source)
	assert.Equal(t, 100, result.InputTokens)
	assert.Equal(t, 50, result.OutputTokens)
	assert.InDelta(t, 100.0/1e6*15+50.0/1e6*75, result.Cost, 1e-9)
	assert.Equal(t, 0, result.ContextChunks)

	// Backend saw the identifier unchanged and the new turn included.
	assert.Equal(t, "claude-opus-4-20250514", f.cloud.gotModel)
	require.NotEmpty(t, f.cloud.gotMessages)
	last := f.cloud.gotMessages[len(f.cloud.gotMessages)-1]
	assert.Equal(t, domain.RoleUser, last.Role)
	assert.Equal(t, "hello", last.Content)

	// Both turns persisted.
	msgs, err := f.convs.Messages(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "claude-opus-4-20250514", msgs[1].ModelUsed)
	assert.Equal(t, 100, msgs[1].InputTokens)
}

func TestChatService_SendMessage_DefaultModel(t *testing.T) {
	f := newChatFixture(t)

	result, err := f.service.SendMessage(context.Background(), driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, DefaultCloudModel, result.Model)
	assert.Equal(t, DefaultCloudModel, f.cloud.gotModel)
	assert.Equal(t, DefaultMaxTokens, f.cloud.gotMaxTokens)
}

func TestChatService_SendMessage_ConfiguredDefaultModel(t *testing.T) {
	f := newChatFixtureWithConfig(t, ChatConfig{
		DefaultModel: "claude-3-5-haiku-20241022",
		MaxTokens:    2048,
	})

	result, err := f.service.SendMessage(context.Background(), driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-20241022", result.Model)
	assert.Equal(t, "claude-3-5-haiku-20241022", f.cloud.gotModel)
	assert.Equal(t, 2048, f.cloud.gotMaxTokens)
}

func TestChatService_SendMessage_ConfiguredLocalHistoryLimit(t *testing.T) {
	f := newChatFixtureWithConfig(t, ChatConfig{LocalHistoryLimit: 2})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
			ConversationID: "conv-1",
			Content:        "hello",
			Model:          "local-mistral-latest",
		})
		require.NoError(t, err)
	}

	_, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "final question",
		Model:          "local-mistral-latest",
	})

	require.NoError(t, err)
	prompt := f.local.gotPrompt
	// 6 prior messages, limit 2: one Human/Assistant pair plus the final
	// Human line.
	assert.Equal(t, 2, strings.Count(prompt, "Human: "))
	assert.Equal(t, 1, strings.Count(prompt, "Assistant: "))
}

func TestChatService_SendMessage_ConversationModelWins(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	require.NoError(t, f.convs.UpdateConversationModel(ctx, "conv-1", "claude-3-5-haiku-20241022"))

	result, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-20241022", result.Model)
}

func TestChatService_SendMessage_LocalTurn(t *testing.T) {
	f := newChatFixture(t)

	result, err := f.service.SendMessage(context.Background(), driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "hello",
		Model:          "local-deepseek-r1-8b",
	})

	require.NoError(t, err)
	assert.Equal(t, "local reply", result.Content)
	assert.Equal(t, SourceLocal, result.Source)
	assert.Equal(t, 0.0, result.Cost)
	assert.Equal(t, "deepseek-r1:8b", f.local.gotModel)
	assert.Equal(t, "hello", f.local.gotPrompt)
	assert.Equal(t, EstimateTokens("hello"), result.InputTokens)
	assert.Equal(t, EstimateTokens("local reply"), result.OutputTokens)
}

func TestChatService_SendMessage_LocalHistoryLimit(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	// Build up eight prior turns; only the last six flatten in.
	for i := 0; i < 4; i++ {
		_, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
			ConversationID: "conv-1",
			Content:        "hello",
			Model:          "local-mistral-latest",
		})
		require.NoError(t, err)
	}

	_, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "final question",
		Model:          "local-mistral-latest",
	})

	require.NoError(t, err)
	prompt := f.local.gotPrompt
	assert.Contains(t, prompt, "Previous conversation:")
	assert.Contains(t, prompt, "Human: final question")
	// 8 prior messages, limit 6: 3 Human + 3 Assistant labels plus the
	// final Human line.
	assert.Equal(t, 4, strings.Count(prompt, "Human: "))
	assert.Equal(t, 3, strings.Count(prompt, "Assistant: "))
}

func TestChatService_SendMessage_RAGTurn(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.docs.SaveDocument(ctx, &domain.Document{
		ID:        "d1",
		Title:     "Guide",
		Content:   "Useful facts.",
		Embedding: []float32{1, 0, 0, 0},
	}))

	result, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "what do the docs say?",
		Model:          "local-llama3-70b-rag",
	})

	require.NoError(t, err)
	assert.Equal(t, "rag reply", result.Content)
	assert.Equal(t, SourceLocalRAG, result.Source)
	assert.Equal(t, 2, result.ContextChunks)
	assert.Equal(t, "llama3:70b", f.rag.gotModel)
	assert.True(t, f.rag.gotInclude)
	assert.Equal(t, DefaultTopK, f.rag.gotTopK)
	assert.Contains(t, f.rag.gotQuery, "Here is relevant information from the knowledge base:")
	assert.Contains(t, f.rag.gotQuery, "[Source 1: Guide]")
	assert.Contains(t, f.rag.gotQuery, "what do the docs say?")
}

func TestChatService_SendMessage_RAGEmptyStore(t *testing.T) {
	f := newChatFixture(t)

	result, err := f.service.SendMessage(context.Background(), driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "anything?",
		Model:          "local-phi3-chat-rag",
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.ContextChunks) // backend-reported context
	assert.NotContains(t, f.rag.gotQuery, "knowledge base")
	assert.Contains(t, f.rag.gotQuery, "anything?")
}

func TestChatService_SendMessage_BackendFailureKeepsUserMessage(t *testing.T) {
	f := newChatFixture(t)
	f.cloud.sendErr = errors.New("api down")
	ctx := context.Background()

	_, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "hello",
	})

	require.Error(t, err)

	// The user turn survives; no assistant message was written.
	msgs, storeErr := f.convs.Messages(ctx, "conv-1")
	require.NoError(t, storeErr)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
}

func TestChatService_SendMessage_ModelSwitchPersisted(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "hello",
		Model:          "claude-opus-4-20250514",
	})
	require.NoError(t, err)

	conv, err := f.convs.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-20250514", conv.Model)
}

func TestChatService_SendMessage_ModelNotPersistedOnFailure(t *testing.T) {
	f := newChatFixture(t)
	f.cloud.sendErr = errors.New("api down")
	ctx := context.Background()

	_, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "hello",
		Model:          "claude-opus-4-20250514",
	})
	require.Error(t, err)

	conv, getErr := f.convs.GetConversation(ctx, "conv-1")
	require.NoError(t, getErr)
	assert.Empty(t, conv.Model)
}

func TestChatService_SendMessage_AttachmentsReachCloud(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	f.files.files["uploads/pic.png"] = []byte{0x89, 0x50}
	require.NoError(t, f.convs.SaveAttachment(ctx, &domain.Attachment{
		ID:               "file-1",
		MimeType:         "image/png",
		OriginalFilename: "pic.png",
		StoragePath:      "uploads/pic.png",
	}))

	_, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "look at this",
		FileIDs:        []string{"file-1"},
	})

	require.NoError(t, err)
	require.NotEmpty(t, f.cloud.gotMessages)
	last := f.cloud.gotMessages[len(f.cloud.gotMessages)-1]
	require.Len(t, last.Blocks, 2)
	assert.Equal(t, domain.BlockImage, last.Blocks[0].Type)
	assert.Equal(t, "look at this", last.Blocks[1].Text)
}

func TestChatService_SendMessage_UsageFoldsIntoTotals(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.service.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: "conv-1",
		Content:        "hello",
	})
	require.NoError(t, err)

	conv, err := f.convs.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 100, conv.TotalInputTokens)
	assert.Equal(t, 50, conv.TotalOutputTokens)
	assert.Greater(t, conv.TotalCost, 0.0)
}
