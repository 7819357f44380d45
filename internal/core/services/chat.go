package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
	"github.com/conduitworks/parley/internal/core/ports/driving"
	"github.com/conduitworks/parley/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// Defaults applied when the caller leaves fields unset.
const (
	// DefaultCloudModel is used when neither the request nor the
	// conversation names a model.
	DefaultCloudModel = "claude-sonnet-4-20250514"

	// DefaultMaxTokens caps cloud responses.
	DefaultMaxTokens = 4096

	// DefaultTopK is the retrieval depth for augmented turns.
	DefaultTopK = 5
)

// Backend source tags reported in turn results.
const (
	SourceCloud    = "cloud"
	SourceLocal    = "local"
	SourceLocalRAG = "local+rag"
)

// ChatConfig holds the tunable chat defaults, normally sourced from
// the application configuration. Zero values fall back to the package
// defaults.
type ChatConfig struct {
	// DefaultModel is used when neither the request nor the
	// conversation names a model.
	DefaultModel string

	// MaxTokens caps cloud responses when the request does not.
	MaxTokens int

	// TopK is the retrieval depth for augmented turns.
	TopK int

	// LocalHistoryLimit is how many prior messages flatten into local
	// prompts.
	LocalHistoryLimit int
}

// ChatService routes each chat turn to a backend based on the model
// identifier, assembles the history the backend needs and persists the
// exchange. The assistant message is written only after the backend
// call succeeds; a timed-out turn persists nothing.
type ChatService struct {
	conversations     driven.ConversationStore
	history           *HistoryBuilder
	retrieval         *RetrievalService
	cloud             driven.CloudLLM
	local             driven.LocalLLM
	rag               driven.RAGBackend
	defaultModel      string
	maxTokens         int
	topK              int
	localHistoryLimit int
}

// NewChatService creates a new chat service.
func NewChatService(
	conversations driven.ConversationStore,
	history *HistoryBuilder,
	retrieval *RetrievalService,
	cloud driven.CloudLLM,
	local driven.LocalLLM,
	rag driven.RAGBackend,
	cfg ChatConfig,
) *ChatService {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultCloudModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.LocalHistoryLimit <= 0 {
		cfg.LocalHistoryLimit = domain.LocalHistoryLimit
	}
	return &ChatService{
		conversations:     conversations,
		history:           history,
		retrieval:         retrieval,
		cloud:             cloud,
		local:             local,
		rag:               rag,
		defaultModel:      cfg.DefaultModel,
		maxTokens:         cfg.MaxTokens,
		topK:              cfg.TopK,
		localHistoryLimit: cfg.LocalHistoryLimit,
	}
}

// SendMessage handles one chat turn end to end.
func (s *ChatService) SendMessage(ctx context.Context, req driving.SendMessageRequest) (*driving.TurnResult, error) {
	if req.ConversationID == "" {
		return nil, fmt.Errorf("%w: conversation id is required", domain.ErrInvalidInput)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}

	conv, err := s.conversations.GetConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", req.ConversationID, err)
	}

	model := req.Model
	if model == "" {
		model = conv.Model
	}
	if model == "" {
		model = s.defaultModel
	}

	decision := domain.ClassifyModel(model)
	logger.Section("Routing")
	logger.Info("Model %s -> %s backend (%s)", model, decision.Route, decision.BackendModel)
	if !decision.TagMatched {
		logger.Warn("Model name %q did not match the name-tag pattern, passing through unchanged", decision.BackendModel)
	}

	// The user message is persisted before the backend call so a
	// later failure never loses what the user typed.
	userMsg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: req.ConversationID,
		Role:           domain.RoleUser,
		Content:        req.Content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.conversations.SaveMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("%w: saving user message: %v", domain.ErrStoreFailure, err)
	}
	if len(req.FileIDs) > 0 {
		if err := s.conversations.AttachFiles(ctx, userMsg.ID, req.FileIDs); err != nil {
			return nil, fmt.Errorf("%w: attaching files: %v", domain.ErrStoreFailure, err)
		}
	}

	history, err := s.conversations.Messages(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading history: %v", domain.ErrStoreFailure, err)
	}
	prior := excludeMessage(history, userMsg.ID)

	var result *driving.TurnResult
	switch decision.Route {
	case domain.RouteLocal:
		result, err = s.sendLocal(ctx, decision, prior, req.Content)
	case domain.RouteLocalRAG:
		result, err = s.sendLocalRAG(ctx, decision, prior, req.Content)
	default:
		result, err = s.sendCloud(ctx, decision, history, req.MaxTokens)
	}
	if err != nil {
		return nil, err
	}
	result.Model = model

	// Persist the assistant reply only now that the backend call has
	// succeeded.
	assistant := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: req.ConversationID,
		Role:           domain.RoleAssistant,
		Content:        result.Content,
		ModelUsed:      model,
		InputTokens:    result.InputTokens,
		OutputTokens:   result.OutputTokens,
		Cost:           result.Cost,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.conversations.SaveMessage(ctx, assistant); err != nil {
		return nil, fmt.Errorf("%w: saving assistant message: %v", domain.ErrStoreFailure, err)
	}
	result.Message = assistant

	// Post-condition of a successful turn: the conversation remembers
	// the model the caller switched to.
	if req.Model != "" && req.Model != conv.Model {
		if err := s.conversations.UpdateConversationModel(ctx, conv.ID, req.Model); err != nil {
			return nil, fmt.Errorf("%w: updating conversation model: %v", domain.ErrStoreFailure, err)
		}
		logger.Info("Conversation %s model updated to %s", conv.ID, req.Model)
	}

	return result, nil
}

// sendCloud sends the full structured history, including the new turn
// and any inlined attachments, to the hosted API.
func (s *ChatService) sendCloud(ctx context.Context, decision domain.RoutingDecision, history []domain.Message, maxTokens int) (*driving.TurnResult, error) {
	if s.cloud == nil {
		return nil, errors.New("cloud backend not configured: set ANTHROPIC_API_KEY or anthropic.api_key")
	}

	messages, err := s.history.BuildStructured(ctx, history, decision.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if maxTokens <= 0 {
		maxTokens = s.maxTokens
	}

	logger.Debug("Sending %d messages to cloud backend", len(messages))
	reply, err := s.cloud.SendMessages(ctx, decision.BackendModel, messages, maxTokens)
	if err != nil {
		return nil, err
	}

	return &driving.TurnResult{
		Content:      reply.Content,
		Source:       SourceCloud,
		InputTokens:  reply.InputTokens,
		OutputTokens: reply.OutputTokens,
		Cost:         Cost(decision.BackendModel, reply.InputTokens, reply.OutputTokens),
	}, nil
}

// sendLocal flattens recent history into a plain prompt for the local
// inference host. Token counts are estimates; cost is always zero.
func (s *ChatService) sendLocal(ctx context.Context, decision domain.RoutingDecision, prior []domain.Message, content string) (*driving.TurnResult, error) {
	prompt := FlattenPrompt(prior, content, s.localHistoryLimit)

	logger.Debug("Sending flat prompt (%d chars) to local backend", len(prompt))
	reply, err := s.local.Generate(ctx, decision.BackendModel, prompt)
	if err != nil {
		return nil, err
	}

	return &driving.TurnResult{
		Content:      reply,
		Source:       SourceLocal,
		InputTokens:  EstimateTokens(prompt),
		OutputTokens: EstimateTokens(reply),
		Cost:         0,
	}, nil
}

// sendLocalRAG augments the flattened prompt with retrieved context
// before forwarding it to the retrieval-augmented endpoint.
func (s *ChatService) sendLocalRAG(ctx context.Context, decision domain.RoutingDecision, prior []domain.Message, content string) (*driving.TurnResult, error) {
	results, err := s.retrieval.Search(ctx, content, s.topK)
	if err != nil {
		return nil, err
	}

	prompt := FlattenPrompt(prior, content, s.localHistoryLimit)
	if block := BuildContext(results); block != "" {
		prompt = block + prompt
	}

	logger.Debug("Sending augmented prompt (%d chars, %d chunks) to RAG backend", len(prompt), len(results))
	reply, err := s.rag.Query(ctx, prompt, decision.BackendModel, true, s.topK)
	if err != nil {
		return nil, err
	}

	chunks := len(reply.Context)
	if chunks == 0 {
		chunks = len(results)
	}

	return &driving.TurnResult{
		Content:       reply.Content,
		Source:        SourceLocalRAG,
		InputTokens:   EstimateTokens(prompt),
		OutputTokens:  EstimateTokens(reply.Content),
		Cost:          0,
		ContextChunks: chunks,
	}, nil
}

// excludeMessage filters one message id out of a history slice.
func excludeMessage(msgs []domain.Message, id string) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
