package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of
// driven.ConversationStore. Messages are kept per conversation in
// append order, which is their ascending creation order.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message
	attachments   map[string]domain.Attachment
	messageFiles  map[string][]string
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
		attachments:   make(map[string]domain.Attachment),
		messageFiles:  make(map[string][]string),
	}
}

// CreateConversation stores a new conversation record.
func (s *ConversationStore) CreateConversation(_ context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conv.ID]; ok {
		return fmt.Errorf("conversation %s already exists", conv.ID)
	}
	s.conversations[conv.ID] = *conv
	return nil
}

// GetConversation retrieves a conversation by id.
func (s *ConversationStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return &conv, nil
}

// Messages returns a conversation's messages in append order with
// attachments populated.
func (s *ConversationStore) Messages(_ context.Context, conversationID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	out := make([]domain.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = msg
		for _, fileID := range s.messageFiles[msg.ID] {
			if att, ok := s.attachments[fileID]; ok {
				out[i].Attachments = append(out[i].Attachments, att)
			}
		}
	}
	return out, nil
}

// SaveMessage appends a message and folds its usage into the
// conversation totals.
func (s *ConversationStore) SaveMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID, domain.ErrNotFound)
	}

	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)

	conv.TotalInputTokens += msg.InputTokens
	conv.TotalOutputTokens += msg.OutputTokens
	conv.TotalCost += msg.Cost
	conv.UpdatedAt = msg.CreatedAt
	s.conversations[msg.ConversationID] = conv
	return nil
}

// UpdateConversationModel records the model a conversation last used.
func (s *ConversationStore) UpdateConversationModel(_ context.Context, id, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	conv.Model = model
	s.conversations[id] = conv
	return nil
}

// SaveAttachment registers an uploaded file not yet bound to a message.
func (s *ConversationStore) SaveAttachment(_ context.Context, att *domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[att.ID] = *att
	return nil
}

// AttachFiles binds uploaded files to a message in the given order.
func (s *ConversationStore) AttachFiles(_ context.Context, messageID string, fileIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, fileID := range fileIDs {
		if _, ok := s.attachments[fileID]; !ok {
			return fmt.Errorf("attachment %s: %w", fileID, domain.ErrNotFound)
		}
	}
	s.messageFiles[messageID] = append(s.messageFiles[messageID], fileIDs...)
	return nil
}
