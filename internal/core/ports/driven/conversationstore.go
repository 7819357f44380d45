package driven

import (
	"context"

	"github.com/conduitworks/parley/internal/core/domain"
)

// ConversationStore is the external collaborator that owns
// conversations, messages and attachment records. This core reads
// history in ascending creation order and appends turn results; it
// never reorders or rewrites what is already stored.
type ConversationStore interface {
	// CreateConversation stores a new conversation record.
	CreateConversation(ctx context.Context, conv *domain.Conversation) error

	// GetConversation retrieves a conversation by id.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// Messages returns a conversation's messages in ascending creation
	// order, each with its attachments populated in attachment order.
	Messages(ctx context.Context, conversationID string) ([]domain.Message, error)

	// SaveMessage appends a message and folds its usage into the
	// conversation totals.
	SaveMessage(ctx context.Context, msg *domain.Message) error

	// UpdateConversationModel records the model a conversation last
	// used. Called as a post-condition of a successful turn when the
	// caller chose a different model.
	UpdateConversationModel(ctx context.Context, id, model string) error

	// SaveAttachment registers an uploaded file that is not yet bound
	// to a message.
	SaveAttachment(ctx context.Context, att *domain.Attachment) error

	// AttachFiles transfers ownership of uploaded files to a message.
	// This is the single collaborator-side update that turns an
	// unattached upload into a message attachment.
	AttachFiles(ctx context.Context, messageID string, fileIDs []string) error
}
