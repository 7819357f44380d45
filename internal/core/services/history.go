package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
	"github.com/conduitworks/parley/internal/logger"
)

// HistoryBuilder reconstructs stored messages into the shape each
// backend expects, inlining attachment files along the way.
type HistoryBuilder struct {
	files driven.FileStore
}

// NewHistoryBuilder creates a new history builder.
func NewHistoryBuilder(files driven.FileStore) *HistoryBuilder {
	return &HistoryBuilder{files: files}
}

// BuildStructured converts messages into the multi-part format the
// cloud backend accepts. A limit > 0 restricts to the last limit
// messages; 0 keeps everything.
//
// Messages with attachments become a block list: attachment parts
// first, in attachment order, then one trailing text part with the
// message's own content. Messages without attachments stay a plain
// text value. A missing or unreadable attachment fails the whole
// build; dropping it silently would corrupt the model's view of the
// conversation.
func (b *HistoryBuilder) BuildStructured(ctx context.Context, messages []domain.Message, limit int) ([]domain.PromptMessage, error) {
	messages = tail(messages, limit)

	out := make([]domain.PromptMessage, 0, len(messages))
	for _, msg := range messages {
		if len(msg.Attachments) == 0 {
			out = append(out, domain.PromptMessage{Role: msg.Role, Content: msg.Content})
			continue
		}

		blocks := make([]domain.ContentBlock, 0, len(msg.Attachments)+1)
		for _, att := range msg.Attachments {
			block, err := b.encodeAttachment(ctx, att)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", msg.ID, err)
			}
			blocks = append(blocks, block)
		}
		blocks = append(blocks, domain.ContentBlock{Type: domain.BlockText, Text: msg.Content})

		out = append(out, domain.PromptMessage{Role: msg.Role, Blocks: blocks})
	}

	return out, nil
}

// encodeAttachment reads an attachment and wraps it in the content
// block its mime type calls for.
func (b *HistoryBuilder) encodeAttachment(ctx context.Context, att domain.Attachment) (domain.ContentBlock, error) {
	data, err := b.files.ReadFile(ctx, att.StoragePath)
	if err != nil {
		return domain.ContentBlock{}, fmt.Errorf("read attachment %q: %w", att.OriginalFilename, err)
	}

	switch att.Kind() {
	case domain.AttachmentImage:
		return domain.ContentBlock{
			Type:     domain.BlockImage,
			MimeType: att.MimeType,
			Data:     base64.StdEncoding.EncodeToString(data),
		}, nil

	case domain.AttachmentDocument:
		return domain.ContentBlock{
			Type:     domain.BlockDocument,
			MimeType: att.MimeType,
			Data:     base64.StdEncoding.EncodeToString(data),
		}, nil

	default:
		return domain.ContentBlock{
			Type: domain.BlockText,
			Text: fmt.Sprintf("File: %s\n\n%s", att.OriginalFilename, string(data)),
		}, nil
	}
}

// FlattenPrompt renders prior turns and the new user text into a
// single prompt string for backends without structured message
// support. Attachments do not survive flattening; only text does.
// A limit > 0 keeps the last limit prior messages.
func FlattenPrompt(prior []domain.Message, newText string, limit int) string {
	prior = tail(prior, limit)
	if len(prior) == 0 {
		return newText
	}

	lines := make([]string, 0, len(prior))
	for _, msg := range prior {
		lines = append(lines, roleLabel(msg.Role)+": "+msg.Content)
	}

	logger.Debug("Flattened %d prior messages into prompt", len(prior))
	return "Previous conversation:\n" + strings.Join(lines, "\n\n") + "\n\nHuman: " + newText
}

// roleLabel maps a stored role onto the label used in flat prompts.
func roleLabel(role string) string {
	if role == domain.RoleAssistant {
		return "Assistant"
	}
	return "Human"
}

// tail returns the last limit elements; limit <= 0 means all.
func tail(msgs []domain.Message, limit int) []domain.Message {
	if limit > 0 && len(msgs) > limit {
		return msgs[len(msgs)-limit:]
	}
	return msgs
}
