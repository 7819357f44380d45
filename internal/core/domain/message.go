package domain

import (
	"strings"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one stored turn of a conversation. Messages are owned by
// the conversation store; this core reads them in ascending creation
// order and never reorders or mutates them.
type Message struct {
	// ID is the unique identifier for the message.
	ID string

	// ConversationID links to the owning conversation.
	ConversationID string

	// Role is "user" or "assistant".
	Role string

	// Content is the message text.
	Content string

	// Attachments are the files carried by this message, in the order
	// they were attached.
	Attachments []Attachment

	// ModelUsed records which model generated an assistant message.
	// Empty for user messages.
	ModelUsed string

	// InputTokens and OutputTokens record usage for assistant messages.
	InputTokens  int
	OutputTokens int

	// Cost is the dollar cost of producing an assistant message.
	Cost float64

	// CreatedAt orders messages within a conversation.
	CreatedAt time.Time
}

// Conversation is the collaborator-owned record a chat turn runs
// against. Only the fields this core reads or updates are modelled.
type Conversation struct {
	ID                string
	Title             string
	Model             string
	TotalInputTokens  int
	TotalOutputTokens int
	TotalCost         float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Attachment is a file stored alongside a message.
type Attachment struct {
	// ID is the unique identifier for the attachment.
	ID string

	// MimeType is the declared content type, e.g. "image/png".
	MimeType string

	// OriginalFilename is the name the file was uploaded with.
	OriginalFilename string

	// StoragePath locates the file bytes for the file collaborator.
	StoragePath string

	// SizeBytes is the stored file size.
	SizeBytes int64
}

// AttachmentKind is the encoding category of an attachment.
type AttachmentKind string

// Attachment kinds. Every attachment maps to exactly one kind.
const (
	// AttachmentImage is inlined as a base64 image part.
	AttachmentImage AttachmentKind = "image"

	// AttachmentDocument is inlined as a base64 document part (PDF).
	AttachmentDocument AttachmentKind = "document"

	// AttachmentText is decoded as UTF-8 and inlined as a text part.
	AttachmentText AttachmentKind = "text"
)

// Kind classifies the attachment by mime type. Classification is by
// prefix/equality on the declared type, never by file extension.
// Anything that is not an image or a PDF is treated as text.
func (a Attachment) Kind() AttachmentKind {
	switch {
	case strings.HasPrefix(a.MimeType, "image/"):
		return AttachmentImage
	case a.MimeType == "application/pdf":
		return AttachmentDocument
	default:
		return AttachmentText
	}
}
