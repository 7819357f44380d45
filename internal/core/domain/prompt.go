package domain

// BlockType identifies the kind of a content block.
type BlockType string

// Content block types, mirroring what the cloud API accepts.
const (
	BlockText     BlockType = "text"
	BlockImage    BlockType = "image"
	BlockDocument BlockType = "document"
)

// ContentBlock is one part of a multi-part message. Text blocks carry
// Text; image and document blocks carry MimeType plus base64 Data.
type ContentBlock struct {
	Type     BlockType
	Text     string
	MimeType string
	Data     string
}

// PromptMessage is a provider-neutral message ready to send to a
// generation backend. A message has either plain text Content (no
// attachments) or a list of Blocks (attachments first, the message's
// own text last). Both shapes are valid; Blocks wins when non-empty.
type PromptMessage struct {
	Role    string
	Content string
	Blocks  []ContentBlock
}
