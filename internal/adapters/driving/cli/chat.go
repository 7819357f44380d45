package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driving"
)

var (
	chatModel     string
	chatFiles     []string
	chatMaxTokens int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send messages and manage conversations",
}

var chatNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Start a new conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatNew,
}

var chatSendCmd = &cobra.Command{
	Use:   "send [conversation-id] [message]",
	Short: "Send a message in a conversation",
	Long: `Sends one chat turn. The model decides the backend: cloud identifiers go
to the hosted API, "local-" identifiers to the local host, and a "-rag"
suffix adds knowledge-base retrieval.`,
	Args: cobra.ExactArgs(2),
	RunE: runChatSend,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Show a conversation's messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatHistory,
}

func init() {
	chatNewCmd.Flags().StringVarP(&chatModel, "model", "m", "", "model to start the conversation with")
	chatSendCmd.Flags().StringVarP(&chatModel, "model", "m", "", "model to use for this turn")
	chatSendCmd.Flags().StringArrayVarP(&chatFiles, "file", "f", nil, "attach a file (repeatable)")
	chatSendCmd.Flags().IntVar(&chatMaxTokens, "max-tokens", 0, "cap the response length (cloud models)")

	chatCmd.AddCommand(chatNewCmd)
	chatCmd.AddCommand(chatSendCmd)
	chatCmd.AddCommand(chatHistoryCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatNew(cmd *cobra.Command, args []string) error {
	if conversations == nil {
		return errors.New("conversation store not configured")
	}

	title := ""
	if len(args) > 0 {
		title = args[0]
	}

	now := time.Now().UTC()
	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Model:     chatModel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := conversations.CreateConversation(context.Background(), conv); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	cmd.Printf("Conversation created: %s\n", conv.ID)
	return nil
}

func runChatSend(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := context.Background()
	fileIDs, err := registerUploads(ctx, chatFiles)
	if err != nil {
		return err
	}

	result, err := chatService.SendMessage(ctx, driving.SendMessageRequest{
		ConversationID: args[0],
		Content:        args[1],
		Model:          chatModel,
		FileIDs:        fileIDs,
		MaxTokens:      chatMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	cmd.Println(result.Content)
	cmd.Println()
	cmd.Printf("  model: %s (%s)\n", result.Model, result.Source)
	cmd.Printf("  tokens: %d in / %d out\n", result.InputTokens, result.OutputTokens)
	if result.Cost > 0 {
		cmd.Printf("  cost: $%.6f\n", result.Cost)
	}
	if result.ContextChunks > 0 {
		cmd.Printf("  context: %d chunks\n", result.ContextChunks)
	}
	return nil
}

func runChatHistory(cmd *cobra.Command, args []string) error {
	if conversations == nil {
		return errors.New("conversation store not configured")
	}

	ctx := context.Background()
	conv, err := conversations.GetConversation(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	msgs, err := conversations.Messages(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	if conv.Title != "" {
		cmd.Printf("%s\n\n", conv.Title)
	}
	for _, msg := range msgs {
		label := "You"
		if msg.Role == domain.RoleAssistant {
			label = "Assistant"
		}
		cmd.Printf("[%s] %s\n", label, msg.Content)
		for _, att := range msg.Attachments {
			cmd.Printf("    (attached: %s)\n", att.OriginalFilename)
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d in / %d out, $%.6f\n",
		conv.TotalInputTokens, conv.TotalOutputTokens, conv.TotalCost)
	return nil
}

// registerUploads records each file as an attachment and returns the
// ids to bind to the message. Files are referenced in place by their
// absolute path.
func registerUploads(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if conversations == nil {
		return nil, errors.New("conversation store not configured")
	}

	ids := make([]string, 0, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		mimeType := mime.TypeByExtension(filepath.Ext(abs))
		if mimeType == "" {
			mimeType = "text/plain"
		}

		att := &domain.Attachment{
			ID:               uuid.NewString(),
			MimeType:         mimeType,
			OriginalFilename: filepath.Base(abs),
			StoragePath:      abs,
			SizeBytes:        info.Size(),
		}
		if err := conversations.SaveAttachment(ctx, att); err != nil {
			return nil, fmt.Errorf("registering %s: %w", path, err)
		}
		ids = append(ids, att.ID)
	}
	return ids, nil
}
