// Package cli provides the cobra command tree driving the core
// services.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/conduitworks/parley/internal/core/ports/driven"
	"github.com/conduitworks/parley/internal/core/ports/driving"
	"github.com/conduitworks/parley/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services the commands run against, injected by main before Execute.
var (
	chatService      driving.ChatService
	knowledgeService driving.KnowledgeService
	modelsService    driving.ModelsService
	conversations    driven.ConversationStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Chat with cloud and local language models",
	Long: `Parley routes chat turns to a hosted API, a local inference host, or a
retrieval-augmented endpoint based on the model you pick, and keeps a
local knowledge base for retrieval.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Services bundles everything the command tree needs.
type Services struct {
	Chat          driving.ChatService
	Knowledge     driving.KnowledgeService
	Models        driving.ModelsService
	Conversations driven.ConversationStore
}

// SetServices wires the core services into the command tree.
func SetServices(s Services) {
	chatService = s.Chat
	knowledgeService = s.Knowledge
	modelsService = s.Models
	conversations = s.Conversations
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
