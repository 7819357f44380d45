package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models you can route to",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	if modelsService == nil {
		return errors.New("models service not configured")
	}

	catalog, err := modelsService.ListModels(context.Background())
	if err != nil {
		return fmt.Errorf("listing models failed: %w", err)
	}

	cmd.Println("Available models:")
	cmd.Println()
	for _, m := range catalog.Models {
		cmd.Printf("  %-36s %-10s %-10s %s\n", m.ID, m.Type, m.Provider, m.CostLabel)
	}
	if !catalog.LocalAvailable {
		cmd.Println()
		cmd.Println("Local host unreachable; showing cloud models only.")
	}
	return nil
}
