package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the top-level Cobra command for offline rendering.
func NewRootCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "logpdf",
		Short:         "Render work-journal entries to PDF without the API server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newRenderCommand(ctx),
		newDurationCommand(),
	)

	return cmd
}

// ExecuteCommand is a thin wrapper that executes the Cobra root command.
func ExecuteCommand(ctx context.Context) error {
	return NewRootCommand(ctx).ExecuteContext(ctx)
}

// Main is a helper used by cmd/logpdf/main.go to keep wiring contained in one package.
func Main(ctx context.Context) {
	if err := ExecuteCommand(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
