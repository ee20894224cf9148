package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/conduit-lang/edmxtools/internal/lsp"
	"github.com/conduit-lang/edmxtools/internal/service"
	"github.com/conduit-lang/edmxtools/internal/tooling"
	"github.com/spf13/cobra"
)

func newLSPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the edmx Language Server Protocol (LSP) server.

This command starts an LSP server that provides IDE integration features including:
  • Diagnostics (syntax errors and unknown targets)
  • Go-to-definition from annotation targets into metadata
  • Hover information
  • Target completion
  • Find references
  • Document and workspace symbols
  • Formatting

The LSP server communicates via JSON-RPC over stdin/stdout.
It is typically started automatically by your editor/IDE.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cwd, _ := os.Getwd()
			api := tooling.NewAPIWithConfig(tooling.Config{
				Converter: a.cfg.Converter,
				Printer:   a.cfg.Printer,
				Service:   service.New(a.cfg.ServiceOptions(cwd, a.logger)),
				Logger:    a.logger,
			})
			lsp.Version = Version
			return lsp.NewServer(api, a.logger).Run(ctx)
		},
	}
}
