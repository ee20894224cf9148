package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/conduit-lang/edmxtools/internal/cli/ui"
	"github.com/conduit-lang/edmxtools/internal/printer"
	"github.com/conduit-lang/edmxtools/internal/tooling"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errNeedsFormatting is returned by --check when any file would change
var errNeedsFormatting = errors.New("files need formatting")

func newFormatCommand(a *app) *cobra.Command {
	var (
		write        bool
		check        bool
		unified      bool
		formatConfig string
	)

	cmd := &cobra.Command{
		Use:   "format [files...]",
		Short: "Format annotation files",
		Long: `Reprint EDMX annotation files in canonical layout.

By default, shows a diff preview of what would change without modifying files.
Use --write to apply formatting changes, or --check to verify formatting.
Files with syntax errors or comments are skipped.

Examples:
  edmx format                      # Show diff for all matching files
  edmx format --write              # Format and save all files
  edmx format --check              # Exit with error if not formatted
  edmx format annotations.xml      # Format a specific file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.cfg.Printer
			if cmd.Flags().Changed("format-config") {
				loaded, err := printer.LoadConfig(formatConfig)
				if err != nil {
					return fmt.Errorf("failed to load format config: %w", err)
				}
				opts = loaded
			}

			files, err := findFiles(args, a.cfg.Watch.Patterns, a.cfg.Watch.Ignored)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no files to format")
			}

			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			titleColor := color.New(color.FgCyan, color.Bold)
			successColor := color.New(color.FgGreen)
			errorColor := color.New(color.FgRed, color.Bold)

			var unformatted []string
			errorCount := 0
			for _, file := range files {
				original, err := os.ReadFile(file)
				if err != nil {
					errorColor.Fprintf(errOut, "Error reading %s: %v\n", file, err)
					errorCount++
					continue
				}

				formatted, err := tooling.FormatContent(string(original), opts)
				if errors.Is(err, tooling.ErrNotFormattable) {
					fmt.Fprint(errOut, ui.Warning(fmt.Sprintf("%s skipped: %v", file, err), color.NoColor))
					continue
				}
				if err != nil {
					errorColor.Fprintf(errOut, "Error formatting %s: %v\n", file, err)
					errorCount++
					continue
				}

				diff := printer.Diff(string(original), formatted)
				if !diff.Changed {
					if !check {
						successColor.Fprintf(out, "✓ %s (no changes)\n", file)
					}
					continue
				}
				unformatted = append(unformatted, file)
				a.logger.Debug("file needs formatting", zap.String("file", file), zap.String("stats", diff.Stats()))

				switch {
				case check:
				case write:
					if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
						errorColor.Fprintf(errOut, "Error writing %s: %v\n", file, err)
						errorCount++
						continue
					}
					successColor.Fprintf(out, "✓ %s formatted\n", file)
				case unified:
					fmt.Fprint(out, diff.UnifiedDiff(file))
				default:
					titleColor.Fprintf(out, "\n=== %s ===\n", file)
					fmt.Fprint(out, diff.String())
					fmt.Fprintf(out, "\n%s\n", diff.Stats())
				}
			}

			if check && len(unformatted) > 0 {
				fmt.Fprint(errOut, ui.NotFormatted(unformatted, color.NoColor))
				return errNeedsFormatting
			}
			if !write && !check && len(unformatted) > 0 {
				fmt.Fprintln(out)
				titleColor.Fprintln(out, "Run 'edmx format --write' to apply changes")
			}
			if errorCount > 0 {
				return fmt.Errorf("%d files had errors", errorCount)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write formatted output to files")
	cmd.Flags().BoolVarP(&check, "check", "c", false, "Check if files are formatted (exit 1 if not)")
	cmd.Flags().BoolVarP(&unified, "unified", "u", false, "Show changes as a unified diff")
	cmd.Flags().StringVar(&formatConfig, "format-config", ".edmx-format.yml", "Path to formatting config file")
	return cmd
}
