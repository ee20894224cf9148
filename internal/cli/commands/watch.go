package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/conduit-lang/edmxtools/internal/service"
	"github.com/conduit-lang/edmxtools/internal/tooling"
	"github.com/conduit-lang/edmxtools/internal/watch"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-check documents as they change",
		Long: `Watch a directory and re-convert annotation and metadata documents on change.

Each changed file is classified, converted and checked; syntax problems and
targets missing from the loaded metadata are reported.

Examples:
  edmx watch
  edmx watch webapp/annotations`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			cwd, _ := os.Getwd()
			checker := newChecker(tooling.NewAPIWithConfig(tooling.Config{
				Converter: a.cfg.Converter,
				Printer:   a.cfg.Printer,
				Service:   service.New(a.cfg.ServiceOptions(cwd, a.logger)),
				Logger:    a.logger,
			}), cmd.OutOrStdout(), a.logger)

			files, err := findFiles([]string{root}, a.cfg.Watch.Patterns, a.cfg.Watch.Ignored)
			if err != nil {
				return err
			}
			if err := checker.check(files); err != nil {
				return err
			}

			watcher, err := watch.NewFileWatcher(watch.Options{
				Root:     root,
				Patterns: a.cfg.Watch.Patterns,
				Ignored:  a.cfg.Watch.Ignored,
				Debounce: a.cfg.Watch.Debounce,
				Logger:   a.logger,
			}, checker.check)
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()

			color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "Watching %s. Press Ctrl+C to stop\n", root)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
	return cmd
}

// checker converts changed files through the tooling API and reports their diagnostics
type checker struct {
	api      *tooling.API
	out      io.Writer
	logger   *zap.Logger
	mu       sync.Mutex
	versions map[string]int
}

type checkedFile struct {
	path string
	doc  *tooling.Document
}

func newChecker(api *tooling.API, out io.Writer, logger *zap.Logger) *checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &checker{api: api, out: out, logger: logger, versions: map[string]int{}}
}

// check handles one batch of changed paths. The whole batch is loaded before
// reporting so annotation targets resolve against metadata changed with them.
func (c *checker) check(paths []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var checked []checkedFile
	for _, path := range paths {
		content, err := os.ReadFile(path)
		docURI := fileURI(path)
		if os.IsNotExist(err) {
			c.api.CloseDocument(docURI)
			delete(c.versions, docURI)
			fmt.Fprintf(c.out, "- %s removed\n", path)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		c.versions[docURI]++
		doc, err := c.api.UpdateDocument(docURI, string(content), c.versions[docURI])
		if err != nil {
			return err
		}
		c.logger.Debug("document checked", zap.String("uri", docURI), zap.Stringer("kind", doc.Kind))
		checked = append(checked, checkedFile{path: path, doc: doc})
	}

	for _, kind := range []tooling.DocumentKind{tooling.DocumentKindMetadata, tooling.DocumentKindAnnotation} {
		for _, f := range checked {
			if f.doc.Kind == kind {
				c.report(f.path, f.doc)
			}
		}
	}
	return nil
}

func (c *checker) report(path string, doc *tooling.Document) {
	diagnostics := c.api.GetDiagnostics(doc.URI)
	summary := fmt.Sprintf("%s (%s", path, doc.Kind)
	switch doc.Kind {
	case tooling.DocumentKindMetadata:
		summary += fmt.Sprintf(", %d roots)", len(doc.Metadata))
	default:
		targets := 0
		if doc.Annotations != nil {
			targets = len(doc.Annotations.Targets)
		}
		summary += fmt.Sprintf(", %d targets)", targets)
	}

	if len(diagnostics) == 0 {
		color.New(color.FgGreen).Fprintf(c.out, "✓ %s\n", summary)
		return
	}
	color.New(color.FgRed, color.Bold).Fprintf(c.out, "✗ %s\n", summary)
	for _, d := range diagnostics {
		fmt.Fprintf(c.out, "  %s:%d:%d: %s: %s\n",
			path, d.Range.Start.Line+1, d.Range.Start.Character+1, severityName(d.Severity), d.Message)
	}
}

func severityName(s tooling.DiagnosticSeverity) string {
	switch s {
	case tooling.DiagnosticSeverityError:
		return "error"
	case tooling.DiagnosticSeverityWarning:
		return "warning"
	case tooling.DiagnosticSeverityInfo:
		return "info"
	default:
		return "hint"
	}
}
