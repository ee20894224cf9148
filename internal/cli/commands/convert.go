package commands

import (
	"encoding/json"
	"fmt"

	"github.com/conduit-lang/edmxtools/internal/annotation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newConvertCommand(a *app) *cobra.Command {
	var (
		legacy bool
		keep   bool
		indent bool
	)

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert an annotation file to JSON",
		Long: `Convert an EDMX annotation file into its JSON document model.

The output lists references, namespace and targets with the ranges of every
element, attribute and text node.

Examples:
  edmx convert annotations.xml
  edmx convert annotations.xml --legacy      # legacy entity handling
  edmx convert annotations.xml --keep-empty  # keep whitespace-only text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, docURI, err := readDocument(args[0])
			if err != nil {
				return err
			}

			opts := a.cfg.Converter
			if legacy {
				opts = annotation.LegacyOptions()
			}
			if keep {
				opts.KeepEmptyText = true
			}

			file := annotation.ConvertText(content, docURI, opts)
			a.logger.Debug("converted annotation file",
				zap.String("uri", docURI), zap.Int("targets", len(file.Targets)))

			var out []byte
			if indent {
				out, err = json.MarshalIndent(file, "", "  ")
			} else {
				out, err = json.Marshal(file)
			}
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&legacy, "legacy", false, "Use legacy converter options")
	cmd.Flags().BoolVar(&keep, "keep-empty", false, "Keep whitespace-only text nodes")
	cmd.Flags().BoolVar(&indent, "indent", true, "Indent the JSON output")
	return cmd
}
