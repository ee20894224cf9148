package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conduit-lang/edmxtools/internal/cli/ui"
	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/service"
	"github.com/conduit-lang/edmxtools/internal/xmlast"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// errElementNotFound is returned after the not-found message has been printed
var errElementNotFound = errors.New("metadata element not found")

func newMetadataCommand(a *app) *cobra.Command {
	var (
		path      string
		locations bool
		kinds     bool
		tree      bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "metadata <file>",
		Short: "Inspect service metadata",
		Long: `Resolve an EDMX service metadata document and look up its elements.

Without flags the resolved element tree is printed as JSON.

Examples:
  edmx metadata service.xml --tree
  edmx metadata service.xml --path NS.Department
  edmx metadata service.xml --path NS.Department/Title --locations
  edmx metadata service.xml --path NS.Departments --kinds`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, docURI, err := readDocument(args[0])
			if err != nil {
				return err
			}
			cwd, _ := os.Getwd()
			svc := service.New(a.cfg.ServiceOptions(cwd, a.logger))
			roots := svc.ImportDocument(xmlast.Parse(content), docURI, service.DefaultKey)
			view := svc.View(service.DefaultKey)
			out := cmd.OutOrStdout()

			if tree {
				renderTree(out, view)
				return nil
			}
			if path == "" {
				if locations || kinds {
					return fmt.Errorf("--locations and --kinds require --path")
				}
				return writeJSON(out, roots)
			}

			m := view.GetMetadataElement(path)
			if m == nil {
				var paths []string
				view.VisitMetadataElements(func(e *csdl.MetadataElement) { paths = append(paths, e.Path) })
				fmt.Fprint(cmd.ErrOrStderr(), ui.ElementNotFound(path, args[0], ui.Suggest(path, paths, 0), color.NoColor))
				return errElementNotFound
			}

			switch {
			case locations:
				for _, loc := range view.GetMetadataElementLocations(path) {
					fmt.Fprintf(out, "%s:%d:%d\n", loc.URI, loc.Range.Start.Line+1, loc.Range.Start.Character+1)
				}
			case kinds:
				for _, kind := range view.GetEdmTargetKinds(path) {
					fmt.Fprintln(out, kind)
				}
			case asJSON:
				return writeJSON(out, m)
			default:
				renderElement(out, m, view.GetEdmTargetKinds(path))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Metadata path to look up")
	cmd.Flags().BoolVar(&locations, "locations", false, "Print the source locations of --path")
	cmd.Flags().BoolVar(&kinds, "kinds", false, "Print the annotation target kinds of --path")
	cmd.Flags().BoolVar(&tree, "tree", false, "Print every element as a table")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the element at --path as JSON")
	return cmd
}

func renderTree(w io.Writer, view service.View) {
	table := ui.NewTable(w, []string{"Path", "Kind", "Type"}, &ui.TableOptions{NoColor: color.NoColor})
	view.VisitMetadataElements(func(m *csdl.MetadataElement) {
		table.AddRow(m.Path, m.Kind, elementType(m))
	})
	table.Render()
}

func renderElement(w io.Writer, m *csdl.MetadataElement, targetKinds []string) {
	ui.Header(w, m.Path, color.NoColor)
	kv := ui.NewKeyValueTable(w, color.NoColor)
	kv.AddRow("Kind", m.Kind)
	kv.AddRow("Type", elementType(m))
	kv.AddRow("Keys", strings.Join(m.Keys, ", "))
	kv.AddRow("Target kinds", strings.Join(targetKinds, ", "))
	kv.AddRow("Annotatable", fmt.Sprint(m.IsAnnotatable))
	if m.Location != nil {
		kv.AddRow("Location", fmt.Sprintf("%s:%d", m.Location.URI, m.Location.Range.Start.Line+1))
	}
	kv.Render()

	if len(m.Content) > 0 {
		fmt.Fprintln(w)
		table := ui.NewTable(w, []string{"Name", "Kind", "Type"}, &ui.TableOptions{NoColor: color.NoColor})
		for _, child := range m.Content {
			table.AddRow(child.Name, child.Kind, elementType(child))
		}
		table.Render()
	}
}

// elementType formats the primitive or structured type of m
func elementType(m *csdl.MetadataElement) string {
	t := m.EdmPrimitiveType
	if t == "" {
		t = m.StructuredType
	}
	if t != "" && m.IsCollectionValued {
		t = csdl.KindCollection + "(" + t + ")"
	}
	return t
}

func writeJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}
