package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/conduit-lang/edmxtools/internal/server"
	"github.com/conduit-lang/edmxtools/internal/service"
	"github.com/conduit-lang/edmxtools/internal/xmlast"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve <metadata files...>",
		Short: "Serve metadata lookups over HTTP",
		Long: `Load service metadata documents and serve lookups over a JSON HTTP API.

Each file is imported under its base name without extension; the first file is
also the default service.

Endpoints:
  GET /healthz
  GET /services
  GET /services/{key}/namespaces
  GET /services/{key}/roots
  GET /services/{key}/element?path=
  GET /services/{key}/locations?path=
  GET /services/{key}/target-kinds?path=

Examples:
  edmx serve service.xml
  edmx serve a.xml b.xml --port 8080`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, _ := os.Getwd()
			svc := service.New(a.cfg.ServiceOptions(cwd, a.logger))
			if err := importMetadata(svc, args); err != nil {
				return err
			}

			opts := server.Options{Host: a.cfg.Server.Host, Port: a.cfg.Server.Port, Logger: a.logger}
			if cmd.Flags().Changed("host") {
				opts.Host = host
			}
			if cmd.Flags().Changed("port") {
				opts.Port = port
			}
			srv := server.New(svc, opts)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			banner := color.New(color.FgCyan, color.Bold)
			banner.Fprintf(cmd.OutOrStdout(), "Serving %d service(s) on http://%s\n", len(args), srv.Addr())
			color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Address to listen on")
	cmd.Flags().IntVar(&port, "port", 4004, "Port to listen on")
	return cmd
}

// importMetadata imports every file under its service key and the first as default
func importMetadata(svc *service.Service, files []string) error {
	for i, file := range files {
		content, docURI, err := readDocument(file)
		if err != nil {
			return err
		}
		doc := xmlast.Parse(content)
		key := serviceKey(file)
		if roots := svc.ImportDocument(doc, docURI, key); len(roots) == 0 {
			return fmt.Errorf("%s contains no schemas", file)
		}
		if i == 0 {
			svc.ImportDocument(doc, docURI, service.DefaultKey)
		}
	}
	return nil
}

func serviceKey(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

