// Package commands implements the edmx command line
package commands

import (
	"fmt"
	"runtime"

	"github.com/conduit-lang/edmxtools/internal/cli/ui"
	"github.com/conduit-lang/edmxtools/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app carries the state shared by all commands once flags are parsed
type app struct {
	configFile string
	verbose    bool
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "edmx",
		Short: "OData EDMX annotation and metadata tooling",
		Long: color.CyanString(`edmx - OData annotation and metadata tooling

Converts EDMX annotation files and service metadata into a navigable model
and offers editor and lookup services on top of it.

Features:
  • Annotation documents as JSON with source ranges
  • Metadata path lookups, locations and target kinds
  • Canonical formatting of annotation XML
  • Language server for editors
  • HTTP lookup API`),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to config file (default: edmx.yaml in the working directory)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newConvertCommand(a))
	rootCmd.AddCommand(newMetadataCommand(a))
	rootCmd.AddCommand(newFormatCommand(a))
	rootCmd.AddCommand(newLSPCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newWatchCommand(a))

	return rootCmd
}

// setup loads the configuration and builds the logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.noColor {
		color.NoColor = true
	}

	var err error
	if a.configFile != "" {
		a.cfg, err = config.LoadFile(a.configFile)
	} else {
		a.cfg, err = config.Load(".")
	}
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err, a.noColor))
		return err
	}

	a.logger, err = a.cfg.NewLogger(a.verbose)
	if err != nil {
		return err
	}
	if a.cfg.File != "" {
		a.logger.Debug("config loaded", zap.String("file", a.cfg.File))
	}
	return nil
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the edmx version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			kv := ui.NewKeyValueTable(cmd.OutOrStdout(), color.NoColor)
			kv.AddRow("edmx version", Version)
			kv.AddRow("Git commit", GitCommit)
			kv.AddRow("Build date", BuildDate)
			kv.AddRow("Go version", runtime.Version())
			kv.Render()
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
