// Package config loads project configuration from edmx.yaml and EDMX_ environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conduit-lang/edmxtools/internal/annotation"
	"github.com/conduit-lang/edmxtools/internal/printer"
	"github.com/conduit-lang/edmxtools/internal/service"
	"github.com/spf13/viper"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. EDMX_SERVER_PORT
const EnvPrefix = "EDMX"

// ConfigName is the base name of the project config file
const ConfigName = "edmx"

// Config represents the project configuration
type Config struct {
	Converter annotation.Options `mapstructure:"converter"`
	Printer   printer.Options    `mapstructure:"printer"`
	Metadata  MetadataConfig     `mapstructure:"metadata"`
	Server    ServerConfig       `mapstructure:"server"`
	Watch     WatchConfig        `mapstructure:"watch"`
	Log       LogConfig          `mapstructure:"log"`

	// File is the config file that was read, empty when defaults were used
	File string `mapstructure:"-"`
}

// MetadataConfig configures the metadata service
type MetadataConfig struct {
	ODataVersion string            `mapstructure:"odata_version"`
	CDS          bool              `mapstructure:"cds"`
	// URIMap is read verbatim from the config file: viper would split its keys on
	// dots and fold their case
	URIMap map[string]string `mapstructure:"-"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// WatchConfig configures the file watcher
type WatchConfig struct {
	Patterns []string      `mapstructure:"patterns"`
	Ignored  []string      `mapstructure:"ignored"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("converter.keep_empty_text", false)
	v.SetDefault("converter.legacy_entities", false)
	v.SetDefault("printer.tab_width", 4)
	v.SetDefault("printer.use_tabs", false)
	v.SetDefault("metadata.odata_version", "")
	v.SetDefault("metadata.cds", false)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 4004)
	v.SetDefault("watch.patterns", []string{"*.xml"})
	v.SetDefault("watch.ignored", []string{"node_modules"})
	v.SetDefault("watch.debounce", 100*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads edmx.yaml or edmx.yml from dir. Missing files yield the defaults.
func Load(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFile reads the config file at path, which must exist
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	uriMap, err := readURIMap(cfg.File)
	if err != nil {
		return nil, err
	}
	cfg.Metadata.URIMap = uriMap
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// readURIMap reads metadata.uri_map from a YAML config file
func readURIMap(file string) (map[string]string, error) {
	uriMap := map[string]string{}
	if ext := filepath.Ext(file); ext != ".yaml" && ext != ".yml" {
		return uriMap, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var raw struct {
		Metadata struct {
			URIMap map[string]string `yaml:"uri_map"`
		} `yaml:"metadata"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse metadata.uri_map: %w", err)
	}
	for from, to := range raw.Metadata.URIMap {
		uriMap[from] = to
	}
	return uriMap, nil
}

// Validate checks value ranges
func Validate(cfg *Config) error {
	if cfg.Printer.TabWidth < 1 || cfg.Printer.TabWidth > 16 {
		return fmt.Errorf("printer.tab_width must be between 1 and 16, got %d", cfg.Printer.TabWidth)
	}
	switch cfg.Metadata.ODataVersion {
	case "", "2.0", "4.0":
	default:
		return fmt.Errorf("metadata.odata_version must be empty, 2.0 or 4.0, got %q", cfg.Metadata.ODataVersion)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	for _, pattern := range append(append([]string(nil), cfg.Watch.Patterns...), cfg.Watch.Ignored...) {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("watch pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// ServiceOptions returns the metadata service options. uri_map keys that are file
// paths become file URIs, relative ones resolved against base.
func (c *Config) ServiceOptions(base string, logger *zap.Logger) service.Options {
	uriMap := make(map[string]string, len(c.Metadata.URIMap))
	for from, to := range c.Metadata.URIMap {
		if !strings.Contains(from, "://") {
			if !filepath.IsAbs(from) {
				from = filepath.Join(base, from)
			}
			from = string(uri.File(from))
		}
		uriMap[from] = to
	}
	return service.Options{
		URIMap:       uriMap,
		CDS:          c.Metadata.CDS,
		ODataVersion: c.Metadata.ODataVersion,
		Logger:       logger,
	}
}

// NewLogger builds the process logger. verbose forces development output at debug level.
func (c *Config) NewLogger(verbose bool) (*zap.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	var zc zap.Config
	if verbose || c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// stdout carries LSP traffic and command output
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func parseLevel(text string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(text)); err != nil {
		return level, err
	}
	return level, nil
}

// FindProjectRoot walks up from dir looking for an edmx.yaml or edmx.yml file
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range []string{ConfigName + ".yaml", ConfigName + ".yml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yaml found", ConfigName)
		}
		dir = parent
	}
}
