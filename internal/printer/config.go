package printer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the standalone printer configuration file
const ConfigFileName = ".edmx-format.yml"

const defaultTabWidth = 4

// Options represents printing options
type Options struct {
	TabWidth int  `yaml:"tab_width" mapstructure:"tab_width"`
	UseTabs  bool `yaml:"use_tabs" mapstructure:"use_tabs"`
}

// DefaultOptions returns the default printing options
func DefaultOptions() Options {
	return Options{TabWidth: defaultTabWidth}
}

func (o Options) tabWidth() int {
	if o.TabWidth <= 0 {
		return defaultTabWidth
	}
	return o.TabWidth
}

// LoadConfig loads printing options from a file.
// If the file doesn't exist, returns the default options.
func LoadConfig(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultOptions(), nil
	}
	if err != nil {
		return Options{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	wrapper := struct {
		Format Options `yaml:"format"`
	}{Format: DefaultOptions()}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Options{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if wrapper.Format.TabWidth <= 0 {
		wrapper.Format.TabWidth = defaultTabWidth
	}
	return wrapper.Format, nil
}

// SaveConfig saves printing options to a file
func SaveConfig(path string, opts Options) error {
	wrapper := struct {
		Format Options `yaml:"format"`
	}{Format: opts}

	data, err := yaml.Marshal(wrapper)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
