package printer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	require.NoError(t, SaveConfig(path, Options{TabWidth: 2, UseTabs: true}))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Options{TabWidth: 2, UseTabs: true}, loaded)
}

func TestConfigMissingFileUsesDefaults(t *testing.T) {
	loaded, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), loaded)
}

func TestConfigLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("invalid: yaml: content:\n  - bad"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigPartialSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("format:\n  use_tabs: true\n"), 0644))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, loaded.UseTabs)
	assert.Equal(t, 4, loaded.TabWidth)
}

func TestDiff(t *testing.T) {
	color.NoColor = true

	unchanged := Diff("a\nb", "a\nb")
	assert.False(t, unchanged.Changed)
	assert.Equal(t, "No changes", unchanged.Stats())
	assert.Empty(t, unchanged.UnifiedDiff("f.xml"))

	d := Diff("a\nb\nc", "a\nB\nc\nd")
	require.True(t, d.Changed)
	assert.Equal(t, []DiffLine{
		{Op: DiffEqual, Text: "a", Line: 1},
		{Op: DiffRemoved, Text: "b", Line: 2},
		{Op: DiffAdded, Text: "B", Line: 2},
		{Op: DiffEqual, Text: "c", Line: 3},
		{Op: DiffAdded, Text: "d", Line: 4},
	}, d.Lines)
	assert.Equal(t, "2 lines added, 1 removed", d.Stats())
	assert.Equal(t, "--- a/f.xml\n+++ b/f.xml\n a\n-b\n+B\n c\n+d\n", d.UnifiedDiff("f.xml"))
	assert.Equal(t, "@@ line 2 @@\n- b\n+ B\n@@ line 4 @@\n+ d\n", d.String())
}
