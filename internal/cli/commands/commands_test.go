package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conduit-lang/edmxtools/internal/service"
	"github.com/conduit-lang/edmxtools/internal/tooling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metadataXML = `<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
    <edmx:DataServices>
        <Schema Namespace="NS" xmlns="http://docs.oasis-open.org/odata/ns/edm">
            <EntityType Name="Department">
                <Key><PropertyRef Name="ID"/></Key>
                <Property Name="ID" Type="Edm.String"/>
                <Property Name="Title" Type="Edm.String"/>
            </EntityType>
            <EntityContainer Name="Container">
                <EntitySet Name="Departments" EntityType="NS.Department"/>
            </EntityContainer>
        </Schema>
    </edmx:DataServices>
</edmx:Edmx>`

const annotationXML = `<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
    <edmx:Reference Uri="/srv/$metadata">
        <edmx:Include Namespace="NS" Alias="SRV"/>
    </edmx:Reference>
    <edmx:DataServices>
        <Schema Namespace="local" xmlns="http://docs.oasis-open.org/odata/ns/edm">
            <Annotations Target="SRV.Department/Title">
                <Annotation Term="Common.Label" String="Title"/>
            </Annotations>
            <Annotations Target="SRV.Missing">
            </Annotations>
        </Schema>
    </edmx:DataServices>
</edmx:Edmx>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the root command with args and returns stdout, stderr and the error
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "edmx", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"version", "convert", "metadata", "format", "lsp", "serve", "watch"} {
		assert.Contains(t, names, expected)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "edmx version: 1.0.0-test")
	assert.Contains(t, out, "Go version:")
}

func TestInvalidConfigFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "edmx.yaml", "server:\n  port: 0\n")
	_, stderr, err := run(t, "--config", path, "version")
	require.Error(t, err)
	assert.Contains(t, stderr, "CONFIGURATION ERROR")
}

func TestConvertCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "annotations.xml", annotationXML)
	out, _, err := run(t, "convert", path)
	require.NoError(t, err)

	var file struct {
		URI     string `json:"uri"`
		Targets []struct {
			Name  string            `json:"name"`
			Terms []json.RawMessage `json:"terms"`
		} `json:"targets"`
		References []struct {
			Name  string `json:"name"`
			Alias string `json:"alias"`
		} `json:"references"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &file))
	assert.True(t, strings.HasPrefix(file.URI, "file://"))
	require.Len(t, file.Targets, 2)
	assert.Equal(t, "SRV.Department/Title", file.Targets[0].Name)
	assert.Len(t, file.Targets[0].Terms, 1)
	require.Len(t, file.References, 1)
	assert.Equal(t, "SRV", file.References[0].Alias)
}

func TestConvertMissingFile(t *testing.T) {
	_, _, err := run(t, "convert", filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestMetadataCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "metadata.xml", metadataXML)

	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "tree",
			args:     []string{"--tree"},
			contains: []string{"Path", "NS.Department/Title", "EntitySet", "Edm.String"},
		},
		{
			name:     "element",
			args:     []string{"--path", "NS.Department"},
			contains: []string{"Kind:", "EntityType", "Keys:", "ID", "Title"},
		},
		{
			name:     "target kinds",
			args:     []string{"--path", "NS.Container/Departments", "--kinds"},
			contains: []string{"EntitySet\nCollection\n"},
		},
		{
			name:     "locations",
			args:     []string{"--path", "NS.Department", "--locations"},
			contains: []string{"metadata.xml:4:"},
		},
		{
			name:     "json",
			args:     []string{"--path", "NS.Department/ID", "--json"},
			contains: []string{`"path": "NS.Department/ID"`, `"edmPrimitiveType": "Edm.String"`},
		},
		{
			name:     "roots as json",
			contains: []string{`"path": "NS.Department"`, `"path": "NS.Container"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, append([]string{"metadata", path}, tt.args...)...)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestMetadataUnknownPathSuggests(t *testing.T) {
	path := writeFile(t, t.TempDir(), "metadata.xml", metadataXML)
	_, stderr, err := run(t, "metadata", path, "--path", "NS.Departmnt")
	require.ErrorIs(t, err, errElementNotFound)
	assert.Contains(t, stderr, "ELEMENT NOT FOUND: NS.Departmnt")
	assert.Contains(t, stderr, "Did you mean: NS.Department?")
}

func TestMetadataKindsRequirePath(t *testing.T) {
	path := writeFile(t, t.TempDir(), "metadata.xml", metadataXML)
	_, _, err := run(t, "metadata", path, "--kinds")
	require.Error(t, err)
}

func TestFormatCommand(t *testing.T) {
	dir := t.TempDir()
	messy := writeFile(t, dir, "a.xml", `<a><b x="1"/></a>`)
	clean := writeFile(t, dir, "b.xml", "<a>\n    <b x=\"1\"/>\n</a>\n")
	comment := writeFile(t, dir, "c.xml", "<a><!-- keep --><b/></a>")

	t.Run("check", func(t *testing.T) {
		_, stderr, err := run(t, "format", "--check", messy, clean)
		require.ErrorIs(t, err, errNeedsFormatting)
		assert.Contains(t, stderr, "1 file(s) need formatting")
		assert.Contains(t, stderr, messy)
	})

	t.Run("diff preview leaves files untouched", func(t *testing.T) {
		out, _, err := run(t, "format", messy)
		require.NoError(t, err)
		assert.Contains(t, out, "=== "+messy+" ===")
		assert.Contains(t, out, "- <a><b x=\"1\"/></a>")
		data, err := os.ReadFile(messy)
		require.NoError(t, err)
		assert.Equal(t, `<a><b x="1"/></a>`, string(data))
	})

	t.Run("unified diff", func(t *testing.T) {
		out, _, err := run(t, "format", "--unified", messy)
		require.NoError(t, err)
		assert.Contains(t, out, "--- a/"+messy)
		assert.Contains(t, out, "+    <b x=\"1\"/>")
	})

	t.Run("documents with comments are skipped", func(t *testing.T) {
		_, stderr, err := run(t, "format", "--check", comment)
		require.NoError(t, err)
		assert.Contains(t, stderr, "skipped")
	})

	t.Run("write", func(t *testing.T) {
		out, _, err := run(t, "format", "--write", messy, clean)
		require.NoError(t, err)
		assert.Contains(t, out, "✓ "+messy+" formatted")
		assert.Contains(t, out, "✓ "+clean+" (no changes)")
		data, err := os.ReadFile(messy)
		require.NoError(t, err)
		assert.Equal(t, "<a>\n    <b x=\"1\"/>\n</a>\n", string(data))
	})
}

func TestFormatWithFormatConfig(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.xml", `<a><b/></a>`)
	cfg := writeFile(t, dir, ".edmx-format.yml", "format:\n  tab_width: 2\n")

	_, _, err := run(t, "format", "--write", "--format-config", cfg, file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "<a>\n  <b/>\n</a>\n", string(data))
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xml", "")
	writeFile(t, dir, "sub/b.xml", "")
	writeFile(t, dir, "sub/notes.txt", "")
	writeFile(t, dir, ".hidden/c.xml", "")
	writeFile(t, dir, "node_modules/d.xml", "")

	files, err := findFiles([]string{dir}, []string{"*.xml"}, []string{"node_modules"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.xml"), filepath.Join(dir, "sub", "b.xml")}, files)

	files, err = findFiles([]string{filepath.Join(dir, "sub", "*.txt")}, []string{"*.xml"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "sub", "notes.txt")}, files)

	_, err = findFiles([]string{filepath.Join(dir, "nope.xml")}, nil, nil)
	assert.Error(t, err)
}

func TestImportMetadata(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.xml", metadataXML)
	second := writeFile(t, dir, "second.xml", metadataXML)

	svc := service.New(service.Options{})
	require.NoError(t, importMetadata(svc, []string{first, second}))
	assert.Equal(t, []string{service.DefaultKey, "first", "second"}, svc.ServiceKeys())
	assert.Equal(t, "4.0", svc.View(service.DefaultKey).GetODataVersion())
	assert.NotNil(t, svc.View("second").GetMetadataElement("NS.Department"))

	empty := writeFile(t, dir, "empty.xml", "<root/>")
	assert.Error(t, importMetadata(service.New(service.Options{}), []string{empty}))
}

func TestChecker(t *testing.T) {
	dir := t.TempDir()
	meta := writeFile(t, dir, "metadata.xml", metadataXML)
	ann := writeFile(t, dir, "annotations.xml", annotationXML)

	var out bytes.Buffer
	c := newChecker(tooling.NewAPI(), &out, nil)
	require.NoError(t, c.check([]string{ann, meta}))

	text := out.String()
	metaIdx := strings.Index(text, "✓ "+meta+" (metadata, 2 roots)")
	annIdx := strings.Index(text, "✗ "+ann+" (annotation, 2 targets)")
	require.GreaterOrEqual(t, metaIdx, 0, text)
	require.GreaterOrEqual(t, annIdx, 0, text)
	assert.Less(t, metaIdx, annIdx)
	assert.Contains(t, text, ann+":10:34: warning: unknown annotation target \"SRV.Missing\"")

	require.NoError(t, os.Remove(ann))
	out.Reset()
	require.NoError(t, c.check([]string{ann}))
	assert.Equal(t, "- "+ann+" removed\n", out.String())
}
