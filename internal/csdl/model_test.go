package csdl

import (
	"encoding/json"
	"testing"

	"github.com/conduit-lang/edmxtools/internal/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementHelpers(t *testing.T) {
	el := NewElement("Record",
		NewTextNode("a"),
		NewElement("PropertyValue").SetAttribute("Property", "Label"),
		NewTextNode("b"),
		NewElement("Annotation"),
	).SetAttribute("Type", "UI.DataField")

	assert.Equal(t, "UI.DataField", el.AttributeValue("Type"))
	assert.Equal(t, "", el.AttributeValue("Missing"))
	assert.Nil(t, el.Attribute("Missing"))
	assert.Equal(t, "ab", el.Text())
	assert.Len(t, el.ChildElements(), 2)

	values := el.ChildElements("PropertyValue")
	require.Len(t, values, 1)
	assert.Equal(t, "Label", values[0].AttributeValue("Property"))
}

func TestSetAttributeOnZeroValue(t *testing.T) {
	var el Element
	el.SetAttribute("Name", "x")
	assert.Equal(t, "x", el.AttributeValue("Name"))
}

func TestElementJSONRoundTrip(t *testing.T) {
	r := position.NewRange(0, 0, 0, 10)
	el := NewElement("Annotation",
		&TextNode{Type: TypeText, Text: "x", Range: &r, FragmentRanges: []position.Range{r, r}},
		NewElement("String", NewTextNode("label")),
	).SetAttribute("Term", "Common.Label")
	el.Range = &r
	el.Namespace = EdmNamespaceV4

	data, err := json.Marshal(el)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"element"`)
	assert.Contains(t, string(data), `"type":"text"`)
	assert.Contains(t, string(data), `"type":"attribute"`)

	var decoded Element
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, el, &decoded)
}

func TestMarshalForcesTypeDiscriminator(t *testing.T) {
	data, err := json.Marshal(&Element{Name: "Bare"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"element","name":"Bare","attributes":{},"content":[]}`, string(data))
}

func TestUnmarshalRejectsUnknownNodeType(t *testing.T) {
	var el Element
	err := json.Unmarshal([]byte(`{"name":"A","content":[{"type":"comment"}]}`), &el)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comment")
}

func TestAnnotationFileJSONRoundTrip(t *testing.T) {
	file := NewAnnotationFile("file:///a.xml")
	file.Namespace = &Namespace{Name: "local", Alias: "L"}
	file.References = append(file.References, &Reference{Name: "NS", Alias: "SRV", URI: "/srv/$metadata"})
	file.Targets = append(file.Targets, &Target{
		Name:      "NS.Entity",
		Namespace: "local",
		Terms:     []*Element{NewElement("Annotation").SetAttribute("Term", "UI.LineItem")},
	})

	data, err := json.Marshal(file)
	require.NoError(t, err)

	var decoded AnnotationFile
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, file, &decoded)
	assert.NotNil(t, decoded.FindTarget("NS.Entity"))
	assert.Nil(t, decoded.FindTarget("NS.Other"))
}

func TestMetadataElementWalk(t *testing.T) {
	root := &MetadataElement{Path: "NS.E", Name: "NS.E", Content: []*MetadataElement{
		{Path: "NS.E/a", Name: "a"},
		{Path: "NS.E/b", Name: "b", Content: []*MetadataElement{{Path: "NS.E/b/c", Name: "c"}}},
	}}
	var paths []string
	root.Walk(func(m *MetadataElement) { paths = append(paths, m.Path) })
	assert.Equal(t, []string{"NS.E", "NS.E/a", "NS.E/b", "NS.E/b/c"}, paths)
	assert.Equal(t, "NS.E/b", root.Child("b").Path)
	assert.Nil(t, root.Child("z"))
}
