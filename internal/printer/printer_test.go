package printer

import (
	"strings"
	"testing"

	"github.com/conduit-lang/edmxtools/internal/annotation"
	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/position"
	"github.com/conduit-lang/edmxtools/internal/xmlast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintDocumentPrimitives(t *testing.T) {
	doc := Concat{
		Text("a"), Line, Text("b"),
		Indent{Contents: Concat{HardLine, Text("c  "), HardLine, Text("d")}},
		HardLine, Text("e"),
	}
	assert.Equal(t, "a b\n    c\n    d\ne", PrintDocumentToString(doc, DefaultOptions()))
	assert.Equal(t, "a b\n\tc\n\td\ne", PrintDocumentToString(doc, Options{UseTabs: true}))
	assert.Equal(t, "x, y, z", PrintDocumentToString(Join(Text(", "), []Doc{Text("x"), Text("y"), Text("z")}), DefaultOptions()))
}

func TestPrintDeepDocument(t *testing.T) {
	var doc Doc = Text("leaf")
	for i := 0; i < 10000; i++ {
		doc = Concat{Text("."), doc}
	}
	out := PrintDocumentToString(doc, DefaultOptions())
	assert.Equal(t, strings.Repeat(".", 10000)+"leaf", out)
}

func TestPrintElement(t *testing.T) {
	tests := []struct {
		name string
		el   *csdl.Element
		want string
	}{
		{
			name: "empty element self closes",
			el:   csdl.NewElement("String"),
			want: "<String/>",
		},
		{
			name: "structured element with empty text lines",
			el:   csdl.NewElement("PropertyValue", csdl.NewTextNode(""), csdl.NewTextNode("")),
			want: "<PropertyValue>\n\n\n</PropertyValue>",
		},
		{
			name: "single text inline",
			el:   csdl.NewElement("String", csdl.NewTextNode("a<b & c")),
			want: "<String>a&lt;b &amp; c</String>",
		},
		{
			name: "structured single text on its own line",
			el:   csdl.NewElement("Record", csdl.NewTextNode("x")),
			want: "<Record>\n    x\n</Record>",
		},
		{
			name: "dynamic expression is structured",
			el:   csdl.NewElement("Not", csdl.NewTextNode("true")),
			want: "<Not>\n    true\n</Not>",
		},
		{
			name: "attribute order",
			el: csdl.NewElement("PropertyValue").
				SetAttribute("String", "s").
				SetAttribute("Property", "Label").
				SetAttribute("Bool", "true"),
			want: `<PropertyValue Property="Label" Bool="true" String="s"/>`,
		},
		{
			name: "attribute escaping",
			el:   csdl.NewElement("String").SetAttribute("Value", `say "<hi>" & go`),
			want: `<String Value="say &quot;&lt;hi>&quot; &amp; go"/>`,
		},
		{
			name: "namespace prefix",
			el:   &csdl.Element{Name: "Include", NamespaceAlias: "edmx", Attributes: csdl.Attributes{}},
			want: "<edmx:Include/>",
		},
		{
			name: "multi-line text follows indent",
			el:   csdl.NewElement("Record", csdl.NewTextNode("\n  one\n  two\n")),
			want: "<Record>\n    one\n    two\n</Record>",
		},
		{
			name: "multi-line value keeps inner lines",
			el:   csdl.NewElement("String", csdl.NewTextNode("\n  first line\n    second  \n  third\n")),
			want: "<String>first line\n    second  \n  third</String>",
		},
		{
			name: "multi-line value is escaped",
			el:   csdl.NewElement("String", csdl.NewTextNode("a < b\n& c")),
			want: "<String>a &lt; b\n&amp; c</String>",
		},
		{
			name: "nested structure",
			el: csdl.NewElement("Annotation",
				csdl.NewElement("Collection",
					csdl.NewElement("Record",
						csdl.NewElement("PropertyValue").SetAttribute("Property", "Value").SetAttribute("Path", "name"),
					).SetAttribute("Type", "UI.DataField"),
				),
			).SetAttribute("Term", "UI.LineItem"),
			want: `<Annotation Term="UI.LineItem">
    <Collection>
        <Record Type="UI.DataField">
            <PropertyValue Path="name" Property="Value"/>
        </Record>
    </Collection>
</Annotation>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrintElement(tt.el, DefaultOptions()))
		})
	}
}

func TestMultiLineValueIsStable(t *testing.T) {
	el := csdl.NewElement("Collection",
		csdl.NewElement("String", csdl.NewTextNode("\n        one\n          two\n      ")),
	)
	opts := DefaultOptions()
	first := PrintElement(el, opts)
	assert.Equal(t, "<Collection>\n    <String>one\n          two</String>\n</Collection>", first)

	reparsed := annotation.ConvertElement(xmlast.Parse(first).Root, annotation.DefaultOptions())
	assert.Equal(t, first, PrintElement(reparsed, opts))
}

func TestNoTrailingWhitespace(t *testing.T) {
	el := csdl.NewElement("Collection", csdl.NewTextNode("  "), csdl.NewElement("String", csdl.NewTextNode("x")), csdl.NewTextNode(""))
	for _, line := range strings.Split(PrintElement(el, DefaultOptions()), "\n") {
		assert.Equal(t, strings.TrimRight(line, " \t"), line)
	}
}

func TestPrintIsIdempotent(t *testing.T) {
	el := csdl.NewElement("Annotation",
		csdl.NewElement("Record", csdl.NewElement("PropertyValue", csdl.NewTextNode("v")).SetAttribute("Property", "p")),
	).SetAttribute("Term", "T")
	opts := Options{TabWidth: 2}
	assert.Equal(t, PrintElement(el, opts), PrintElement(el, opts))
}

const sampleFile = `<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
    <edmx:Reference Uri="/srv/$metadata">
        <edmx:Include Alias="SRV" Namespace="NS"/>
    </edmx:Reference>
    <edmx:DataServices>
        <Schema Alias="L" Namespace="local" xmlns="http://docs.oasis-open.org/odata/ns/edm">
            <Annotations Target="SRV.E">
                <Annotation Term="Common.Label" String="x"/>
            </Annotations>
        </Schema>
    </edmx:DataServices>
</edmx:Edmx>`

func TestPrintAnnotationFile(t *testing.T) {
	file := csdl.NewAnnotationFile("u")
	file.Namespace = &csdl.Namespace{Name: "local", Alias: "L"}
	file.References = append(file.References, &csdl.Reference{Name: "NS", Alias: "SRV", URI: "/srv/$metadata"})
	file.Targets = append(file.Targets, &csdl.Target{
		Name:      "SRV.E",
		Namespace: "local",
		Alias:     "L",
		Terms: []*csdl.Element{
			csdl.NewElement("Annotation").SetAttribute("Term", "Common.Label").SetAttribute("String", "x"),
		},
	})
	assert.Equal(t, sampleFile, PrintAnnotationFile(file, DefaultOptions()))
}

func TestConvertPrintRoundTrip(t *testing.T) {
	file := annotation.ConvertText(sampleFile, "u", annotation.DefaultOptions())
	assert.Equal(t, sampleFile, PrintAnnotationFile(file, DefaultOptions()))
}

func TestPrintTarget(t *testing.T) {
	target := &csdl.Target{Name: "NS.E", Qualifier: "q"}
	assert.Equal(t, `<Annotations Qualifier="q" Target="NS.E"/>`, PrintTarget(target, DefaultOptions()))
}

func TestInsertElement(t *testing.T) {
	start := position.NewRange(1, 8, 3, 22)
	content := position.NewRange(1, 30, 3, 8)
	target := &csdl.Element{Name: "Annotations", Range: &start, ContentRange: &content}

	edit, ok := InsertElement(target, csdl.NewElement("Annotation").SetAttribute("Term", "X"), DefaultOptions())
	require.True(t, ok)
	assert.Equal(t, position.Range{Start: content.Start, End: content.Start}, edit.Range)
	assert.Equal(t, "\n            <Annotation Term=\"X\"/>", edit.NewText)

	nested := csdl.NewElement("Annotation", csdl.NewElement("Record")).SetAttribute("Term", "X")
	edit, ok = InsertElement(target, nested, DefaultOptions())
	require.True(t, ok)
	assert.Equal(t, "\n            <Annotation Term=\"X\">\n                <Record/>\n            </Annotation>", edit.NewText)

	_, ok = InsertElement(csdl.NewElement("Annotations"), nested, DefaultOptions())
	assert.False(t, ok)
}

func TestInsertIntoParsedDocument(t *testing.T) {
	text := "<Edmx>\n    <DataServices>\n        <Schema Namespace=\"n\">\n            <Annotations Target=\"T\">\n            </Annotations>\n        </Schema>\n    </DataServices>\n</Edmx>"
	file := annotation.ConvertText(text, "u", annotation.DefaultOptions())
	require.Len(t, file.Targets, 1)

	edit, ok := InsertIntoTarget(file.Targets[0], csdl.NewElement("Annotation").SetAttribute("Term", "UI.Hidden"), DefaultOptions())
	require.True(t, ok)

	updated := applyEdit(text, edit)
	assert.Contains(t, updated, "<Annotations Target=\"T\">\n                <Annotation Term=\"UI.Hidden\"/>\n            </Annotations>")

	reparsed := annotation.ConvertText(updated, "u", annotation.DefaultOptions())
	require.Len(t, reparsed.Targets, 1)
	require.Len(t, reparsed.Targets[0].Terms, 1)
	assert.Equal(t, "UI.Hidden", reparsed.Targets[0].Terms[0].AttributeValue("Term"))
}

func applyEdit(text string, edit position.TextEdit) string {
	doc := xmlast.Parse(text)
	start := doc.OffsetAt(edit.Range.Start.Line, edit.Range.Start.Character)
	end := doc.OffsetAt(edit.Range.End.Line, edit.Range.End.Character)
	return text[:start] + edit.NewText + text[end:]
}
