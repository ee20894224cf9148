package escape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "a &lt; b &amp;&amp; c > \"d\"", EscapeText(`a < b && c > "d"`))
	assert.Equal(t, "a &lt; b &amp;&amp; c > &quot;d&quot;", EscapeAttribute(`a < b && c > "d"`))
	assert.Equal(t, "plain", EscapeText("plain"))
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		legacy bool
		want   string
	}{
		{"no entities", "plain text", false, "plain text"},
		{"standard set", "&lt;&gt;&amp;&apos;&quot;", false, `<>&'"`},
		{"legacy set keeps gt and apos", "&lt;&gt;&amp;&apos;&quot;", true, `<&gt;&&apos;"`},
		{"decimal reference", "&#65;&#x42;", false, "AB"},
		{"numeric ignored in legacy", "&#65;", true, "&#65;"},
		{"single pass", "&amp;lt;", false, "&lt;"},
		{"unknown entity kept", "&nbsp;x", false, "&nbsp;x"},
		{"dangling ampersand", "a & b", false, "a & b"},
		{"empty reference", "&;", false, "&;"},
		{"invalid number", "&#xZZ;&#0;", false, "&#xZZ;&#0;"},
		{"trailing ampersand", "x&", false, "x&"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unescape(tt.input, tt.legacy))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"<",
		"&",
		`"`,
		`a < b & "c"`,
		"<<&&\"\"",
		"Path/With<Angle>&Amp",
		"multi\nline & <text>",
		"unicode ✓ & <ü>",
	}
	for _, s := range inputs {
		assert.Equal(t, s, UnescapeAttribute(EscapeAttribute(s)), "attribute %q", s)
		assert.Equal(t, s, UnescapeText(EscapeText(s)), "text %q", s)
		assert.Equal(t, s, Unescape(EscapeAttribute(s), true), "legacy attribute %q", s)
	}
}
