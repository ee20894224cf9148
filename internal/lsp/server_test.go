package lsp

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/conduit-lang/edmxtools/internal/position"
	"github.com/conduit-lang/edmxtools/internal/tooling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

const metadataURI = "file:///srv/metadata.xml"

const metadataDocument = `<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
<edmx:DataServices><Schema Namespace="NS"><EntityType Name="E"><Property Name="p" Type="Edm.String"/></EntityType></Schema></edmx:DataServices>
</edmx:Edmx>`

const annotationURI = "file:///app/annotations.xml"

// the first Target value starts at line 1, character 51
const annotationDocument = `<Edmx><DataServices><Schema Namespace="local">
                              <Annotations Target="NS.E/p"><Annotation Term="Common.Label"/></Annotations>
                              <Annotations Target="NS.Unknown"/>
</Schema></DataServices></Edmx>`

type client struct {
	conn        jsonrpc2.Conn
	diagnostics chan protocol.PublishDiagnosticsParams
}

func startServer(t *testing.T) (*Server, *client) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	server := NewServer(tooling.NewAPI(), nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(ctx, serverSide)
	}()

	c := &client{
		conn:        jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide)),
		diagnostics: make(chan protocol.PublishDiagnosticsParams, 16),
	}
	c.conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() == protocol.MethodTextDocumentPublishDiagnostics {
			var params protocol.PublishDiagnosticsParams
			if err := json.Unmarshal(req.Params(), &params); err == nil {
				c.diagnostics <- params
			}
		}
		return reply(ctx, nil, nil)
	})

	t.Cleanup(func() {
		cancel()
		_ = c.conn.Close()
		<-done
	})
	return server, c
}

func (c *client) open(t *testing.T, uri, text string) protocol.PublishDiagnosticsParams {
	t.Helper()
	require.NoError(t, c.conn.Notify(context.Background(), protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: protocol.DocumentURI(uri), Version: 1, Text: text},
	}))
	select {
	case params := <-c.diagnostics:
		return params
	case <-time.After(5 * time.Second):
		t.Fatal("no diagnostics published")
	}
	return protocol.PublishDiagnosticsParams{}
}

func textDocumentPosition(uri string, line, character uint32) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Position:     protocol.Position{Line: line, Character: character},
	}
}

func TestServerInitialization(t *testing.T) {
	server := NewServer(nil, nil)
	require.NotNil(t, server.api)
	require.NotNil(t, server.logger)

	caps := server.capabilities
	assert.NotNil(t, caps.CompletionProvider)
	assert.NotNil(t, caps.DefinitionProvider)
	assert.Equal(t, true, caps.HoverProvider)
	assert.Equal(t, true, caps.ReferencesProvider)
	assert.Equal(t, true, caps.DocumentSymbolProvider)
	assert.Equal(t, true, caps.WorkspaceSymbolProvider)
}

func TestInitializeOverConnection(t *testing.T) {
	server, c := startServer(t)

	var result protocol.InitializeResult
	_, err := c.conn.Call(context.Background(), protocol.MethodInitialize, &protocol.InitializeParams{
		RootURI: "file:///workspace",
	}, &result)
	require.NoError(t, err)
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "edmx-lsp", result.ServerInfo.Name)
	assert.Equal(t, "/workspace", server.WorkspaceRoot())

	var unknown interface{}
	_, err = c.conn.Call(context.Background(), "textDocument/unknownMethod", nil, &unknown)
	assert.Error(t, err)
}

func TestDocumentLifecycle(t *testing.T) {
	_, c := startServer(t)
	ctx := context.Background()

	published := c.open(t, metadataURI, metadataDocument)
	assert.Empty(t, published.Diagnostics)

	published = c.open(t, annotationURI, annotationDocument)
	assert.Equal(t, protocol.DocumentURI(annotationURI), published.URI)
	require.Len(t, published.Diagnostics, 1)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, published.Diagnostics[0].Severity)
	assert.Equal(t, uint32(2), published.Diagnostics[0].Range.Start.Line)

	var hover protocol.Hover
	_, err := c.conn.Call(ctx, protocol.MethodTextDocumentHover, &protocol.HoverParams{
		TextDocumentPositionParams: textDocumentPosition(annotationURI, 1, 52),
	}, &hover)
	require.NoError(t, err)
	assert.Equal(t, protocol.Markdown, hover.Contents.Kind)
	assert.Contains(t, hover.Contents.Value, "`NS.E/p`")

	var locations []protocol.Location
	_, err = c.conn.Call(ctx, protocol.MethodTextDocumentDefinition, &protocol.DefinitionParams{
		TextDocumentPositionParams: textDocumentPosition(annotationURI, 1, 52),
	}, &locations)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, protocol.DocumentURI(metadataURI), locations[0].URI)
	assert.Equal(t, uint32(1), locations[0].Range.Start.Line)

	var symbols []protocol.DocumentSymbol
	_, err = c.conn.Call(ctx, protocol.MethodTextDocumentDocumentSymbol, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: annotationURI},
	}, &symbols)
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "NS.E/p", symbols[0].Name)
	require.Len(t, symbols[0].Children, 1)
	assert.Equal(t, "Common.Label", symbols[0].Children[0].Name)

	var edits []protocol.TextEdit
	_, err = c.conn.Call(ctx, protocol.MethodTextDocumentFormatting, &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: annotationURI},
	}, &edits)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].NewText, "    <DataServices>\n")

	require.NoError(t, c.conn.Notify(ctx, protocol.MethodTextDocumentDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: annotationURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "<Edmx><DataServices>"}},
	}))
	select {
	case params := <-c.diagnostics:
		require.NotEmpty(t, params.Diagnostics)
		assert.Equal(t, protocol.DiagnosticSeverityError, params.Diagnostics[0].Severity)
	case <-time.After(5 * time.Second):
		t.Fatal("no diagnostics published after change")
	}
}

func TestHoverOnUnknownDocument(t *testing.T) {
	_, c := startServer(t)

	var hover interface{}
	_, err := c.conn.Call(context.Background(), protocol.MethodTextDocumentHover, &protocol.HoverParams{
		TextDocumentPositionParams: textDocumentPosition("file:///missing.xml", 0, 0),
	}, &hover)
	assert.Error(t, err)
}

func TestConvertSeverity(t *testing.T) {
	tests := []struct {
		name     string
		input    tooling.DiagnosticSeverity
		expected protocol.DiagnosticSeverity
	}{
		{"Error severity", tooling.DiagnosticSeverityError, protocol.DiagnosticSeverityError},
		{"Warning severity", tooling.DiagnosticSeverityWarning, protocol.DiagnosticSeverityWarning},
		{"Info severity", tooling.DiagnosticSeverityInfo, protocol.DiagnosticSeverityInformation},
		{"Hint severity", tooling.DiagnosticSeverityHint, protocol.DiagnosticSeverityHint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, convertSeverity(tt.input))
		})
	}
}

func TestConvertSymbolKind(t *testing.T) {
	tests := []struct {
		name     string
		input    tooling.SymbolKind
		expected protocol.SymbolKind
	}{
		{"Target", tooling.SymbolKindTarget, protocol.SymbolKindObject},
		{"Term", tooling.SymbolKindTerm, protocol.SymbolKindProperty},
		{"Type", tooling.SymbolKindType, protocol.SymbolKindClass},
		{"Property", tooling.SymbolKindProperty, protocol.SymbolKindField},
		{"Container", tooling.SymbolKindContainer, protocol.SymbolKindNamespace},
		{"Member", tooling.SymbolKindContainerMember, protocol.SymbolKindVariable},
		{"Operation", tooling.SymbolKindOperation, protocol.SymbolKindFunction},
		{"Parameter", tooling.SymbolKindParameter, protocol.SymbolKindTypeParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, convertSymbolKind(tt.input))
		})
	}
}

func TestRangeConversion(t *testing.T) {
	r := position.NewRange(1, 2, 3, 4)
	got := toProtocolRange(r)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 2},
		End:   protocol.Position{Line: 3, Character: 4},
	}, got)
	assert.Equal(t, r.Start, fromProtocolPosition(got.Start))
}
