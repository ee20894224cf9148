package lsp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/conduit-lang/edmxtools/internal/position"
	"github.com/conduit-lang/edmxtools/internal/tooling"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

func (s *Server) handleTextDocumentCompletion(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CompletionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse completion params")
	}

	completions, err := s.api.GetCompletions(string(params.TextDocument.URI), fromProtocolPosition(params.Position))
	if err != nil {
		s.logger.Warn("completion failed", zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, "Failed to get completions")
	}

	items := make([]protocol.CompletionItem, 0, len(completions))
	for _, c := range completions {
		items = append(items, protocol.CompletionItem{
			Label:            c.Label,
			Kind:             protocol.CompletionItemKindReference,
			Detail:           c.Detail,
			InsertText:       c.InsertText,
			InsertTextFormat: protocol.InsertTextFormatPlainText,
		})
	}
	return reply(ctx, protocol.CompletionList{IsIncomplete: false, Items: items}, nil)
}

func (s *Server) handleTextDocumentHover(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.HoverParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse hover params")
	}

	hover, err := s.api.GetHover(string(params.TextDocument.URI), fromProtocolPosition(params.Position))
	if err != nil {
		s.logger.Warn("hover failed", zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, "Failed to get hover information")
	}
	if hover == nil {
		return reply(ctx, nil, nil)
	}

	r := toProtocolRange(hover.Range)
	return reply(ctx, protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: hover.Contents,
		},
		Range: &r,
	}, nil)
}

func (s *Server) handleTextDocumentDefinition(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DefinitionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse definition params")
	}

	locations, err := s.api.GetDefinition(string(params.TextDocument.URI), fromProtocolPosition(params.Position))
	if err != nil {
		s.logger.Warn("definition failed", zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, "Failed to get definition")
	}
	return reply(ctx, toProtocolLocations(locations), nil)
}

func (s *Server) handleTextDocumentReferences(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.ReferenceParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse references params")
	}

	references, err := s.api.GetReferences(string(params.TextDocument.URI), fromProtocolPosition(params.Position))
	if err != nil {
		s.logger.Warn("references failed", zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, "Failed to get references")
	}
	return reply(ctx, toProtocolLocations(references), nil)
}

func (s *Server) handleTextDocumentDocumentSymbol(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DocumentSymbolParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse document symbol params")
	}

	symbols, err := s.api.GetDocumentSymbols(string(params.TextDocument.URI))
	if err != nil {
		s.logger.Warn("document symbols failed", zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, "Failed to get document symbols")
	}
	return reply(ctx, toDocumentSymbols(symbols), nil)
}

func (s *Server) handleWorkspaceSymbol(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.WorkspaceSymbolParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse workspace symbol params")
	}

	indexed := s.api.GetWorkspaceSymbols(params.Query)
	symbols := make([]protocol.SymbolInformation, 0, len(indexed))
	for _, sym := range indexed {
		symbols = append(symbols, protocol.SymbolInformation{
			Name: sym.Name,
			Kind: convertSymbolKind(sym.Kind),
			Location: protocol.Location{
				URI:   protocol.DocumentURI(sym.URI),
				Range: toProtocolRange(sym.SelectionRange),
			},
			ContainerName: sym.Path,
		})
	}
	return reply(ctx, symbols, nil)
}

func (s *Server) handleTextDocumentFormatting(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DocumentFormattingParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse formatting params")
	}

	edits, err := s.api.Format(string(params.TextDocument.URI))
	if errors.Is(err, tooling.ErrNotFormattable) {
		s.logger.Info("document not formatted", zap.Error(err))
		return reply(ctx, []protocol.TextEdit{}, nil)
	}
	if err != nil {
		s.logger.Warn("formatting failed", zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, "Failed to format document")
	}

	result := make([]protocol.TextEdit, 0, len(edits))
	for _, edit := range edits {
		result = append(result, protocol.TextEdit{Range: toProtocolRange(edit.Range), NewText: edit.NewText})
	}
	return reply(ctx, result, nil)
}

func fromProtocolPosition(p protocol.Position) position.Position {
	return position.Position{Line: int(p.Line), Character: int(p.Character)}
}

func toProtocolPosition(p position.Position) protocol.Position {
	return protocol.Position{Line: uint32(p.Line), Character: uint32(p.Character)}
}

func toProtocolRange(r position.Range) protocol.Range {
	return protocol.Range{Start: toProtocolPosition(r.Start), End: toProtocolPosition(r.End)}
}

func toProtocolLocations(locations []position.Location) []protocol.Location {
	out := make([]protocol.Location, 0, len(locations))
	for _, loc := range locations {
		out = append(out, protocol.Location{URI: protocol.DocumentURI(loc.URI), Range: toProtocolRange(loc.Range)})
	}
	return out
}

func toDocumentSymbols(symbols []*tooling.Symbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, protocol.DocumentSymbol{
			Name:           sym.Name,
			Kind:           convertSymbolKind(sym.Kind),
			Detail:         sym.Detail,
			Range:          toProtocolRange(sym.Range),
			SelectionRange: toProtocolRange(sym.SelectionRange),
			Children:       toDocumentSymbols(sym.Children),
		})
	}
	return out
}

func convertSymbolKind(kind tooling.SymbolKind) protocol.SymbolKind {
	switch kind {
	case tooling.SymbolKindTarget:
		return protocol.SymbolKindObject
	case tooling.SymbolKindTerm:
		return protocol.SymbolKindProperty
	case tooling.SymbolKindType:
		return protocol.SymbolKindClass
	case tooling.SymbolKindProperty:
		return protocol.SymbolKindField
	case tooling.SymbolKindContainer:
		return protocol.SymbolKindNamespace
	case tooling.SymbolKindContainerMember:
		return protocol.SymbolKindVariable
	case tooling.SymbolKindOperation:
		return protocol.SymbolKindFunction
	case tooling.SymbolKindParameter:
		return protocol.SymbolKindTypeParameter
	default:
		return protocol.SymbolKindObject
	}
}
