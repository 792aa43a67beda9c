package server

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"texlipse/internal/lexer"
	"texlipse/internal/outline"
	"texlipse/internal/refs"
)

func (s *Server) textDocumentDefinition(
	context *glsp.Context,
	params *protocol.DefinitionParams,
) (any, error) {
	name, err := s.name(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	text, err := s.docs.Text(name)
	if err != nil {
		return nil, err
	}
	line, col := lineAt(text, params.Position)
	arg, ok := argumentAt(line, col)
	if !ok || arg.item == "" {
		return nil, nil
	}

	var entry refs.Entry
	switch {
	case lexer.RefCommands[arg.command]:
		entry, ok = s.project.Index().Label(arg.item)
	case lexer.CiteCommands[arg.command]:
		entry, ok = s.project.Index().BibKey(arg.item)
	case includeCommands[arg.command]:
		file, found := s.res.Include(arg.item)
		if !found {
			return nil, nil
		}
		return protocol.Location{URI: s.res.URI(file)}, nil
	default:
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	start := protocol.Position{Line: protocol.UInteger(max(entry.Line-1, 0))}
	return protocol.Location{
		URI:   s.res.URI(entry.File),
		Range: protocol.Range{Start: start, End: start},
	}, nil
}

func (s *Server) textDocumentDocumentSymbol(
	context *glsp.Context,
	params *protocol.DocumentSymbolParams,
) (any, error) {
	name, err := s.name(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	res := s.result(name)
	if res == nil || res.Tree == nil {
		return []protocol.DocumentSymbol{}, nil
	}
	return documentSymbols(res.Tree, res.Tree.Roots()), nil
}

func documentSymbols(t *outline.Tree, ids []outline.NodeID) []protocol.DocumentSymbol {
	symbols := make([]protocol.DocumentSymbol, 0, len(ids))
	for _, id := range ids {
		n := t.Node(id)
		detail := n.Type.String()
		label := n.Name
		if label == "" {
			label = "(" + detail + ")"
		}
		r := lineRange(n)
		symbols = append(symbols, protocol.DocumentSymbol{
			Name:           label,
			Detail:         &detail,
			Kind:           symbolKinds(n.Type),
			Range:          r,
			SelectionRange: protocol.Range{Start: r.Start, End: r.Start},
			Children:       documentSymbols(t, t.Children(id)),
		})
	}
	return symbols
}

func symbolKinds(typ outline.Type) protocol.SymbolKind {
	switch {
	case typ.Sectioning():
		return protocol.SymbolKindNamespace
	case typ == outline.TypeEnvironment:
		return protocol.SymbolKindStruct
	case typ == outline.TypePreamble:
		return protocol.SymbolKindPackage
	case typ == outline.TypeLabel:
		return protocol.SymbolKindKey
	case typ == outline.TypeInput:
		return protocol.SymbolKindFile
	}
	return protocol.SymbolKindModule
}

// lineRange covers the lines of n. An open node covers its first line only.
func lineRange(n *outline.Node) protocol.Range {
	start := protocol.Position{Line: protocol.UInteger(max(n.BeginLine-1, 0))}
	end := start
	if n.EndLine > n.BeginLine {
		end = protocol.Position{Line: protocol.UInteger(n.EndLine - 1)}
	}
	return protocol.Range{Start: start, End: end}
}

func (s *Server) textDocumentFoldingRange(
	context *glsp.Context,
	params *protocol.FoldingRangeParams,
) ([]protocol.FoldingRange, error) {
	name, err := s.name(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	res := s.result(name)
	if res == nil || res.Tree == nil {
		return nil, nil
	}
	var ranges []protocol.FoldingRange
	res.Tree.Walk(func(id outline.NodeID, _ int) bool {
		n := res.Tree.Node(id)
		// EndLine is exclusive; fold from the first to the last line.
		first, last := n.BeginLine-1, n.EndLine-2
		if last > first && first >= 0 {
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: protocol.UInteger(first),
				EndLine:   protocol.UInteger(last),
			})
		}
		return true
	})
	return ranges, nil
}
