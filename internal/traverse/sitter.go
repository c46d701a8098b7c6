package traverse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/morozRed/ustgen/internal/ust"
)

// SitterSource adapts a tree-sitter tree to Source. Only named children
// are visited; anonymous tokens never carry UST data.
type SitterSource struct {
	Content []byte
}

func (s SitterSource) Valid(n *sitter.Node) bool {
	return n != nil && !n.IsNull()
}

func (s SitterSource) Children(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	if count == 0 {
		return nil
	}
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func (s SitterSource) Kind(n *sitter.Node) string {
	return n.Type()
}

func (s SitterSource) Text(n *sitter.Node) string {
	return n.Content(s.Content)
}

func (s SitterSource) Span(n *sitter.Node) ust.Location {
	start, end := n.StartPoint(), n.EndPoint()
	return ust.Location{
		StartLine:   int(start.Row) + 1,
		StartColumn: int(start.Column),
		EndLine:     int(end.Row) + 1,
		EndColumn:   int(end.Column),
	}
}
