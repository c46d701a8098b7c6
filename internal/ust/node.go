package ust

import (
	"bytes"
	"encoding/json"
)

// Node is implemented by every UST variant. The interface is sealed so the
// variant set stays closed to this package.
type Node interface {
	// Common returns the fields shared by all variants.
	Common() *Base
	sealed()
}

// Location is a source span. Lines are 1-based, columns 0-based.
type Location struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// Parameter describes one parameter of a method, constructor, lambda or call
// site. It is an attribute record, not a tree node.
type Parameter struct {
	Name         string `json:"name,omitempty"`
	Type         string `json:"type,omitempty"`
	SemanticType string `json:"semantic_type,omitempty"`
}

// Base carries the fields every node shares. Type is assigned by the variant
// constructors and must not be changed afterwards.
type Base struct {
	Type       KindTag   `json:"type"`
	Identifier string    `json:"identifier"`
	Location   *Location `json:"location,omitempty"`
	Children   NodeList  `json:"children"`

	parent Node
}

func newBase(k Kind) Base {
	return Base{Type: k.Tag()}
}

func (b *Base) Common() *Base { return b }

func (b *Base) sealed() {}

// Kind returns the variant kind recorded in the node's tag.
func (b *Base) Kind() Kind { return Kind(b.Type.ID) }

// Parent returns the owning node, or nil for a root. The relation is
// lookup-only; ownership runs strictly from parent to children.
func (b *Base) Parent() Node { return b.parent }

// NodeList is an ordered list of owned children. It decodes through the
// registry so nested variants keep their concrete types.
type NodeList []Node

func (l NodeList) MarshalJSON() ([]byte, error) {
	if len(l) == 0 {
		return []byte("[]"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, n := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (l *NodeList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	out := make(NodeList, 0, len(raw))
	for _, item := range raw {
		n, err := decodeNode(item)
		if err != nil {
			return err
		}
		out = append(out, n)
	}
	*l = out
	return nil
}

// Adopt installs children as parent's child list and then points each child
// back at parent. Children must not already belong to another node.
func Adopt(parent Node, children []Node) {
	b := parent.Common()
	if len(children) == 0 {
		b.Children = nil
		return
	}
	b.Children = NodeList(children)
	for _, child := range b.Children {
		child.Common().parent = parent
	}
}

// Relink restores parent pointers below n, e.g. after decoding.
func Relink(n Node) {
	Walk(n, func(cur Node) bool {
		for _, child := range cur.Common().Children {
			child.Common().parent = cur
		}
		return true
	})
}

// Walk visits n and its descendants in pre-order (source order). Returning
// false from fn skips the visited node's subtree.
func Walk(n Node, fn func(Node) bool) {
	if n == nil {
		return
	}
	stack := []Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		children := cur.Common().Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// CountKinds tallies the nodes of each kind below and including n.
func CountKinds(n Node) map[Kind]int {
	counts := make(map[Kind]int)
	Walk(n, func(cur Node) bool {
		counts[cur.Common().Kind()]++
		return true
	})
	return counts
}

// Collect returns every node of kind k in pre-order.
func Collect(n Node, k Kind) []Node {
	var out []Node
	Walk(n, func(cur Node) bool {
		if cur.Common().Kind() == k {
			out = append(out, cur)
		}
		return true
	})
	return out
}
