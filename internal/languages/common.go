package languages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/ust"
)

var errNoTree = errors.New("parser produced no tree")

// parseWith parses content with a fresh parser. sitter.Parser is not safe
// for concurrent use and files are parsed in parallel.
func parseWith(ctx context.Context, lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(lang)
	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errNoTree
	}
	return tree, nil
}

// missing reports a concrete node that lacks a required part.
func missing(n *sitter.Node, part string) error {
	return fmt.Errorf("%s at line %d: missing %s", n.Type(), n.StartPoint().Row+1, part)
}

func orEmpty(model semantic.Model) semantic.Model {
	if model == nil {
		return semantic.Empty{}
	}
	return model
}

func splitQualifiedName(raw string) (qualifier, name string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if idx := strings.LastIndex(raw, "."); idx != -1 {
		qualifier = strings.TrimSpace(raw[:idx])
		name = strings.TrimSpace(raw[idx+1:])
		return qualifier, name
	}
	return "", raw
}

// qualify joins the non-empty parts with dots.
func qualify(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

// stripNamespace drops namespace from the front of a qualified type name.
// Names outside namespace are returned unchanged.
func stripNamespace(typeName, namespace string) string {
	if namespace != "" && strings.HasPrefix(typeName, namespace+".") {
		return typeName[len(namespace)+1:]
	}
	return typeName
}

func valid(n *sitter.Node) bool {
	return n != nil && !n.IsNull()
}

func nodeText(n *sitter.Node, src []byte) string {
	if !valid(n) {
		return ""
	}
	return strings.TrimSpace(n.Content(src))
}

// flatText renders n on a single line.
func flatText(n *sitter.Node, src []byte) string {
	return strings.Join(strings.Fields(nodeText(n, src)), " ")
}

func field(n *sitter.Node, name string) *sitter.Node {
	if !valid(n) {
		return nil
	}
	c := n.ChildByFieldName(name)
	if !valid(c) {
		return nil
	}
	return c
}

// firstField returns the first of the named fields present on n. Grammar
// revisions renamed a few fields; callers list every known spelling.
func firstField(n *sitter.Node, names ...string) *sitter.Node {
	for _, name := range names {
		if c := field(n, name); c != nil {
			return c
		}
	}
	return nil
}

func fieldText(n *sitter.Node, name string, src []byte) string {
	return nodeText(field(n, name), src)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if !valid(n) {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); valid(c) {
			out = append(out, c)
		}
	}
	return out
}

func childOfType(n *sitter.Node, types ...string) *sitter.Node {
	for _, c := range namedChildren(n) {
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

func childrenOfType(n *sitter.Node, types ...string) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range namedChildren(n) {
		for _, t := range types {
			if c.Type() == t {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// enclosing returns the nearest proper ancestor whose type is in types.
func enclosing(n *sitter.Node, types map[string]bool) *sitter.Node {
	for p := parentOf(n); p != nil; p = parentOf(p) {
		if types[p.Type()] {
			return p
		}
	}
	return nil
}

func parentOf(n *sitter.Node) *sitter.Node {
	if !valid(n) {
		return nil
	}
	p := n.Parent()
	if !valid(p) {
		return nil
	}
	return p
}

// sameNode compares two handles by position and type; handles obtained
// through different paths are distinct pointers.
func sameNode(a, b *sitter.Node) bool {
	return valid(a) && valid(b) &&
		a.StartByte() == b.StartByte() &&
		a.EndByte() == b.EndByte() &&
		a.Type() == b.Type()
}

// keywords returns the modifier keywords among n's direct children. Named
// "modifier" wrappers and bare keyword tokens are both accepted.
func keywords(n *sitter.Node, src []byte, known map[string]bool) []string {
	if !valid(n) {
		return nil
	}
	var out []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !valid(c) {
			continue
		}
		word := nodeText(c, src)
		if c.Type() == "modifier" || (!c.IsNamed() && known[word]) {
			if known[word] {
				out = append(out, word)
			}
		}
	}
	return out
}

// accessibility folds access keywords into one accessibility name.
func accessibility(words []string) string {
	has := make(map[string]bool, len(words))
	for _, w := range words {
		has[w] = true
	}
	switch {
	case has["protected"] && has["internal"]:
		return "protected internal"
	case has["private"] && has["protected"]:
		return "private protected"
	case has["public"]:
		return "public"
	case has["private"]:
		return "private"
	case has["protected"]:
		return "protected"
	case has["internal"]:
		return "internal"
	}
	return ""
}

// modifierSet renders the accessibility followed by the present flags.
func modifierSet(access string, mods semantic.Modifiers) []string {
	var out []string
	if access != "" {
		out = append(out, access)
	}
	return append(out, mods.Names()...)
}

// elementType guesses the element type of an indexable type.
func elementType(t string) string {
	t = strings.TrimSpace(t)
	if strings.HasSuffix(t, "]") {
		if i := strings.LastIndex(t, "["); i > 0 {
			return strings.TrimSpace(t[:i])
		}
	}
	open, end := strings.Index(t, "<"), strings.LastIndex(t, ">")
	if open > 0 && end > open {
		args := t[open+1 : end]
		if i := strings.LastIndex(args, ","); i >= 0 {
			args = args[i+1:]
		}
		return strings.TrimSpace(args)
	}
	return ""
}

// resolvedType renders t qualified by the model when it resolves, and
// as written otherwise.
func resolvedType(model semantic.Model, t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	if sym, ok := model.LookupType(t); ok {
		return sym.QualifiedName()
	}
	return t
}

// typeReference builds the reference for a type name when it resolves.
func typeReference(model semantic.Model, t string) *ust.Reference {
	sym, ok := model.LookupType(t)
	if !ok {
		return nil
	}
	return symbolReference(sym)
}

func symbolReference(sym *semantic.Symbol) *ust.Reference {
	if sym == nil || (sym.Namespace == "" && sym.Assembly == "") {
		return nil
	}
	return &ust.Reference{Namespace: sym.Namespace, Assembly: sym.Assembly}
}

// fillCall copies the resolved callee into info.
func fillCall(info *ust.CallInfo, model semantic.Model, sym *semantic.Symbol) {
	info.MethodName = sym.Name
	info.SemanticNamespace = sym.Namespace
	info.SemanticClassType = stripNamespace(sym.ContainingType, sym.Namespace)
	info.SemanticMethodSignature = sym.Signature()
	info.SemanticOriginalDefinition = sym.OriginalDefinition()
	info.SemanticReturnType = resolvedType(model, sym.Type)
	info.IsExtension = sym.ReducedFrom != ""
	info.Parameters = symbolParams(model, sym.Parameters)
}

func symbolParams(model semantic.Model, params []semantic.Param) []ust.Parameter {
	if len(params) == 0 {
		return nil
	}
	out := make([]ust.Parameter, 0, len(params))
	for _, p := range params {
		out = append(out, ust.Parameter{Name: p.Name, Type: p.Type, SemanticType: resolvedType(model, p.Type)})
	}
	return out
}
