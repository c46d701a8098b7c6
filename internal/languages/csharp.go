package languages

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/traverse"
	"github.com/morozRed/ustgen/internal/ust"
)

// CSharpParser implements parsing and UST conversion for C# source files
type CSharpParser struct{}

// NewCSharpParser creates a new C# parser
func NewCSharpParser() *CSharpParser {
	return &CSharpParser{}
}

func (c *CSharpParser) Language() string {
	return "csharp"
}

func (c *CSharpParser) Extensions() []string {
	return []string{".cs"}
}

func (c *CSharpParser) Parse(ctx context.Context, content []byte) (*sitter.Tree, error) {
	return parseWith(ctx, csharp.GetLanguage(), content)
}

// Declarations collects the namespace, usings and declared types of one file.
func (c *CSharpParser) Declarations(tree *sitter.Tree, content []byte, path, assembly string) *semantic.FileDecls {
	decls := &semantic.FileDecls{Path: path, Language: c.Language()}
	d := &csharpDecls{src: content, assembly: assembly, out: decls}
	d.walk(tree.RootNode(), "", nil)
	decls.Normalize()
	return decls
}

// Transform converts the tree into the file's Root.
func (c *CSharpParser) Transform(tree *sitter.Tree, content []byte, model semantic.Model, opts traverse.Options) (*ust.Root, traverse.Stats) {
	model = orEmpty(model)
	top := tree.RootNode()
	m := &csharpMapper{src: content, model: model, namespace: csharpFileNamespace(top, content)}
	return traverse.New[*sitter.Node](traverse.SitterSource{Content: content}, m, model, opts).Run(top)
}

var csharpTypeKinds = map[string]semantic.SymbolKind{
	"class_declaration":         semantic.SymbolClass,
	"record_declaration":        semantic.SymbolRecord,
	"record_struct_declaration": semantic.SymbolStruct,
	"struct_declaration":        semantic.SymbolStruct,
	"interface_declaration":     semantic.SymbolInterface,
	"enum_declaration":          semantic.SymbolEnum,
}

var csharpTypeNodes = map[string]bool{
	"class_declaration":         true,
	"record_declaration":        true,
	"record_struct_declaration": true,
	"struct_declaration":        true,
	"interface_declaration":     true,
	"enum_declaration":          true,
}

var csharpNamespaceNodes = map[string]bool{
	"namespace_declaration":             true,
	"file_scoped_namespace_declaration": true,
}

var csharpModifierWords = map[string]bool{
	"public": true, "private": true, "protected": true, "internal": true,
	"async": true, "override": true, "abstract": true, "extern": true,
	"sealed": true, "static": true, "virtual": true, "readonly": true,
	"const": true, "new": true, "partial": true, "unsafe": true, "volatile": true,
}

func csharpModifiers(words []string) semantic.Modifiers {
	var m semantic.Modifiers
	for _, w := range words {
		switch w {
		case "async":
			m.Async = true
		case "override":
			m.Override = true
		case "abstract":
			m.Abstract = true
		case "extern":
			m.Extern = true
		case "sealed":
			m.Sealed = true
		case "static":
			m.Static = true
		case "virtual":
			m.Virtual = true
		case "readonly":
			m.Readonly = true
		}
	}
	return m
}

// csharpAccess returns the declared accessibility of n, or the language
// default for its position.
func csharpAccess(n *sitter.Node, words []string) string {
	if a := accessibility(words); a != "" {
		return a
	}
	owner := enclosing(n, csharpTypeNodes)
	switch {
	case owner == nil:
		return "internal"
	case owner.Type() == "interface_declaration":
		return "public"
	default:
		return "private"
	}
}

func csharpBody(n *sitter.Node) *sitter.Node {
	if b := field(n, "body"); b != nil {
		return b
	}
	return childOfType(n, "declaration_list", "enum_member_declaration_list")
}

func csharpBaseType(n *sitter.Node, src []byte) string {
	list := childOfType(n, "base_list")
	for _, c := range namedChildren(list) {
		if c.Type() == "primary_constructor_base_type" {
			if t := firstField(c, "type"); t != nil {
				return nodeText(t, src)
			}
			return nodeText(childOfType(c, "identifier", "qualified_name", "generic_name"), src)
		}
		return nodeText(c, src)
	}
	return ""
}

// csharpUsingName returns the imported namespace or type; aliases resolve
// to their target.
func csharpUsingName(n *sitter.Node, src []byte) string {
	var name string
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "name_equals", "comment":
			continue
		}
		name = nodeText(c, src)
	}
	return name
}

func csharpFileNamespace(top *sitter.Node, src []byte) string {
	if ns := childOfType(top, "file_scoped_namespace_declaration"); ns != nil {
		return fieldText(ns, "name", src)
	}
	return ""
}

// csharpDeclaratorName returns the identifier a variable_declarator declares.
func csharpDeclaratorName(n *sitter.Node) *sitter.Node {
	if name := field(n, "name"); name != nil {
		return name
	}
	return childOfType(n, "identifier")
}

func csharpHasThis(param *sitter.Node, src []byte) bool {
	for i := 0; i < int(param.ChildCount()); i++ {
		c := param.Child(i)
		if valid(c) && c.Type() != "identifier" && nodeText(c, src) == "this" {
			return true
		}
	}
	return false
}

func csharpParams(list *sitter.Node, src []byte) []semantic.Param {
	var out []semantic.Param
	for _, p := range childrenOfType(list, "parameter") {
		out = append(out, semantic.Param{
			Name: fieldText(p, "name", src),
			Type: fieldText(p, "type", src),
			This: csharpHasThis(p, src),
		})
	}
	return out
}

type csharpDecls struct {
	src      []byte
	assembly string
	out      *semantic.FileDecls
}

func (d *csharpDecls) walk(n *sitter.Node, namespace string, container *semantic.Symbol) {
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "using_directive":
			if name := csharpUsingName(c, d.src); name != "" {
				d.out.Usings = append(d.out.Usings, name)
			}
			continue
		case "namespace_declaration":
			ns := qualify(namespace, fieldText(c, "name", d.src))
			d.noteNamespace(ns)
			d.walk(csharpBody(c), ns, nil)
			continue
		case "file_scoped_namespace_declaration":
			// Later siblings belong to this namespace too.
			namespace = qualify(namespace, fieldText(c, "name", d.src))
			d.noteNamespace(namespace)
			d.walk(c, namespace, nil)
			continue
		}

		if kind, ok := csharpTypeKinds[c.Type()]; ok {
			sym := d.typeSymbol(c, kind, namespace, container)
			if container != nil {
				container.Members = append(container.Members, sym)
			} else {
				d.out.Types = append(d.out.Types, sym)
			}
			d.walk(csharpBody(c), namespace, sym)
			continue
		}
		if container != nil {
			container.Members = append(container.Members, d.members(c, namespace, container)...)
		}
	}
}

func (d *csharpDecls) noteNamespace(ns string) {
	if d.out.Namespace == "" {
		d.out.Namespace = ns
	}
}

func (d *csharpDecls) symbol(n *sitter.Node, name string, kind semantic.SymbolKind, namespace string, container *semantic.Symbol) *semantic.Symbol {
	words := keywords(n, d.src, csharpModifierWords)
	sym := &semantic.Symbol{
		Name:          name,
		Kind:          kind,
		Namespace:     namespace,
		Assembly:      d.assembly,
		Accessibility: csharpAccess(n, words),
		Modifiers:     csharpModifiers(words),
	}
	if container != nil {
		sym.ContainingType = container.QualifiedName()
	}
	return sym
}

func (d *csharpDecls) typeSymbol(n *sitter.Node, kind semantic.SymbolKind, namespace string, container *semantic.Symbol) *semantic.Symbol {
	sym := d.symbol(n, fieldText(n, "name", d.src), kind, namespace, container)
	sym.BaseType = csharpBaseType(n, d.src)
	return sym
}

func (d *csharpDecls) members(n *sitter.Node, namespace string, container *semantic.Symbol) []*semantic.Symbol {
	switch n.Type() {
	case "method_declaration":
		sym := d.symbol(n, fieldText(n, "name", d.src), semantic.SymbolMethod, namespace, container)
		sym.Type = nodeText(firstField(n, "returns", "type"), d.src)
		sym.Parameters = csharpParams(field(n, "parameters"), d.src)
		return []*semantic.Symbol{sym}
	case "constructor_declaration":
		sym := d.symbol(n, container.Name, semantic.SymbolConstructor, namespace, container)
		sym.Parameters = csharpParams(field(n, "parameters"), d.src)
		return []*semantic.Symbol{sym}
	case "property_declaration":
		sym := d.symbol(n, fieldText(n, "name", d.src), semantic.SymbolProperty, namespace, container)
		sym.Type = fieldText(n, "type", d.src)
		return []*semantic.Symbol{sym}
	case "field_declaration", "event_field_declaration":
		decl := childOfType(n, "variable_declaration")
		typ := fieldText(decl, "type", d.src)
		var out []*semantic.Symbol
		for _, v := range childrenOfType(decl, "variable_declarator") {
			sym := d.symbol(n, nodeText(csharpDeclaratorName(v), d.src), semantic.SymbolField, namespace, container)
			sym.Type = typ
			out = append(out, sym)
		}
		return out
	case "enum_member_declaration":
		sym := d.symbol(n, fieldText(n, "name", d.src), semantic.SymbolField, namespace, container)
		sym.Accessibility = "public"
		sym.Modifiers = semantic.Modifiers{Static: true}
		sym.Type = container.QualifiedName()
		return []*semantic.Symbol{sym}
	}
	return nil
}

// csharpLiteral returns the runtime type name and the keyword type of a
// literal.
func csharpLiteral(kind, text string) (runtime, keyword string) {
	switch kind {
	case "integer_literal":
		switch lower := strings.ToLower(text); {
		case strings.HasSuffix(lower, "ul"), strings.HasSuffix(lower, "lu"):
			return "UInt64", "ulong"
		case strings.HasSuffix(lower, "l"):
			return "Int64", "long"
		case strings.HasSuffix(lower, "u"):
			return "UInt32", "uint"
		}
		return "Int32", "int"
	case "real_literal":
		switch lower := strings.ToLower(text); {
		case strings.HasSuffix(lower, "f"):
			return "Single", "float"
		case strings.HasSuffix(lower, "m"):
			return "Decimal", "decimal"
		}
		return "Double", "double"
	case "string_literal", "verbatim_string_literal", "raw_string_literal":
		return "String", "string"
	case "character_literal":
		return "Char", "char"
	case "boolean_literal":
		return "Boolean", "bool"
	}
	return "", ""
}
