package languages

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/traverse"
	"github.com/morozRed/ustgen/internal/ust"
)

// JavaParser implements parsing and UST conversion for Java source files
type JavaParser struct{}

// NewJavaParser creates a new Java parser
func NewJavaParser() *JavaParser {
	return &JavaParser{}
}

func (j *JavaParser) Language() string {
	return "java"
}

func (j *JavaParser) Extensions() []string {
	return []string{".java"}
}

func (j *JavaParser) Parse(ctx context.Context, content []byte) (*sitter.Tree, error) {
	return parseWith(ctx, java.GetLanguage(), content)
}

// Declarations collects the package, imports and declared types of one file.
func (j *JavaParser) Declarations(tree *sitter.Tree, content []byte, path, assembly string) *semantic.FileDecls {
	top := tree.RootNode()
	decls := &semantic.FileDecls{Path: path, Language: j.Language(), Namespace: javaPackage(top, content)}
	d := &javaDecls{src: content, assembly: assembly, out: decls}
	d.walk(top, nil)
	decls.Normalize()
	return decls
}

// Transform converts the tree into the file's Root.
func (j *JavaParser) Transform(tree *sitter.Tree, content []byte, model semantic.Model, opts traverse.Options) (*ust.Root, traverse.Stats) {
	model = orEmpty(model)
	top := tree.RootNode()
	m := &javaMapper{src: content, model: model, pkg: javaPackage(top, content)}
	return traverse.New[*sitter.Node](traverse.SitterSource{Content: content}, m, model, opts).Run(top)
}

var javaTypeKinds = map[string]semantic.SymbolKind{
	"class_declaration":           semantic.SymbolClass,
	"record_declaration":          semantic.SymbolRecord,
	"interface_declaration":       semantic.SymbolInterface,
	"annotation_type_declaration": semantic.SymbolInterface,
	"enum_declaration":            semantic.SymbolEnum,
}

var javaTypeNodes = map[string]bool{
	"class_declaration":           true,
	"record_declaration":          true,
	"interface_declaration":       true,
	"annotation_type_declaration": true,
	"enum_declaration":            true,
}

var javaModifierWords = map[string]bool{
	"public": true, "private": true, "protected": true,
	"abstract": true, "static": true, "final": true, "native": true,
	"synchronized": true, "transient": true, "volatile": true,
	"strictfp": true, "default": true, "sealed": true, "non-sealed": true,
}

// javaModifiers reads the modifiers node of a declaration. final maps to
// readonly on variables and to sealed everywhere else.
func javaModifiers(n *sitter.Node, src []byte, variable bool) (string, semantic.Modifiers) {
	mods := childOfType(n, "modifiers")
	words := keywords(mods, src, javaModifierWords)

	var m semantic.Modifiers
	for _, w := range words {
		switch w {
		case "abstract":
			m.Abstract = true
		case "static":
			m.Static = true
		case "native":
			m.Extern = true
		case "sealed":
			m.Sealed = true
		case "final":
			if variable {
				m.Readonly = true
			} else {
				m.Sealed = true
			}
		}
	}
	for _, a := range childrenOfType(mods, "marker_annotation", "annotation") {
		if _, name := splitQualifiedName(fieldText(a, "name", src)); name == "Override" {
			m.Override = true
		}
	}

	access := accessibility(words)
	if access == "" {
		if owner := enclosing(n, javaTypeNodes); owner != nil && owner.Type() == "interface_declaration" {
			access = "public"
		}
	}
	return access, m
}

func javaPackage(top *sitter.Node, src []byte) string {
	pkg := childOfType(top, "package_declaration")
	return nodeText(childOfType(pkg, "scoped_identifier", "identifier"), src)
}

// javaImport renders an import as written, wildcard included.
func javaImport(n *sitter.Node, src []byte) string {
	name := nodeText(childOfType(n, "scoped_identifier", "identifier"), src)
	if name != "" && childOfType(n, "asterisk") != nil {
		name += ".*"
	}
	return name
}

func javaBaseType(n *sitter.Node, src []byte) string {
	if sc := field(n, "superclass"); sc != nil {
		if children := namedChildren(sc); len(children) > 0 {
			return nodeText(children[0], src)
		}
	}
	list := firstField(n, "interfaces")
	if list == nil {
		list = childOfType(n, "super_interfaces", "extends_interfaces")
	}
	if tl := childOfType(list, "type_list"); tl != nil {
		list = tl
	}
	if children := namedChildren(list); len(children) > 0 {
		return nodeText(children[0], src)
	}
	return ""
}

func javaParams(list *sitter.Node, src []byte) []semantic.Param {
	var out []semantic.Param
	for _, p := range namedChildren(list) {
		switch p.Type() {
		case "formal_parameter":
			out = append(out, semantic.Param{Name: fieldText(p, "name", src), Type: fieldText(p, "type", src)})
		case "spread_parameter":
			typ := nodeText(childOfType(p, "type_identifier", "generic_type", "scoped_type_identifier", "integral_type", "floating_point_type", "boolean_type"), src)
			name := fieldText(childOfType(p, "variable_declarator"), "name", src)
			out = append(out, semantic.Param{Name: name, Type: typ + "..."})
		}
	}
	return out
}

type javaDecls struct {
	src      []byte
	assembly string
	out      *semantic.FileDecls
}

func (d *javaDecls) walk(n *sitter.Node, container *semantic.Symbol) {
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "import_declaration":
			if name := javaImport(c, d.src); name != "" {
				d.out.Usings = append(d.out.Usings, name)
			}
			continue
		case "enum_body_declarations":
			d.walk(c, container)
			continue
		}

		if kind, ok := javaTypeKinds[c.Type()]; ok {
			sym := d.symbol(c, fieldText(c, "name", d.src), kind, container, false)
			sym.BaseType = javaBaseType(c, d.src)
			if container != nil {
				container.Members = append(container.Members, sym)
			} else {
				d.out.Types = append(d.out.Types, sym)
			}
			d.walk(field(c, "body"), sym)
			continue
		}
		if container != nil {
			container.Members = append(container.Members, d.members(c, container)...)
		}
	}
}

func (d *javaDecls) symbol(n *sitter.Node, name string, kind semantic.SymbolKind, container *semantic.Symbol, variable bool) *semantic.Symbol {
	access, mods := javaModifiers(n, d.src, variable)
	sym := &semantic.Symbol{
		Name:          name,
		Kind:          kind,
		Namespace:     d.out.Namespace,
		Assembly:      d.assembly,
		Accessibility: access,
		Modifiers:     mods,
	}
	if container != nil {
		sym.ContainingType = container.QualifiedName()
	}
	return sym
}

func (d *javaDecls) members(n *sitter.Node, container *semantic.Symbol) []*semantic.Symbol {
	switch n.Type() {
	case "method_declaration":
		sym := d.symbol(n, fieldText(n, "name", d.src), semantic.SymbolMethod, container, false)
		sym.Type = fieldText(n, "type", d.src)
		sym.Parameters = javaParams(field(n, "parameters"), d.src)
		return []*semantic.Symbol{sym}
	case "constructor_declaration", "compact_constructor_declaration":
		sym := d.symbol(n, container.Name, semantic.SymbolConstructor, container, false)
		sym.Parameters = javaParams(field(n, "parameters"), d.src)
		return []*semantic.Symbol{sym}
	case "field_declaration", "constant_declaration":
		typ := fieldText(n, "type", d.src)
		var out []*semantic.Symbol
		for _, v := range childrenOfType(n, "variable_declarator") {
			sym := d.symbol(n, fieldText(v, "name", d.src), semantic.SymbolField, container, true)
			sym.Type = typ
			out = append(out, sym)
		}
		return out
	case "enum_constant":
		sym := d.symbol(n, fieldText(n, "name", d.src), semantic.SymbolField, container, true)
		sym.Accessibility = "public"
		sym.Modifiers = semantic.Modifiers{Static: true, Readonly: true}
		sym.Type = container.QualifiedName()
		return []*semantic.Symbol{sym}
	}
	return nil
}

// javaLiteral returns the boxed runtime type name and the primitive (or
// String) type of a literal.
func javaLiteral(kind, text string) (runtime, keyword string) {
	lower := strings.ToLower(text)
	switch kind {
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		if strings.HasSuffix(lower, "l") {
			return "Long", "long"
		}
		return "Integer", "int"
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		if strings.HasSuffix(lower, "f") && kind == "decimal_floating_point_literal" {
			return "Float", "float"
		}
		return "Double", "double"
	case "string_literal", "text_block":
		return "String", "String"
	case "character_literal":
		return "Character", "char"
	case "true", "false":
		return "Boolean", "boolean"
	}
	return "", ""
}
