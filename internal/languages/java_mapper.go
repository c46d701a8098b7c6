package languages

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/ust"
)

var javaKinds = map[string]ust.Kind{
	"import_declaration":              ust.KindUsingDirective,
	"package_declaration":             ust.KindNamespaceDeclaration,
	"class_declaration":               ust.KindClassDeclaration,
	"record_declaration":              ust.KindClassDeclaration,
	"interface_declaration":           ust.KindInterfaceDeclaration,
	"annotation_type_declaration":     ust.KindInterfaceDeclaration,
	"enum_declaration":                ust.KindEnumDeclaration,
	"method_declaration":              ust.KindMethodDeclaration,
	"constructor_declaration":         ust.KindConstructorDeclaration,
	"compact_constructor_declaration": ust.KindConstructorDeclaration,
	"method_invocation":               ust.KindInvocationExpression,
	"object_creation_expression":      ust.KindObjectCreationExpression,
	"decimal_integer_literal":         ust.KindLiteralExpression,
	"hex_integer_literal":             ust.KindLiteralExpression,
	"octal_integer_literal":           ust.KindLiteralExpression,
	"binary_integer_literal":          ust.KindLiteralExpression,
	"decimal_floating_point_literal":  ust.KindLiteralExpression,
	"hex_floating_point_literal":      ust.KindLiteralExpression,
	"string_literal":                  ust.KindLiteralExpression,
	"text_block":                      ust.KindLiteralExpression,
	"character_literal":               ust.KindLiteralExpression,
	"true":                            ust.KindLiteralExpression,
	"false":                           ust.KindLiteralExpression,
	"null_literal":                    ust.KindLiteralExpression,
	"marker_annotation":               ust.KindAnnotation,
	"annotation":                      ust.KindAnnotation,
	"array_access":                    ust.KindElementAccessExpression,
	"field_access":                    ust.KindMemberAccessExpression,
	"lambda_expression":               ust.KindLambdaExpression,
	"field_declaration":               ust.KindFieldDeclaration,
	"constant_declaration":            ust.KindFieldDeclaration,
}

// javaMapper maps one Java file. Java has no call-site argument nodes
// and no properties; those kinds never appear in its output.
type javaMapper struct {
	src   []byte
	model semantic.Model
	pkg   string
}

func (m *javaMapper) Classify(n *sitter.Node) (ust.Kind, bool) {
	switch n.Type() {
	case "identifier", "type_identifier":
		if m.declarationKind(n) == "" {
			return 0, false
		}
		return ust.KindDeclarationNode, true
	}
	k, ok := javaKinds[n.Type()]
	return k, ok
}

func (m *javaMapper) Map(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	kind, ok := m.Classify(n)
	if !ok {
		return nil, nil, fmt.Errorf("java: no mapping for %s", n.Type())
	}
	switch kind {
	case ust.KindUsingDirective:
		u := ust.NewUsingDirective()
		u.Identifier = javaImport(n, m.src)
		return u, nil, nil
	case ust.KindNamespaceDeclaration:
		ns := ust.NewNamespaceDeclaration()
		ns.Identifier = nodeText(childOfType(n, "scoped_identifier", "identifier"), m.src)
		return ns, nil, nil
	case ust.KindClassDeclaration, ust.KindInterfaceDeclaration:
		return m.typeDecl(n, kind)
	case ust.KindEnumDeclaration:
		return m.enumDecl(n)
	case ust.KindMethodDeclaration:
		return m.method(n)
	case ust.KindConstructorDeclaration:
		return m.constructor(n)
	case ust.KindInvocationExpression:
		return m.invocation(n)
	case ust.KindObjectCreationExpression:
		return m.objectCreation(n)
	case ust.KindLiteralExpression:
		lit := ust.NewLiteralExpression()
		lit.Identifier = nodeText(n, m.src)
		lit.LiteralType, lit.SemanticType = javaLiteral(n.Type(), lit.Identifier)
		return lit, nil, nil
	case ust.KindAnnotation:
		return m.annotation(n)
	case ust.KindDeclarationNode:
		return m.declaration(n)
	case ust.KindElementAccessExpression:
		return m.arrayAccess(n)
	case ust.KindMemberAccessExpression:
		return m.fieldAccess(n)
	case ust.KindLambdaExpression:
		return m.lambda(n)
	case ust.KindFieldDeclaration:
		return m.fieldDecl(n)
	}
	return nil, nil, fmt.Errorf("java: kind %s has no mapper", kind)
}

func (m *javaMapper) declarationKind(n *sitter.Node) string {
	p := parentOf(n)
	if p == nil {
		return ""
	}
	switch {
	case n.Type() == "type_identifier":
		if p.Type() == "method_declaration" || p.Type() == "object_creation_expression" {
			return "type"
		}
	case p.Type() == "variable_declarator":
		if sameNode(field(p, "name"), n) {
			return "variable"
		}
	case p.Type() == "formal_parameter", p.Type() == "catch_formal_parameter":
		if sameNode(field(p, "name"), n) {
			return "parameter"
		}
	}
	return ""
}

func (m *javaMapper) typePath(n *sitter.Node) string {
	var parts []string
	for p := parentOf(n); p != nil; p = parentOf(p) {
		if javaTypeNodes[p.Type()] {
			parts = append([]string{fieldText(p, "name", m.src)}, parts...)
		}
	}
	return qualify(parts...)
}

func (m *javaMapper) containingType(n *sitter.Node) string {
	path := m.typePath(n)
	if path == "" {
		return ""
	}
	return qualify(m.pkg, path)
}

func (m *javaMapper) typeDecl(n *sitter.Node, kind ust.Kind) (ust.Node, *ust.Reference, error) {
	name := fieldText(n, "name", m.src)
	info := ust.TypeInfo{SemanticNamespace: m.pkg, BaseType: javaBaseType(n, m.src)}

	var ref *ust.Reference
	if sym, ok := m.model.LookupType(qualify(m.pkg, m.typePath(n), name)); ok {
		info.SemanticNamespace = sym.Namespace
		if sym.BaseType != "" {
			info.BaseType = resolvedType(m.model, sym.BaseType)
		}
		ref = symbolReference(sym)
	}

	if kind == ust.KindInterfaceDeclaration {
		node := ust.NewInterfaceDeclaration()
		node.Identifier, node.TypeInfo = name, info
		return node, ref, nil
	}
	node := ust.NewClassDeclaration()
	node.Identifier, node.TypeInfo = name, info
	return node, ref, nil
}

func (m *javaMapper) enumDecl(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewEnumDeclaration()
	node.Identifier = fieldText(n, "name", m.src)
	node.SemanticNamespace = m.pkg
	for _, c := range childrenOfType(field(n, "body"), "enum_constant") {
		node.Members = append(node.Members, fieldText(c, "name", m.src))
	}
	var ref *ust.Reference
	if sym, ok := m.model.LookupType(qualify(m.pkg, m.typePath(n), node.Identifier)); ok {
		node.SemanticNamespace = sym.Namespace
		ref = symbolReference(sym)
	}
	return node, ref, nil
}

func (m *javaMapper) params(list *sitter.Node) []ust.Parameter {
	params := javaParams(list, m.src)
	if len(params) == 0 {
		return nil
	}
	return symbolParams(m.model, params)
}

func (m *javaMapper) member(n *sitter.Node, name string, arity int) (*semantic.Symbol, bool) {
	owner := m.containingType(n)
	if owner == "" || name == "" {
		return nil, false
	}
	return m.model.LookupMember(owner, name, arity)
}

func (m *javaMapper) modifiers(n *sitter.Node, sym *semantic.Symbol, variable bool) []string {
	if sym != nil {
		return modifierSet(sym.Accessibility, sym.Modifiers)
	}
	return modifierSet(javaModifiers(n, m.src, variable))
}

func (m *javaMapper) method(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewMethodDeclaration()
	node.Identifier = fieldText(n, "name", m.src)
	node.Parameters = m.params(field(n, "parameters"))
	node.ReturnType = fieldText(n, "type", m.src)
	node.SemanticReturnType = resolvedType(m.model, node.ReturnType)

	sym, _ := m.member(n, node.Identifier, len(node.Parameters))
	if sym != nil && sym.Type != "" {
		node.SemanticReturnType = resolvedType(m.model, sym.Type)
	}
	node.Modifiers = m.modifiers(n, sym, false)
	return node, nil, nil
}

func (m *javaMapper) constructor(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewConstructorDeclaration()
	node.Identifier = fieldText(n, "name", m.src)
	node.Parameters = m.params(field(n, "parameters"))

	sym, ok := m.member(n, node.Identifier, len(node.Parameters))
	if !ok || sym.Kind != semantic.SymbolConstructor {
		sym = nil
	}
	node.Modifiers = m.modifiers(n, sym, false)
	return node, nil, nil
}

func (m *javaMapper) fieldDecl(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewFieldDeclaration()
	node.FieldType = fieldText(n, "type", m.src)
	var names []string
	for _, v := range childrenOfType(n, "variable_declarator") {
		names = append(names, fieldText(v, "name", m.src))
	}
	if len(names) == 0 {
		return nil, nil, missing(n, "variable_declarator")
	}
	node.Identifier = strings.Join(names, ", ")
	node.Modifiers = m.modifiers(n, nil, true)
	return node, typeReference(m.model, node.FieldType), nil
}

func (m *javaMapper) arguments(n *sitter.Node) []*sitter.Node {
	return namedChildren(field(n, "arguments"))
}

// resolveCall binds a call to a member of the receiver's type or to a
// static member of a named type.
func (m *javaMapper) resolveCall(at *sitter.Node, name string, receiver *sitter.Node, arity int) (*semantic.Symbol, bool) {
	if receiver == nil {
		return m.member(at, name, arity)
	}
	if owner := m.typeOf(receiver, 0); owner != "" {
		if sym, ok := m.model.LookupMember(owner, name, arity); ok {
			return sym, true
		}
	}
	return m.model.LookupMember(nodeText(receiver, m.src), name, arity)
}

func (m *javaMapper) invocation(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	name := fieldText(n, "name", m.src)
	if name == "" {
		return nil, nil, missing(n, "name")
	}
	node := ust.NewInvocationExpression()
	node.Identifier = flatText(n, m.src)
	node.MethodName = name

	receiver := field(n, "object")
	node.Caller = nodeText(receiver, m.src)
	args := m.arguments(n)

	if sym, ok := m.resolveCall(n, name, receiver, len(args)); ok {
		fillCall(&node.CallInfo, m.model, sym)
		return node, symbolReference(sym), nil
	}
	node.Parameters = m.argumentParams(args)
	return node, nil, nil
}

func (m *javaMapper) argumentParams(args []*sitter.Node) []ust.Parameter {
	if len(args) == 0 {
		return nil
	}
	out := make([]ust.Parameter, 0, len(args))
	for _, arg := range args {
		typ := m.typeOf(arg, 0)
		out = append(out, ust.Parameter{Type: typ, SemanticType: resolvedType(m.model, typ)})
	}
	return out
}

func (m *javaMapper) objectCreation(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	typeName := fieldText(n, "type", m.src)
	if typeName == "" {
		return nil, nil, missing(n, "type")
	}
	node := ust.NewObjectCreationExpression()
	node.Identifier = flatText(n, m.src)
	_, node.MethodName = splitQualifiedName(semantic.BareTypeName(typeName))
	args := m.arguments(n)

	sym, ok := m.model.LookupType(typeName)
	if !ok {
		node.Parameters = m.argumentParams(args)
		return node, nil, nil
	}
	if ctor, ok := m.model.LookupMember(sym.QualifiedName(), sym.Name, len(args)); ok && ctor.Kind == semantic.SymbolConstructor {
		fillCall(&node.CallInfo, m.model, ctor)
	} else {
		node.MethodName = sym.Name
		node.SemanticNamespace = sym.Namespace
		node.SemanticClassType = stripNamespace(sym.QualifiedName(), sym.Namespace)
		node.Parameters = m.argumentParams(args)
		if len(args) == 0 {
			node.SemanticMethodSignature = sym.QualifiedName() + "." + sym.Name + "()"
			node.SemanticOriginalDefinition = node.SemanticMethodSignature
		}
	}
	node.SemanticReturnType = sym.QualifiedName()
	return node, symbolReference(sym), nil
}

func (m *javaMapper) annotation(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewAnnotation()
	node.Identifier = fieldText(n, "name", m.src)
	sym, ok := m.model.LookupType(node.Identifier)
	if !ok {
		return node, nil, nil
	}
	node.SemanticNamespace = sym.Namespace
	node.SemanticClassType = stripNamespace(sym.QualifiedName(), sym.Namespace)
	return node, symbolReference(sym), nil
}

func (m *javaMapper) declaration(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewDeclarationNode()
	node.Identifier = nodeText(n, m.src)
	node.DeclarationKind = m.declarationKind(n)

	var typ string
	switch p := parentOf(n); node.DeclarationKind {
	case "variable":
		typ = m.declaredType(parentOf(p), p, 0)
	case "parameter":
		typ = fieldText(p, "type", m.src)
	default:
		typ = node.Identifier
	}
	node.SemanticType = resolvedType(m.model, typ)
	return node, typeReference(m.model, typ), nil
}

func (m *javaMapper) arrayAccess(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewElementAccessExpression()
	node.Identifier = flatText(n, m.src)

	array := m.typeOf(field(n, "array"), 0)
	elem := elementType(array)
	node.SemanticType = resolvedType(m.model, elem)
	if ref := typeReference(m.model, elem); ref != nil {
		return node, ref, nil
	}
	return node, typeReference(m.model, array), nil
}

func (m *javaMapper) fieldAccess(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewMemberAccessExpression()
	node.Identifier = flatText(n, m.src)
	node.Member = fieldText(n, "field", m.src)
	object := field(n, "object")
	node.Expression = flatText(object, m.src)

	owner := m.typeOf(object, 0)
	if owner == "" {
		owner = node.Expression
	}
	if sym, ok := m.model.LookupMember(owner, node.Member, -1); ok {
		node.SemanticType = resolvedType(m.model, sym.Type)
	}
	return node, nil, nil
}

func (m *javaMapper) lambda(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewLambdaExpression()
	node.Identifier = flatText(n, m.src)

	params := field(n, "parameters")
	switch {
	case params == nil:
	case params.Type() == "formal_parameters":
		node.Parameters = m.params(params)
	case params.Type() == "inferred_parameters":
		for _, id := range childrenOfType(params, "identifier") {
			node.Parameters = append(node.Parameters, ust.Parameter{Name: nodeText(id, m.src)})
		}
	default:
		node.Parameters = []ust.Parameter{{Name: nodeText(params, m.src)}}
	}
	return node, nil, nil
}

// declaredType returns the type a declaration gives declarator, inferring
// `var` from the initializer.
func (m *javaMapper) declaredType(decl, declarator *sitter.Node, depth int) string {
	typ := fieldText(decl, "type", m.src)
	if typ != "var" {
		return typ
	}
	return m.typeOf(field(declarator, "value"), depth+1)
}

func (m *javaMapper) typeOf(expr *sitter.Node, depth int) string {
	if !valid(expr) || depth > maxInference {
		return ""
	}
	switch t := expr.Type(); t {
	case "identifier":
		return m.localType(expr, nodeText(expr, m.src), depth)
	case "this":
		return m.containingType(expr)
	case "super":
		if sym, ok := m.model.LookupType(m.containingType(expr)); ok {
			return sym.BaseType
		}
		return ""
	case "object_creation_expression", "cast_expression":
		return fieldText(expr, "type", m.src)
	case "parenthesized_expression":
		children := namedChildren(expr)
		if len(children) == 1 {
			return m.typeOf(children[0], depth+1)
		}
	case "field_access":
		object := field(expr, "object")
		owner := m.typeOf(object, depth+1)
		if owner == "" {
			owner = nodeText(object, m.src)
		}
		if sym, ok := m.model.LookupMember(owner, fieldText(expr, "field", m.src), -1); ok {
			return sym.Type
		}
	case "method_invocation":
		name := fieldText(expr, "name", m.src)
		if sym, ok := m.resolveCall(expr, name, field(expr, "object"), len(m.arguments(expr))); ok {
			return sym.Type
		}
	case "array_access":
		return elementType(m.typeOf(field(expr, "array"), depth+1))
	default:
		if _, keyword := javaLiteral(t, nodeText(expr, m.src)); keyword != "" {
			return keyword
		}
	}
	return ""
}

func (m *javaMapper) localType(at *sitter.Node, name string, depth int) string {
	for a := parentOf(at); a != nil; a = parentOf(a) {
		for _, c := range namedChildren(a) {
			if t := m.declaredIn(c, at, name, depth); t != "" {
				return t
			}
		}
	}
	return ""
}

func (m *javaMapper) declaredIn(c, at *sitter.Node, name string, depth int) string {
	switch c.Type() {
	case "local_variable_declaration":
		if c.StartByte() > at.StartByte() {
			return ""
		}
		fallthrough
	case "field_declaration", "constant_declaration":
		for _, v := range childrenOfType(c, "variable_declarator") {
			if fieldText(v, "name", m.src) == name {
				return m.declaredType(c, v, depth)
			}
		}
	case "formal_parameters":
		for _, p := range javaParams(c, m.src) {
			if p.Name == name {
				return p.Type
			}
		}
	case "enhanced_for_statement", "resource":
		if fieldText(c, "name", m.src) == name {
			return fieldText(c, "type", m.src)
		}
	}
	return ""
}
