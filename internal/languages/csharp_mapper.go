package languages

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/ust"
)

// maxInference bounds how far typeOf follows declarations.
const maxInference = 8

var csharpKinds = map[string]ust.Kind{
	"using_directive":                     ust.KindUsingDirective,
	"namespace_declaration":               ust.KindNamespaceDeclaration,
	"file_scoped_namespace_declaration":   ust.KindNamespaceDeclaration,
	"class_declaration":                   ust.KindClassDeclaration,
	"record_declaration":                  ust.KindClassDeclaration,
	"interface_declaration":               ust.KindInterfaceDeclaration,
	"struct_declaration":                  ust.KindStructDeclaration,
	"record_struct_declaration":           ust.KindStructDeclaration,
	"enum_declaration":                    ust.KindEnumDeclaration,
	"method_declaration":                  ust.KindMethodDeclaration,
	"constructor_declaration":             ust.KindConstructorDeclaration,
	"invocation_expression":               ust.KindInvocationExpression,
	"object_creation_expression":          ust.KindObjectCreationExpression,
	"implicit_object_creation_expression": ust.KindObjectCreationExpression,
	"argument":                            ust.KindArgument,
	"integer_literal":                     ust.KindLiteralExpression,
	"real_literal":                        ust.KindLiteralExpression,
	"string_literal":                      ust.KindLiteralExpression,
	"verbatim_string_literal":             ust.KindLiteralExpression,
	"raw_string_literal":                  ust.KindLiteralExpression,
	"character_literal":                   ust.KindLiteralExpression,
	"boolean_literal":                     ust.KindLiteralExpression,
	"null_literal":                        ust.KindLiteralExpression,
	"attribute":                           ust.KindAnnotation,
	"element_access_expression":           ust.KindElementAccessExpression,
	"member_access_expression":            ust.KindMemberAccessExpression,
	"lambda_expression":                   ust.KindLambdaExpression,
	"anonymous_method_expression":         ust.KindLambdaExpression,
	"property_declaration":                ust.KindPropertyDeclaration,
	"field_declaration":                   ust.KindFieldDeclaration,
}

// csharpMapper maps one file's concrete nodes. Semantic facts come from
// model; anything it cannot resolve falls back to the syntax.
type csharpMapper struct {
	src       []byte
	model     semantic.Model
	namespace string // file-scoped namespace
}

func (m *csharpMapper) Classify(n *sitter.Node) (ust.Kind, bool) {
	if n.Type() == "identifier" {
		if m.declarationKind(n) == "" {
			return 0, false
		}
		return ust.KindDeclarationNode, true
	}
	k, ok := csharpKinds[n.Type()]
	return k, ok
}

func (m *csharpMapper) Map(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	kind, ok := m.Classify(n)
	if !ok {
		return nil, nil, fmt.Errorf("csharp: no mapping for %s", n.Type())
	}
	switch kind {
	case ust.KindUsingDirective:
		u := ust.NewUsingDirective()
		u.Identifier = csharpUsingName(n, m.src)
		return u, nil, nil
	case ust.KindNamespaceDeclaration:
		ns := ust.NewNamespaceDeclaration()
		ns.Identifier = fieldText(n, "name", m.src)
		return ns, nil, nil
	case ust.KindClassDeclaration, ust.KindInterfaceDeclaration, ust.KindStructDeclaration:
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
	case ust.KindArgument:
		return m.argument(n)
	case ust.KindLiteralExpression:
		lit := ust.NewLiteralExpression()
		lit.Identifier = nodeText(n, m.src)
		lit.LiteralType, lit.SemanticType = csharpLiteral(n.Type(), lit.Identifier)
		return lit, nil, nil
	case ust.KindAnnotation:
		return m.attribute(n)
	case ust.KindDeclarationNode:
		return m.declaration(n)
	case ust.KindElementAccessExpression:
		return m.elementAccess(n)
	case ust.KindMemberAccessExpression:
		return m.memberAccess(n)
	case ust.KindLambdaExpression:
		return m.lambda(n)
	case ust.KindPropertyDeclaration:
		return m.property(n)
	case ust.KindFieldDeclaration:
		return m.fieldDecl(n)
	}
	return nil, nil, fmt.Errorf("csharp: kind %s has no mapper", kind)
}

// declarationKind reports which declared identifier n is, or "" when n is
// a plain use.
func (m *csharpMapper) declarationKind(n *sitter.Node) string {
	p := parentOf(n)
	if p == nil {
		return ""
	}
	switch p.Type() {
	case "variable_declarator":
		if sameNode(csharpDeclaratorName(p), n) {
			return "variable"
		}
	case "parameter":
		if sameNode(field(p, "name"), n) {
			return "parameter"
		}
	case "method_declaration", "class_declaration":
		if !sameNode(field(p, "name"), n) {
			return "type"
		}
	case "object_creation_expression":
		return "type"
	}
	return ""
}

func (m *csharpMapper) namespaceOf(n *sitter.Node) string {
	var parts []string
	for p := parentOf(n); p != nil; p = parentOf(p) {
		if csharpNamespaceNodes[p.Type()] {
			parts = append([]string{fieldText(p, "name", m.src)}, parts...)
		}
	}
	if len(parts) == 0 {
		return m.namespace
	}
	return qualify(parts...)
}

// typePath lists the names of the types enclosing n, outermost first.
func (m *csharpMapper) typePath(n *sitter.Node) string {
	var parts []string
	for p := parentOf(n); p != nil; p = parentOf(p) {
		if csharpTypeNodes[p.Type()] {
			parts = append([]string{fieldText(p, "name", m.src)}, parts...)
		}
	}
	return qualify(parts...)
}

// containingType is the qualified name of the type n is declared in.
func (m *csharpMapper) containingType(n *sitter.Node) string {
	path := m.typePath(n)
	if path == "" {
		return ""
	}
	return qualify(m.namespaceOf(n), path)
}

func (m *csharpMapper) typeDecl(n *sitter.Node, kind ust.Kind) (ust.Node, *ust.Reference, error) {
	name := fieldText(n, "name", m.src)
	namespace := m.namespaceOf(n)
	info := ust.TypeInfo{SemanticNamespace: namespace, BaseType: csharpBaseType(n, m.src)}

	var ref *ust.Reference
	if sym, ok := m.model.LookupType(qualify(namespace, m.typePath(n), name)); ok {
		info.SemanticNamespace = sym.Namespace
		if sym.BaseType != "" {
			info.BaseType = resolvedType(m.model, sym.BaseType)
		}
		ref = symbolReference(sym)
	}

	switch kind {
	case ust.KindInterfaceDeclaration:
		node := ust.NewInterfaceDeclaration()
		node.Identifier, node.TypeInfo = name, info
		return node, ref, nil
	case ust.KindStructDeclaration:
		node := ust.NewStructDeclaration()
		node.Identifier, node.TypeInfo = name, info
		return node, ref, nil
	}
	node := ust.NewClassDeclaration()
	node.Identifier, node.TypeInfo = name, info
	return node, ref, nil
}

func (m *csharpMapper) enumDecl(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewEnumDeclaration()
	node.Identifier = fieldText(n, "name", m.src)
	node.SemanticNamespace = m.namespaceOf(n)
	for _, member := range childrenOfType(csharpBody(n), "enum_member_declaration") {
		node.Members = append(node.Members, fieldText(member, "name", m.src))
	}

	var ref *ust.Reference
	if sym, ok := m.model.LookupType(qualify(node.SemanticNamespace, m.typePath(n), node.Identifier)); ok {
		node.SemanticNamespace = sym.Namespace
		ref = symbolReference(sym)
	}
	return node, ref, nil
}

func (m *csharpMapper) params(list *sitter.Node) []ust.Parameter {
	params := csharpParams(list, m.src)
	if len(params) == 0 {
		return nil
	}
	return symbolParams(m.model, params)
}

// member resolves the declared symbol of a member of the enclosing type.
func (m *csharpMapper) member(n *sitter.Node, name string, arity int) (*semantic.Symbol, bool) {
	owner := m.containingType(n)
	if owner == "" || name == "" {
		return nil, false
	}
	return m.model.LookupMember(owner, name, arity)
}

func (m *csharpMapper) modifiers(n *sitter.Node, sym *semantic.Symbol) []string {
	if sym != nil {
		return modifierSet(sym.Accessibility, sym.Modifiers)
	}
	words := keywords(n, m.src, csharpModifierWords)
	return modifierSet(csharpAccess(n, words), csharpModifiers(words))
}

func (m *csharpMapper) method(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewMethodDeclaration()
	node.Identifier = fieldText(n, "name", m.src)
	node.Parameters = m.params(field(n, "parameters"))
	node.ReturnType = nodeText(firstField(n, "returns", "type"), m.src)
	node.SemanticReturnType = resolvedType(m.model, node.ReturnType)

	sym, _ := m.member(n, node.Identifier, len(node.Parameters))
	if sym != nil && sym.Type != "" {
		node.SemanticReturnType = resolvedType(m.model, sym.Type)
	}
	node.Modifiers = m.modifiers(n, sym)
	return node, nil, nil
}

func (m *csharpMapper) constructor(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewConstructorDeclaration()
	node.Identifier = fieldText(n, "name", m.src)
	node.Parameters = m.params(field(n, "parameters"))

	sym, ok := m.member(n, node.Identifier, len(node.Parameters))
	if !ok || sym.Kind != semantic.SymbolConstructor {
		sym = nil
	}
	node.Modifiers = m.modifiers(n, sym)
	return node, nil, nil
}

func (m *csharpMapper) property(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewPropertyDeclaration()
	node.Identifier = fieldText(n, "name", m.src)
	node.PropertyType = fieldText(n, "type", m.src)
	node.SemanticType = resolvedType(m.model, node.PropertyType)

	sym, _ := m.member(n, node.Identifier, -1)
	node.Modifiers = m.modifiers(n, sym)
	return node, typeReference(m.model, node.PropertyType), nil
}

func (m *csharpMapper) fieldDecl(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	decl := childOfType(n, "variable_declaration")
	if decl == nil {
		return nil, nil, missing(n, "variable_declaration")
	}
	node := ust.NewFieldDeclaration()
	node.FieldType = fieldText(decl, "type", m.src)
	var names []string
	for _, v := range childrenOfType(decl, "variable_declarator") {
		names = append(names, nodeText(csharpDeclaratorName(v), m.src))
	}
	node.Identifier = strings.Join(names, ", ")
	node.Modifiers = m.modifiers(n, nil)
	return node, nil, nil
}

// callee splits a call target into the method name and receiver.
func (m *csharpMapper) callee(fn *sitter.Node) (string, *sitter.Node) {
	switch fn.Type() {
	case "member_access_expression":
		return m.simpleName(field(fn, "name")), field(fn, "expression")
	case "identifier", "generic_name":
		return m.simpleName(fn), nil
	case "conditional_access_expression":
		if binding := childOfType(fn, "member_binding_expression"); binding != nil {
			return m.simpleName(field(binding, "name")), field(fn, "condition")
		}
	}
	return flatText(fn, m.src), nil
}

func (m *csharpMapper) simpleName(n *sitter.Node) string {
	if valid(n) && n.Type() == "generic_name" {
		if id := childOfType(n, "identifier"); id != nil {
			return nodeText(id, m.src)
		}
	}
	return nodeText(n, m.src)
}

func (m *csharpMapper) arguments(n *sitter.Node) []*sitter.Node {
	return childrenOfType(field(n, "arguments"), "argument")
}

// resolveCall finds the method a call site binds to: a member of the
// receiver's type, a static member of a named type, or an extension.
func (m *csharpMapper) resolveCall(at *sitter.Node, name string, receiver *sitter.Node, arity int) (*semantic.Symbol, bool) {
	if receiver == nil {
		return m.member(at, name, arity)
	}
	owner := m.typeOf(receiver, 0)
	if owner != "" {
		if sym, ok := m.model.LookupMember(owner, name, arity); ok {
			return sym, true
		}
	}
	if sym, ok := m.model.LookupMember(nodeText(receiver, m.src), name, arity); ok {
		return sym, true
	}
	return m.model.LookupExtension(name, arity)
}

func (m *csharpMapper) invocation(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	fn := field(n, "function")
	if fn == nil {
		return nil, nil, missing(n, "function")
	}
	node := ust.NewInvocationExpression()
	node.Identifier = flatText(n, m.src)

	name, receiver := m.callee(fn)
	args := m.arguments(n)
	node.MethodName = name
	node.Caller = nodeText(receiver, m.src)

	if sym, ok := m.resolveCall(n, name, receiver, len(args)); ok {
		fillCall(&node.CallInfo, m.model, sym)
		return node, symbolReference(sym), nil
	}
	node.Parameters = m.argumentParams(args)
	return node, nil, nil
}

func (m *csharpMapper) objectCreation(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewObjectCreationExpression()
	node.Identifier = flatText(n, m.src)
	args := m.arguments(n)

	typeName := fieldText(n, "type", m.src)
	if typeName == "" {
		typeName = m.targetType(n)
	}
	_, node.MethodName = splitQualifiedName(semantic.BareTypeName(typeName))

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

// targetType recovers the type of a target-typed `new()` from the
// declaration it initializes.
func (m *csharpMapper) targetType(n *sitter.Node) string {
	for p := parentOf(n); p != nil; p = parentOf(p) {
		if p.Type() == "variable_declaration" {
			return fieldText(p, "type", m.src)
		}
		if strings.HasSuffix(p.Type(), "_statement") || p.Type() == "block" {
			return ""
		}
	}
	return ""
}

func (m *csharpMapper) argumentExpr(arg *sitter.Node) *sitter.Node {
	if e := field(arg, "expression"); e != nil {
		return e
	}
	for _, c := range namedChildren(arg) {
		if c.Type() != "name_colon" {
			return c
		}
	}
	return nil
}

func (m *csharpMapper) argumentParams(args []*sitter.Node) []ust.Parameter {
	if len(args) == 0 {
		return nil
	}
	out := make([]ust.Parameter, 0, len(args))
	for _, arg := range args {
		p := ust.Parameter{}
		if nc := childOfType(arg, "name_colon"); nc != nil {
			p.Name = strings.TrimSpace(strings.TrimSuffix(nodeText(nc, m.src), ":"))
		}
		p.Type = m.typeOf(m.argumentExpr(arg), 0)
		p.SemanticType = resolvedType(m.model, p.Type)
		out = append(out, p)
	}
	return out
}

func (m *csharpMapper) argument(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewArgument()
	node.Identifier = flatText(n, m.src)
	node.SemanticType = resolvedType(m.model, m.typeOf(m.argumentExpr(n), 0))
	return node, nil, nil
}

func (m *csharpMapper) attribute(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewAnnotation()
	node.Identifier = fieldText(n, "name", m.src)
	if node.Identifier == "" {
		node.Identifier = nodeText(childOfType(n, "identifier", "qualified_name", "generic_name"), m.src)
	}

	sym, ok := m.model.LookupType(node.Identifier)
	if !ok && !strings.HasSuffix(node.Identifier, "Attribute") {
		sym, ok = m.model.LookupType(node.Identifier + "Attribute")
	}
	if !ok {
		return node, nil, nil
	}
	node.SemanticNamespace = sym.Namespace
	node.SemanticClassType = stripNamespace(sym.QualifiedName(), sym.Namespace)
	return node, symbolReference(sym), nil
}

func (m *csharpMapper) declaration(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewDeclarationNode()
	node.Identifier = nodeText(n, m.src)
	node.DeclarationKind = m.declarationKind(n)

	var typ string
	switch p := parentOf(n); node.DeclarationKind {
	case "variable":
		typ = m.declaredType(parentOf(p), p)
	case "parameter":
		typ = fieldText(p, "type", m.src)
	default:
		typ = node.Identifier
	}
	node.SemanticType = resolvedType(m.model, typ)
	return node, typeReference(m.model, typ), nil
}

func (m *csharpMapper) elementAccess(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewElementAccessExpression()
	node.Identifier = flatText(n, m.src)

	collection := m.typeOf(field(n, "expression"), 0)
	elem := elementType(collection)
	node.SemanticType = resolvedType(m.model, elem)
	if ref := typeReference(m.model, elem); ref != nil {
		return node, ref, nil
	}
	return node, typeReference(m.model, collection), nil
}

func (m *csharpMapper) memberAccess(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewMemberAccessExpression()
	node.Identifier = flatText(n, m.src)
	node.Member = m.simpleName(field(n, "name"))
	expr := field(n, "expression")
	node.Expression = flatText(expr, m.src)

	owner := m.typeOf(expr, 0)
	if owner == "" {
		owner = node.Expression
	}
	if sym, ok := m.model.LookupMember(owner, node.Member, -1); ok {
		node.SemanticType = resolvedType(m.model, sym.Type)
	}
	return node, nil, nil
}

func (m *csharpMapper) lambda(n *sitter.Node) (ust.Node, *ust.Reference, error) {
	node := ust.NewLambdaExpression()
	node.Identifier = flatText(n, m.src)

	params := field(n, "parameters")
	if params == nil {
		params = childOfType(n, "parameter_list")
	}
	switch {
	case params == nil:
	case params.Type() == "parameter_list":
		node.Parameters = m.params(params)
	default:
		node.Parameters = []ust.Parameter{{Name: nodeText(params, m.src)}}
	}
	return node, nil, nil
}

// declaredType returns the type a variable_declaration gives declarator,
// inferring `var` from the initializer.
func (m *csharpMapper) declaredType(decl, declarator *sitter.Node) string {
	typ := fieldText(decl, "type", m.src)
	if typ != "var" {
		return typ
	}
	return m.typeOf(m.initializer(declarator), 1)
}

func (m *csharpMapper) initializer(declarator *sitter.Node) *sitter.Node {
	name := csharpDeclaratorName(declarator)
	for _, c := range namedChildren(declarator) {
		if sameNode(c, name) || c.Type() == "bracketed_argument_list" {
			continue
		}
		if c.Type() == "equals_value_clause" {
			children := namedChildren(c)
			if len(children) == 0 {
				return nil
			}
			return children[0]
		}
		return c
	}
	return nil
}

// typeOf returns the syntactic type of an expression when it can be
// determined from declarations, or "".
func (m *csharpMapper) typeOf(expr *sitter.Node, depth int) string {
	if !valid(expr) || depth > maxInference {
		return ""
	}
	switch t := expr.Type(); t {
	case "identifier":
		return m.localType(expr, nodeText(expr, m.src), depth)
	case "this_expression", "this":
		return m.containingType(expr)
	case "base_expression", "base":
		if sym, ok := m.model.LookupType(m.containingType(expr)); ok {
			return sym.BaseType
		}
		return ""
	case "object_creation_expression":
		return fieldText(expr, "type", m.src)
	case "parenthesized_expression":
		children := namedChildren(expr)
		if len(children) == 1 {
			return m.typeOf(children[0], depth+1)
		}
	case "cast_expression":
		return fieldText(expr, "type", m.src)
	case "member_access_expression":
		owner := m.typeOf(field(expr, "expression"), depth+1)
		if owner == "" {
			owner = fieldText(expr, "expression", m.src)
		}
		if sym, ok := m.model.LookupMember(owner, m.simpleName(field(expr, "name")), -1); ok {
			return sym.Type
		}
	case "invocation_expression":
		fn := field(expr, "function")
		if fn == nil {
			return ""
		}
		name, receiver := m.callee(fn)
		if sym, ok := m.resolveCall(expr, name, receiver, len(m.arguments(expr))); ok {
			return sym.Type
		}
	case "element_access_expression":
		return elementType(m.typeOf(field(expr, "expression"), depth+1))
	case "conditional_access_expression":
		owner := m.typeOf(field(expr, "condition"), depth+1)
		if binding := childOfType(expr, "member_binding_expression"); binding != nil {
			if sym, ok := m.model.LookupMember(owner, m.simpleName(field(binding, "name")), -1); ok {
				return sym.Type
			}
			return ""
		}
		if childOfType(expr, "element_binding_expression") != nil {
			return elementType(owner)
		}
	default:
		if _, keyword := csharpLiteral(t, nodeText(expr, m.src)); keyword != "" {
			return keyword
		}
	}
	return ""
}

// localType finds the declared type of name as seen from at: locals
// declared earlier, parameters, fields and properties of enclosing types.
func (m *csharpMapper) localType(at *sitter.Node, name string, depth int) string {
	for a := parentOf(at); a != nil; a = parentOf(a) {
		for _, c := range namedChildren(a) {
			if t := m.declaredIn(c, at, name, depth); t != "" {
				return t
			}
		}
	}
	return ""
}

func (m *csharpMapper) declaredIn(c, at *sitter.Node, name string, depth int) string {
	switch c.Type() {
	case "local_declaration_statement", "using_statement":
		if c.StartByte() > at.StartByte() {
			return ""
		}
		return m.declaredInVariables(childOfType(c, "variable_declaration"), name, depth)
	case "field_declaration", "event_field_declaration":
		return m.declaredInVariables(childOfType(c, "variable_declaration"), name, depth)
	case "variable_declaration":
		return m.declaredInVariables(c, name, depth)
	case "parameter_list":
		for _, p := range csharpParams(c, m.src) {
			if p.Name == name {
				return p.Type
			}
		}
	case "property_declaration":
		if fieldText(c, "name", m.src) == name {
			return fieldText(c, "type", m.src)
		}
	case "for_each_statement":
		if fieldText(c, "left", m.src) == name {
			return fieldText(c, "type", m.src)
		}
	}
	return ""
}

func (m *csharpMapper) declaredInVariables(decl *sitter.Node, name string, depth int) string {
	for _, v := range childrenOfType(decl, "variable_declarator") {
		if nodeText(csharpDeclaratorName(v), m.src) != name {
			continue
		}
		typ := fieldText(decl, "type", m.src)
		if typ == "var" {
			return m.typeOf(m.initializer(v), depth+1)
		}
		return typ
	}
	return ""
}
