package ust

// Kind identifies a UST node variant. The set is closed: every Kind below
// kindCount has exactly one registry entry and one variant struct.
type Kind int

const (
	KindRoot Kind = iota
	KindUsingDirective
	KindNamespaceDeclaration
	KindClassDeclaration
	KindInterfaceDeclaration
	KindStructDeclaration
	KindEnumDeclaration
	KindMethodDeclaration
	KindConstructorDeclaration
	KindInvocationExpression
	KindObjectCreationExpression
	KindArgument
	KindLiteralExpression
	KindAnnotation
	KindDeclarationNode
	KindElementAccessExpression
	KindMemberAccessExpression
	KindLambdaExpression
	KindPropertyDeclaration
	KindFieldDeclaration

	kindCount
)

var kindNames = [kindCount]string{
	KindRoot:                     "root",
	KindUsingDirective:           "using_directive",
	KindNamespaceDeclaration:     "namespace_declaration",
	KindClassDeclaration:         "class_declaration",
	KindInterfaceDeclaration:     "interface_declaration",
	KindStructDeclaration:        "struct_declaration",
	KindEnumDeclaration:          "enum_declaration",
	KindMethodDeclaration:        "method_declaration",
	KindConstructorDeclaration:   "constructor_declaration",
	KindInvocationExpression:     "invocation_expression",
	KindObjectCreationExpression: "object_creation_expression",
	KindArgument:                 "argument",
	KindLiteralExpression:        "literal_expression",
	KindAnnotation:               "annotation",
	KindDeclarationNode:          "declaration_node",
	KindElementAccessExpression:  "element_access_expression",
	KindMemberAccessExpression:   "member_access_expression",
	KindLambdaExpression:         "lambda_expression",
	KindPropertyDeclaration:      "property_declaration",
	KindFieldDeclaration:         "field_declaration",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Valid reports whether k names a registered variant.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// Tag returns the serialized {id, name} pair for k.
func (k Kind) Tag() KindTag {
	return KindTag{ID: int(k), Name: k.String()}
}

// KindTag is the wire form of a node kind.
type KindTag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
