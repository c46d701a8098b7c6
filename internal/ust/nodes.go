package ust

// Root is the per-file node. It is the only node without a parent and the
// single owner of the file's reference set.
type Root struct {
	Base
	Language     string      `json:"language"`
	FilePath     string      `json:"file_path"`
	FileFullPath string      `json:"file_full_path"`
	LineCount    int         `json:"line_count"`
	References   []Reference `json:"references"`

	refIndex map[referenceKey]struct{}
}

func NewRoot() *Root { return &Root{Base: newBase(KindRoot)} }

// UsingDirective is a using/import directive; Identifier holds the imported path.
type UsingDirective struct {
	Base
}

func NewUsingDirective() *UsingDirective {
	return &UsingDirective{Base: newBase(KindUsingDirective)}
}

// NamespaceDeclaration is a namespace or package declaration.
type NamespaceDeclaration struct {
	Base
}

func NewNamespaceDeclaration() *NamespaceDeclaration {
	return &NamespaceDeclaration{Base: newBase(KindNamespaceDeclaration)}
}

// TypeInfo holds the semantic facts shared by class-like declarations.
type TypeInfo struct {
	BaseType          string `json:"base_type,omitempty"`
	SemanticNamespace string `json:"semantic_namespace,omitempty"`
}

type ClassDeclaration struct {
	Base
	TypeInfo
}

func NewClassDeclaration() *ClassDeclaration {
	return &ClassDeclaration{Base: newBase(KindClassDeclaration)}
}

type InterfaceDeclaration struct {
	Base
	TypeInfo
}

func NewInterfaceDeclaration() *InterfaceDeclaration {
	return &InterfaceDeclaration{Base: newBase(KindInterfaceDeclaration)}
}

type StructDeclaration struct {
	Base
	TypeInfo
}

func NewStructDeclaration() *StructDeclaration {
	return &StructDeclaration{Base: newBase(KindStructDeclaration)}
}

type EnumDeclaration struct {
	Base
	SemanticNamespace string   `json:"semantic_namespace,omitempty"`
	Members           []string `json:"members,omitempty"`
}

func NewEnumDeclaration() *EnumDeclaration {
	return &EnumDeclaration{Base: newBase(KindEnumDeclaration)}
}

// MethodDeclaration carries the syntactic and resolved signature of a method.
// Modifiers only ever lists modifiers that are present.
type MethodDeclaration struct {
	Base
	Parameters         []Parameter `json:"parameters,omitempty"`
	ReturnType         string      `json:"return_type,omitempty"`
	SemanticReturnType string      `json:"semantic_return_type,omitempty"`
	Modifiers          []string    `json:"modifiers,omitempty"`
}

func NewMethodDeclaration() *MethodDeclaration {
	return &MethodDeclaration{Base: newBase(KindMethodDeclaration)}
}

type ConstructorDeclaration struct {
	Base
	Parameters []Parameter `json:"parameters,omitempty"`
	Modifiers  []string    `json:"modifiers,omitempty"`
}

func NewConstructorDeclaration() *ConstructorDeclaration {
	return &ConstructorDeclaration{Base: newBase(KindConstructorDeclaration)}
}

// CallInfo holds the call-site facts shared by invocations and object
// creations. Semantic fields are empty when the callee did not resolve.
type CallInfo struct {
	MethodName                 string      `json:"method_name,omitempty"`
	Caller                     string      `json:"caller,omitempty"`
	SemanticNamespace          string      `json:"semantic_namespace,omitempty"`
	SemanticClassType          string      `json:"semantic_class_type,omitempty"`
	SemanticMethodSignature    string      `json:"semantic_method_signature,omitempty"`
	SemanticOriginalDefinition string      `json:"semantic_original_definition,omitempty"`
	SemanticReturnType         string      `json:"semantic_return_type,omitempty"`
	Parameters                 []Parameter `json:"parameters,omitempty"`
	IsExtension                bool        `json:"is_extension,omitempty"`
}

type InvocationExpression struct {
	Base
	CallInfo
}

func NewInvocationExpression() *InvocationExpression {
	return &InvocationExpression{Base: newBase(KindInvocationExpression)}
}

type ObjectCreationExpression struct {
	Base
	CallInfo
}

func NewObjectCreationExpression() *ObjectCreationExpression {
	return &ObjectCreationExpression{Base: newBase(KindObjectCreationExpression)}
}

// Argument is one argument at a call site.
type Argument struct {
	Base
	SemanticType string `json:"semantic_type,omitempty"`
}

func NewArgument() *Argument { return &Argument{Base: newBase(KindArgument)} }

// LiteralExpression records a literal's text, the name of its runtime
// representation and its language-level type.
type LiteralExpression struct {
	Base
	LiteralType  string `json:"literal_type,omitempty"`
	SemanticType string `json:"semantic_type,omitempty"`
}

func NewLiteralExpression() *LiteralExpression {
	return &LiteralExpression{Base: newBase(KindLiteralExpression)}
}

// Annotation is an attribute (C#) or annotation (Java) usage.
type Annotation struct {
	Base
	SemanticNamespace string `json:"semantic_namespace,omitempty"`
	SemanticClassType string `json:"semantic_class_type,omitempty"`
}

func NewAnnotation() *Annotation { return &Annotation{Base: newBase(KindAnnotation)} }

// DeclarationNode is a declared identifier: a variable, parameter, or the
// name part of a method, class or object creation.
type DeclarationNode struct {
	Base
	DeclarationKind string `json:"declaration_kind,omitempty"`
	SemanticType    string `json:"semantic_type,omitempty"`
}

func NewDeclarationNode() *DeclarationNode {
	return &DeclarationNode{Base: newBase(KindDeclarationNode)}
}

type ElementAccessExpression struct {
	Base
	SemanticType string `json:"semantic_type,omitempty"`
}

func NewElementAccessExpression() *ElementAccessExpression {
	return &ElementAccessExpression{Base: newBase(KindElementAccessExpression)}
}

type MemberAccessExpression struct {
	Base
	Member       string `json:"member,omitempty"`
	Expression   string `json:"expression,omitempty"`
	SemanticType string `json:"semantic_type,omitempty"`
}

func NewMemberAccessExpression() *MemberAccessExpression {
	return &MemberAccessExpression{Base: newBase(KindMemberAccessExpression)}
}

type LambdaExpression struct {
	Base
	Parameters []Parameter `json:"parameters,omitempty"`
}

func NewLambdaExpression() *LambdaExpression {
	return &LambdaExpression{Base: newBase(KindLambdaExpression)}
}

type PropertyDeclaration struct {
	Base
	PropertyType string   `json:"property_type,omitempty"`
	SemanticType string   `json:"semantic_type,omitempty"`
	Modifiers    []string `json:"modifiers,omitempty"`
}

func NewPropertyDeclaration() *PropertyDeclaration {
	return &PropertyDeclaration{Base: newBase(KindPropertyDeclaration)}
}

type FieldDeclaration struct {
	Base
	FieldType string   `json:"field_type,omitempty"`
	Modifiers []string `json:"modifiers,omitempty"`
}

func NewFieldDeclaration() *FieldDeclaration {
	return &FieldDeclaration{Base: newBase(KindFieldDeclaration)}
}
