package ust

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCoversEveryKind(t *testing.T) {
	for _, k := range Kinds() {
		n, err := NewOf(k)
		require.NoError(t, err, "kind %d", k)
		assert.Equal(t, k, n.Common().Kind())
		assert.Equal(t, k.String(), n.Common().Type.Name)

		byName, err := New(k.String())
		require.NoError(t, err)
		assert.IsType(t, n, byName)
	}
	assert.Len(t, Kinds(), int(kindCount))
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New("goto_statement")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = NewOf(kindCount)
	assert.True(t, errors.Is(err, ErrUnknownKind))
	assert.Equal(t, "unknown", Kind(-1).String())
}

func TestAdoptSetsParentsAfterChildren(t *testing.T) {
	root := NewRoot()
	class := NewClassDeclaration()
	class.Identifier = "Widget"
	method := NewMethodDeclaration()
	method.Identifier = "Run"

	Adopt(class, []Node{method})
	Adopt(root, []Node{class})

	assert.Nil(t, root.Parent())
	assert.Same(t, root, class.Parent())
	assert.Same(t, class, method.Parent())
	assert.Equal(t, NodeList{method}, class.Children)

	Adopt(method, nil)
	assert.Nil(t, method.Children)
}

func TestRoundTripThroughRegistry(t *testing.T) {
	root := sampleTree()

	data, err := json.Marshal(root)
	require.NoError(t, err)

	decoded, err := DecodeRoot(data)
	require.NoError(t, err)
	assert.True(t, Equal(root, decoded))

	again, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))

	invocations := Collect(decoded, KindInvocationExpression)
	require.Len(t, invocations, 1)
	call := invocations[0].(*InvocationExpression)
	assert.Equal(t, "Bar", call.MethodName)
	assert.Len(t, call.Parameters, 2)

	// parents are rebuilt on decode
	class := decoded.Children[0]
	assert.Same(t, decoded, class.Common().Parent())
	assert.Same(t, class, call.Parent().Common().Parent())
}

func TestMemberDeclarationFieldNames(t *testing.T) {
	prop := NewPropertyDeclaration()
	prop.Identifier = "Name"
	prop.PropertyType = "string"
	prop.SemanticType = "System.String"
	field := NewFieldDeclaration()
	field.Identifier = "count"
	field.FieldType = "int"

	data, err := json.Marshal(prop)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"property_type":"string"`)
	assert.Contains(t, string(data), `"semantic_type":"System.String"`)

	data, err = json.Marshal(field)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"field_type":"int"`)
}

func TestDecodeRejectsUnknownChild(t *testing.T) {
	payload := `{"type":{"id":0,"name":"root"},"identifier":"a.cs","children":[{"type":{"id":99,"name":"mystery"},"identifier":"x","children":[]}]}`
	_, err := Decode([]byte(payload))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestDecodeRootRequiresRoot(t *testing.T) {
	data, err := json.Marshal(NewClassDeclaration())
	require.NoError(t, err)
	_, err = DecodeRoot(data)
	assert.Error(t, err)
}

func TestReferenceDedup(t *testing.T) {
	root := NewRoot()
	assert.True(t, root.AddReference(Reference{Namespace: "N", Assembly: "A"}))
	assert.False(t, root.AddReference(Reference{Namespace: "N", Assembly: "A", AssemblyLocation: "/lib/A.dll"}))
	assert.True(t, root.AddReference(Reference{Namespace: "N", Assembly: "B"}))
	assert.True(t, root.HasReference(Reference{Namespace: "N", Assembly: "B"}))
	assert.Len(t, root.References, 2)
	assert.Empty(t, root.References[0].AssemblyLocation)

	// index is rebuilt lazily for decoded roots
	decoded := NewRoot()
	decoded.References = []Reference{{Namespace: "X", Assembly: "Y"}}
	assert.False(t, decoded.AddReference(Reference{Namespace: "X", Assembly: "Y"}))
}

func TestWalkIsPreOrder(t *testing.T) {
	root := sampleTree()
	var names []string
	Walk(root, func(n Node) bool {
		names = append(names, n.Common().Kind().String())
		return n.Common().Kind() != KindInvocationExpression
	})
	assert.Equal(t, []string{
		"root",
		"class_declaration",
		"method_declaration",
		"declaration_node",
		"invocation_expression",
		"annotation",
	}, names)

	counts := CountKinds(root)
	assert.Equal(t, 1, counts[KindLiteralExpression])
	assert.Equal(t, 1, counts[KindRoot])
}

func sampleTree() *Root {
	root := NewRoot()
	root.Identifier = "src/Widget.cs"
	root.Language = "csharp"
	root.FilePath = "src/Widget.cs"
	root.FileFullPath = "/repo/src/Widget.cs"
	root.LineCount = 12
	root.AddReference(Reference{Namespace: "N", Assembly: "App", AssemblyLocation: "/out/App.dll"})

	class := NewClassDeclaration()
	class.Identifier = "Widget"
	class.BaseType = "Component"
	class.SemanticNamespace = "N"
	class.Location = &Location{StartLine: 3, StartColumn: 0, EndLine: 12, EndColumn: 1}

	method := NewMethodDeclaration()
	method.Identifier = "Run"
	method.ReturnType = "void"
	method.SemanticReturnType = "void"
	method.Modifiers = []string{"public", "static"}
	method.Parameters = []Parameter{{Name: "count", Type: "int", SemanticType: "int"}}

	decl := NewDeclarationNode()
	decl.Identifier = "count"
	decl.DeclarationKind = "parameter"

	call := NewInvocationExpression()
	call.Identifier = `Foo.Bar(1, "x")`
	call.MethodName = "Bar"
	call.SemanticNamespace = "N"
	call.SemanticClassType = "Foo"
	call.Parameters = []Parameter{{Name: "a", Type: "int"}, {Name: "b", Type: "string"}}

	lit := NewLiteralExpression()
	lit.Identifier = "1"
	lit.LiteralType = "Int32"
	lit.SemanticType = "int"

	attr := NewAnnotation()
	attr.Identifier = "Obsolete"

	Adopt(call, []Node{lit})
	Adopt(method, []Node{decl, call})
	Adopt(class, []Node{method, attr})
	Adopt(root, []Node{class})
	return root
}
