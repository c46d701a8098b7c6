package languages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/ustgen/internal/config"
	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/ust"
)

const javaSample = `package demo;

import java.util.List;
import java.util.*;

public final class Sample {
    private final int count = 0;
    static String name, label;

    @Override
    public String toString() {
        return name;
    }

    @Deprecated
    @SuppressWarnings("unchecked")
    public int sum(int a, int b) {
        int total = a + b;
        var copy = total;
        return copy;
    }

    public Sample(int seed) {
        long big = 2L;
    }

    native void poke();
}

interface Shape {
    double area();
}

enum Color { RED, GREEN }
`

func TestJavaStructure(t *testing.T) {
	got := convert(t, NewJavaParser(), "demo/Sample.java", javaSample, config.DefaultPolicy())
	root := got.root

	assert.Equal(t, []string{"demo"}, identifiers(ust.Collect(root, ust.KindNamespaceDeclaration)))
	assert.Equal(t, []string{"java.util.List", "java.util.*"}, identifiers(ust.Collect(root, ust.KindUsingDirective)))

	sample := find(t, root, ust.KindClassDeclaration, "Sample").(*ust.ClassDeclaration)
	assert.Equal(t, "demo", sample.SemanticNamespace)
	find(t, root, ust.KindInterfaceDeclaration, "Shape")
	color := find(t, root, ust.KindEnumDeclaration, "Color").(*ust.EnumDeclaration)
	assert.Equal(t, []string{"RED", "GREEN"}, color.Members)

	assert.Equal(t, []string{"Override", "Deprecated", "SuppressWarnings"},
		identifiers(ust.Collect(sample, ust.KindAnnotation)))

	require.Len(t, root.References, 1)
	assert.Equal(t, ust.Reference{Namespace: "demo", Assembly: "App"}, root.References[0])

	requireOwnership(t, root)
	requireRoundTrip(t, root)
}

func TestJavaDeclarationNodes(t *testing.T) {
	got := convert(t, NewJavaParser(), "demo/Sample.java", javaSample, config.DefaultPolicy())
	sample := find(t, got.root, ust.KindClassDeclaration, "Sample")

	decls := ust.Collect(sample, ust.KindDeclarationNode)
	assert.Equal(t, []string{"count", "name", "label", "String", "a", "b", "total", "copy", "seed", "big"}, identifiers(decls))

	ret := decls[3].(*ust.DeclarationNode)
	assert.Equal(t, "type", ret.DeclarationKind)

	copyVar := find(t, sample, ust.KindDeclarationNode, "copy").(*ust.DeclarationNode)
	assert.Equal(t, "variable", copyVar.DeclarationKind)
	assert.Equal(t, "int", copyVar.SemanticType)

	seed := find(t, sample, ust.KindDeclarationNode, "seed").(*ust.DeclarationNode)
	assert.Equal(t, "parameter", seed.DeclarationKind)
	assert.Equal(t, "int", seed.SemanticType)
}

func TestJavaModifiers(t *testing.T) {
	got := convert(t, NewJavaParser(), "demo/Sample.java", javaSample, config.DefaultPolicy())
	root := got.root

	cases := map[string][]string{
		"toString": {"public", "override"},
		"sum":      {"public"},
		"poke":     {"extern"},
		"area":     {"public"},
	}
	for name, want := range cases {
		m := find(t, root, ust.KindMethodDeclaration, name).(*ust.MethodDeclaration)
		assert.Equal(t, want, m.Modifiers, name)
	}

	count := find(t, root, ust.KindFieldDeclaration, "count").(*ust.FieldDeclaration)
	assert.Equal(t, "int", count.FieldType)
	assert.Equal(t, []string{"private", "readonly"}, count.Modifiers)

	statics := find(t, root, ust.KindFieldDeclaration, "name, label").(*ust.FieldDeclaration)
	assert.Equal(t, []string{"static"}, statics.Modifiers)

	ctor := find(t, root, ust.KindConstructorDeclaration, "Sample").(*ust.ConstructorDeclaration)
	assert.Equal(t, []string{"public"}, ctor.Modifiers)
	assert.Equal(t, []ust.Parameter{{Name: "seed", Type: "int", SemanticType: "int"}}, ctor.Parameters)

	decls := got.decls
	assert.Equal(t, "demo", decls.Namespace)
	assert.Equal(t, []string{"java.util.*", "java.util.List"}, decls.Usings)
	require.Len(t, decls.Types, 3)
	assert.True(t, decls.Types[0].Modifiers.Sealed)
	assert.Equal(t, "public", decls.Types[0].Accessibility)
	assert.Equal(t, semantic.SymbolInterface, decls.Types[1].Kind)
	assert.Equal(t, semantic.SymbolEnum, decls.Types[2].Kind)
}

func TestJavaInvocationResolvesStaticCall(t *testing.T) {
	src := `package n;

class Foo {
    static void bar(int x, String y) {}
}

class Client {
    void run() {
        Foo.bar(1, "x");
    }
}
`
	got := convert(t, NewJavaParser(), "n/Client.java", src, config.DefaultPolicy())

	calls := ust.Collect(got.root, ust.KindInvocationExpression)
	require.Len(t, calls, 1)
	call := calls[0].(*ust.InvocationExpression)
	assert.Equal(t, `Foo.bar(1, "x")`, call.Identifier)
	assert.Equal(t, "bar", call.MethodName)
	assert.Equal(t, "Foo", call.Caller)
	assert.Equal(t, "n", call.SemanticNamespace)
	assert.Equal(t, "Foo", call.SemanticClassType)
	assert.Equal(t, "n.Foo.bar(int, String)", call.SemanticMethodSignature)
	require.Len(t, call.Parameters, 2)
	assert.Equal(t, "y", call.Parameters[1].Name)

	// Java call sites carry no argument nodes.
	assert.Empty(t, ust.Collect(got.root, ust.KindArgument))
	assert.Len(t, ust.Collect(call, ust.KindLiteralExpression), 2)
}

func TestJavaLiteralTypes(t *testing.T) {
	src := `class Lits {
    void m() {
        int a = 1;
        long b = 2L;
        float c = 1.5f;
        double d = 2.5;
        String e = "s";
        char f = 'c';
        boolean g = true;
        Object h = null;
        int i = 0x1F;
    }
}
`
	got := convert(t, NewJavaParser(), "Lits.java", src, config.DefaultPolicy())

	want := map[string][2]string{
		"1":    {"Integer", "int"},
		"2L":   {"Long", "long"},
		"1.5f": {"Float", "float"},
		"2.5":  {"Double", "double"},
		`"s"`:  {"String", "String"},
		"'c'":  {"Character", "char"},
		"true": {"Boolean", "boolean"},
		"null": {"", ""},
		"0x1F": {"Integer", "int"},
	}
	lits := ust.Collect(got.root, ust.KindLiteralExpression)
	require.Len(t, lits, len(want))
	for _, n := range lits {
		lit := n.(*ust.LiteralExpression)
		expected, ok := want[lit.Identifier]
		require.True(t, ok, "unexpected literal %q", lit.Identifier)
		assert.Equal(t, expected[0], lit.LiteralType, lit.Identifier)
		assert.Equal(t, expected[1], lit.SemanticType, lit.Identifier)
	}
}

func TestJavaExpressions(t *testing.T) {
	src := `package shop;

class Cart {
    Cart(int size) {}
}

class Store {
    int[] sizes;
    Cart cart;

    void open() {
        Cart c = new Cart(3);
        int first = sizes[0];
        int n = this.cart.hashCode();
        Runnable r = () -> open();
    }
}
`
	got := convert(t, NewJavaParser(), "shop/Store.java", src, config.DefaultPolicy())
	root := got.root

	creation := find(t, root, ust.KindObjectCreationExpression, "new Cart(3)").(*ust.ObjectCreationExpression)
	assert.Equal(t, "Cart", creation.MethodName)
	assert.Equal(t, "shop", creation.SemanticNamespace)
	assert.Equal(t, "Cart", creation.SemanticClassType)
	assert.Equal(t, "shop.Cart.Cart(int)", creation.SemanticMethodSignature)
	assert.Equal(t, "shop.Cart", creation.SemanticReturnType)

	access := find(t, root, ust.KindElementAccessExpression, "sizes[0]").(*ust.ElementAccessExpression)
	assert.Equal(t, "int", access.SemanticType)

	field := find(t, root, ust.KindMemberAccessExpression, "this.cart").(*ust.MemberAccessExpression)
	assert.Equal(t, "cart", field.Member)
	assert.Equal(t, "this", field.Expression)
	assert.Equal(t, "shop.Cart", field.SemanticType)

	lambda := find(t, root, ust.KindLambdaExpression, "() -> open()").(*ust.LambdaExpression)
	assert.Empty(t, lambda.Parameters)
	open := find(t, lambda, ust.KindInvocationExpression, "open()").(*ust.InvocationExpression)
	assert.Equal(t, "shop.Store.open()", open.SemanticMethodSignature)

	c := find(t, root, ust.KindDeclarationNode, "c").(*ust.DeclarationNode)
	assert.Equal(t, "shop.Cart", c.SemanticType)
}

func TestJavaPolicyGating(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.Annotations = false
	policy.Namespaces = false
	policy.CollectReferenceData = false
	got := convert(t, NewJavaParser(), "demo/Sample.java", javaSample, policy)

	assert.Empty(t, ust.Collect(got.root, ust.KindAnnotation))
	assert.Empty(t, ust.Collect(got.root, ust.KindNamespaceDeclaration))
	assert.Empty(t, got.root.References)
	assert.Len(t, ust.Collect(got.root, ust.KindMethodDeclaration), 4)
	requireOwnership(t, got.root)
}
