package ust

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a discriminator does not name a registered kind.
var ErrUnknownKind = errors.New("unknown node kind")

var constructors = [kindCount]func() Node{
	KindRoot:                     func() Node { return NewRoot() },
	KindUsingDirective:           func() Node { return NewUsingDirective() },
	KindNamespaceDeclaration:     func() Node { return NewNamespaceDeclaration() },
	KindClassDeclaration:         func() Node { return NewClassDeclaration() },
	KindInterfaceDeclaration:     func() Node { return NewInterfaceDeclaration() },
	KindStructDeclaration:        func() Node { return NewStructDeclaration() },
	KindEnumDeclaration:          func() Node { return NewEnumDeclaration() },
	KindMethodDeclaration:        func() Node { return NewMethodDeclaration() },
	KindConstructorDeclaration:   func() Node { return NewConstructorDeclaration() },
	KindInvocationExpression:     func() Node { return NewInvocationExpression() },
	KindObjectCreationExpression: func() Node { return NewObjectCreationExpression() },
	KindArgument:                 func() Node { return NewArgument() },
	KindLiteralExpression:        func() Node { return NewLiteralExpression() },
	KindAnnotation:               func() Node { return NewAnnotation() },
	KindDeclarationNode:          func() Node { return NewDeclarationNode() },
	KindElementAccessExpression:  func() Node { return NewElementAccessExpression() },
	KindMemberAccessExpression:   func() Node { return NewMemberAccessExpression() },
	KindLambdaExpression:         func() Node { return NewLambdaExpression() },
	KindPropertyDeclaration:      func() Node { return NewPropertyDeclaration() },
	KindFieldDeclaration:         func() Node { return NewFieldDeclaration() },
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		m[kindNames[k]] = k
	}
	return m
}()

// KindByName resolves a discriminator string.
func KindByName(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Kinds lists every registered kind in id order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// New returns a fresh, empty node for the given discriminator.
func New(name string) (Node, error) {
	k, ok := KindByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return NewOf(k)
}

// NewOf returns a fresh, empty node of kind k.
func NewOf(k Kind) (Node, error) {
	if !k.Valid() || constructors[k] == nil {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownKind, int(k))
	}
	return constructors[k](), nil
}
