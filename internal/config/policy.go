package config

import (
	"github.com/cespare/xxhash/v2"
	"github.com/morozRed/ustgen/internal/ust"
	"github.com/pelletier/go-toml/v2"
)

// Policy selects which node kinds are materialized. A Policy is built once
// per run and passed by value; nothing mutates it mid-traversal.
type Policy struct {
	Literals              bool `toml:"literals"`
	Invocations           bool `toml:"invocations"`
	InvocationArguments   bool `toml:"invocation_arguments"`
	Annotations           bool `toml:"annotations"`
	DeclarationNodes      bool `toml:"declaration_nodes"`
	EnumDeclarations      bool `toml:"enum_declarations"`
	StructDeclarations    bool `toml:"struct_declarations"`
	InterfaceDeclarations bool `toml:"interface_declarations"`
	ElementAccess         bool `toml:"element_access"`
	MemberAccess          bool `toml:"member_access"`
	LambdaMethods         bool `toml:"lambda_methods"`
	Namespaces            bool `toml:"namespaces"`
	Usings                bool `toml:"usings"`

	CollectReferenceData bool `toml:"collect_reference_data"`
	CollectLocationData  bool `toml:"collect_location_data"`
}

// DefaultPolicy captures every kind and collects references and locations.
func DefaultPolicy() Policy {
	return Policy{
		Literals:              true,
		Invocations:           true,
		InvocationArguments:   true,
		Annotations:           true,
		DeclarationNodes:      true,
		EnumDeclarations:      true,
		StructDeclarations:    true,
		InterfaceDeclarations: true,
		ElementAccess:         true,
		MemberAccess:          true,
		LambdaMethods:         true,
		Namespaces:            true,
		Usings:                true,
		CollectReferenceData:  true,
		CollectLocationData:   true,
	}
}

// Captures reports whether nodes of kind k are materialized.
func (p Policy) Captures(k ust.Kind) bool {
	switch k {
	case ust.KindLiteralExpression:
		return p.Literals
	case ust.KindInvocationExpression, ust.KindObjectCreationExpression:
		return p.Invocations
	case ust.KindArgument:
		return p.InvocationArguments
	case ust.KindAnnotation:
		return p.Annotations
	case ust.KindDeclarationNode, ust.KindPropertyDeclaration, ust.KindFieldDeclaration:
		return p.DeclarationNodes
	case ust.KindEnumDeclaration:
		return p.EnumDeclarations
	case ust.KindStructDeclaration:
		return p.StructDeclarations
	case ust.KindInterfaceDeclaration:
		return p.InterfaceDeclarations
	case ust.KindElementAccessExpression:
		return p.ElementAccess
	case ust.KindMemberAccessExpression:
		return p.MemberAccess
	case ust.KindLambdaExpression:
		return p.LambdaMethods
	case ust.KindNamespaceDeclaration:
		return p.Namespaces
	case ust.KindUsingDirective:
		return p.Usings
	case ust.KindRoot, ust.KindClassDeclaration, ust.KindMethodDeclaration, ust.KindConstructorDeclaration:
		return true
	default:
		return false
	}
}

// Fingerprint identifies the policy for cache invalidation.
func (p Policy) Fingerprint() string {
	data, err := toml.Marshal(p)
	if err != nil {
		return ""
	}
	return formatHash(xxhash.Sum64(data))
}
