// Package semantic provides the resolution service the UST engines query
// for declared and referenced symbols. The bundled implementation indexes
// declarations of every analysed file; it performs no type inference.
package semantic

import (
	"sort"
	"strings"
)

// SymbolKind classifies a declared symbol.
type SymbolKind string

const (
	SymbolClass       SymbolKind = "class"
	SymbolInterface   SymbolKind = "interface"
	SymbolStruct      SymbolKind = "struct"
	SymbolEnum        SymbolKind = "enum"
	SymbolRecord      SymbolKind = "record"
	SymbolMethod      SymbolKind = "method"
	SymbolConstructor SymbolKind = "constructor"
	SymbolField       SymbolKind = "field"
	SymbolProperty    SymbolKind = "property"
)

// Modifiers are the modifier predicates of a symbol.
type Modifiers struct {
	Async    bool `json:"async,omitempty"`
	Override bool `json:"override,omitempty"`
	Abstract bool `json:"abstract,omitempty"`
	Extern   bool `json:"extern,omitempty"`
	Sealed   bool `json:"sealed,omitempty"`
	Static   bool `json:"static,omitempty"`
	Virtual  bool `json:"virtual,omitempty"`
	Readonly bool `json:"readonly,omitempty"`
}

// Names lists the modifiers that are set, in a fixed order.
func (m Modifiers) Names() []string {
	var out []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{m.Async, "async"},
		{m.Override, "override"},
		{m.Abstract, "abstract"},
		{m.Extern, "extern"},
		{m.Sealed, "sealed"},
		{m.Static, "static"},
		{m.Virtual, "virtual"},
		{m.Readonly, "readonly"},
	} {
		if f.on {
			out = append(out, f.name)
		}
	}
	return out
}

// Param is a declared parameter. This marks the receiver of a C# extension method.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
	This bool   `json:"this,omitempty"`
}

// Symbol is a resolved declaration.
type Symbol struct {
	Name           string     `json:"name"`
	Kind           SymbolKind `json:"kind"`
	Namespace      string     `json:"namespace,omitempty"`
	Assembly       string     `json:"assembly,omitempty"`
	ContainingType string     `json:"containing_type,omitempty"` // qualified, e.g. "N.Outer.Inner"
	Accessibility  string     `json:"accessibility,omitempty"`
	Modifiers      Modifiers  `json:"modifiers"`
	Type           string     `json:"type,omitempty"` // return type for methods, declared type otherwise
	BaseType       string     `json:"base_type,omitempty"`
	Parameters     []Param    `json:"parameters,omitempty"`
	Members        []*Symbol  `json:"members,omitempty"`

	// ReducedFrom is set on the reduced form of an extension method and
	// names the static definition it was reduced from.
	ReducedFrom string `json:"-"`
}

// QualifiedName returns the namespace- and type-qualified name.
func (s *Symbol) QualifiedName() string {
	switch {
	case s.ContainingType != "":
		return s.ContainingType + "." + s.Name
	case s.Namespace != "":
		return s.Namespace + "." + s.Name
	default:
		return s.Name
	}
}

// Signature renders "Container.Name(T1, T2)" for methods and constructors,
// and the qualified name otherwise.
func (s *Symbol) Signature() string {
	if s.Kind != SymbolMethod && s.Kind != SymbolConstructor {
		return s.QualifiedName()
	}
	types := make([]string, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		t := p.Type
		if p.This {
			t = "this " + t
		}
		types = append(types, t)
	}
	return s.QualifiedName() + "(" + strings.Join(types, ", ") + ")"
}

// OriginalDefinition is the definition a reduced extension was taken from,
// or the symbol's own signature.
func (s *Symbol) OriginalDefinition() string {
	if s.ReducedFrom != "" {
		return s.ReducedFrom
	}
	return s.Signature()
}

// IsExtension reports whether the method declares a this-receiver.
func (s *Symbol) IsExtension() bool {
	return s.Kind == SymbolMethod && len(s.Parameters) > 0 && s.Parameters[0].This
}

// reduce returns the call-site form of an extension method.
func (s *Symbol) reduce() *Symbol {
	out := *s
	out.Parameters = append([]Param(nil), s.Parameters[1:]...)
	out.ReducedFrom = s.Signature()
	return &out
}

// FileDecls holds everything one file contributes to the index.
type FileDecls struct {
	Path      string    `json:"path"`
	Language  string    `json:"language"`
	Namespace string    `json:"namespace,omitempty"`
	Usings    []string  `json:"usings,omitempty"`
	Types     []*Symbol `json:"types,omitempty"`
}

// Normalize sorts and dedups the using list.
func (f *FileDecls) Normalize() {
	if len(f.Usings) == 0 {
		f.Usings = nil
		return
	}
	seen := make(map[string]bool, len(f.Usings))
	out := make([]string, 0, len(f.Usings))
	for _, u := range f.Usings {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	sort.Strings(out)
	f.Usings = out
}

// BareTypeName strips generic arguments, array ranks and nullability from
// a syntactic type so it can be looked up by name.
func BareTypeName(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.IndexAny(t, "<["); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSuffix(t, "?")
	t = strings.TrimPrefix(t, "global::")
	return strings.TrimSpace(t)
}
