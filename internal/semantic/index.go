package semantic

import (
	"strings"
	"sync"
)

// Locator maps an assembly name to a physical metadata location.
type Locator interface {
	AssemblyLocation(assembly string) string
}

// Model is the per-file resolution handle consumed by the engines. Every
// lookup is best-effort: a false result means "fall back to syntax".
type Model interface {
	Locator
	// LookupType resolves a syntactic type name in the file's scope.
	LookupType(name string) (*Symbol, bool)
	// LookupMember finds a member of a type (or its bases) by name,
	// preferring an overload with the given arity.
	LookupMember(typeName, member string, arity int) (*Symbol, bool)
	// LookupExtension finds an extension method callable with arity
	// arguments and returns its reduced form.
	LookupExtension(name string, arity int) (*Symbol, bool)
}

const maxBaseDepth = 8

type typeEntry struct {
	sym     *Symbol
	members map[string][]*Symbol
}

// Index is the project-wide declaration table. Files are added during the
// declaration pass; afterwards it is only read and may be shared by
// concurrent traversals.
type Index struct {
	mu         sync.RWMutex
	types      map[string]*typeEntry
	bySimple   map[string][]*typeEntry
	extensions map[string][]*Symbol
	files      map[string]*FileDecls
	locator    Locator
}

// NewIndex creates an empty index. locator may be nil.
func NewIndex(locator Locator) *Index {
	return &Index{
		types:      make(map[string]*typeEntry),
		bySimple:   make(map[string][]*typeEntry),
		extensions: make(map[string][]*Symbol),
		files:      make(map[string]*FileDecls),
		locator:    locator,
	}
}

// AddFile registers a file's declarations, replacing any previous entry
// for the same path.
func (x *Index) AddFile(decls *FileDecls) {
	if decls == nil {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.files[decls.Path] = decls
	for _, t := range decls.Types {
		x.addType(t)
	}
}

func (x *Index) addType(t *Symbol) {
	entry := &typeEntry{sym: t, members: make(map[string][]*Symbol)}
	x.types[t.QualifiedName()] = entry
	x.bySimple[t.Name] = append(x.bySimple[t.Name], entry)
	for _, m := range t.Members {
		switch m.Kind {
		case SymbolClass, SymbolInterface, SymbolStruct, SymbolEnum, SymbolRecord:
			x.addType(m)
			continue
		}
		entry.members[m.Name] = append(entry.members[m.Name], m)
		if m.IsExtension() {
			x.extensions[m.Name] = append(x.extensions[m.Name], m)
		}
	}
}

// Len returns the number of indexed types.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.types)
}

// AssemblyLocation delegates to the configured locator.
func (x *Index) AssemblyLocation(assembly string) string {
	if x.locator == nil || assembly == "" {
		return ""
	}
	return x.locator.AssemblyLocation(assembly)
}

// Scope returns the resolution handle for one file. Files that were never
// added resolve with the global namespace and no usings.
func (x *Index) Scope(path string) Model {
	x.mu.RLock()
	decls := x.files[path]
	x.mu.RUnlock()
	s := &scope{index: x}
	if decls != nil {
		s.namespace = decls.Namespace
		s.usings = decls.Usings
	}
	return s
}

type scope struct {
	index     *Index
	namespace string
	usings    []string
}

func (s *scope) AssemblyLocation(assembly string) string {
	return s.index.AssemblyLocation(assembly)
}

func (s *scope) LookupType(name string) (*Symbol, bool) {
	entry := s.lookupEntry(name)
	if entry == nil {
		return nil, false
	}
	return entry.sym, true
}

func (s *scope) lookupEntry(name string) *typeEntry {
	name = BareTypeName(name)
	if name == "" {
		return nil
	}
	x := s.index
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, candidate := range s.candidates(name) {
		if entry, ok := x.types[candidate]; ok {
			return entry
		}
	}
	simple := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		simple = name[i+1:]
	}
	if entries := x.bySimple[simple]; len(entries) == 1 {
		return entries[0]
	}
	return nil
}

// candidates lists qualified names to probe, innermost scope first.
func (s *scope) candidates(name string) []string {
	out := make([]string, 0, 4+len(s.usings))
	ns := s.namespace
	for ns != "" {
		out = append(out, ns+"."+name)
		i := strings.LastIndex(ns, ".")
		if i < 0 {
			break
		}
		ns = ns[:i]
	}
	for _, u := range s.usings {
		switch {
		case u == name, strings.HasSuffix(u, "."+name):
			out = append(out, u)
		case strings.HasSuffix(u, ".*"):
			out = append(out, strings.TrimSuffix(u, "*")+name)
		default:
			out = append(out, u+"."+name)
		}
	}
	return append(out, name)
}

func (s *scope) LookupMember(typeName, member string, arity int) (*Symbol, bool) {
	entry := s.lookupEntry(typeName)
	for depth := 0; entry != nil && depth < maxBaseDepth; depth++ {
		s.index.mu.RLock()
		overloads := entry.members[member]
		s.index.mu.RUnlock()
		if sym := pickOverload(overloads, arity); sym != nil {
			return sym, true
		}
		if entry.sym.BaseType == "" {
			break
		}
		next := s.lookupEntry(entry.sym.BaseType)
		if next == entry {
			break
		}
		entry = next
	}
	return nil, false
}

func (s *scope) LookupExtension(name string, arity int) (*Symbol, bool) {
	s.index.mu.RLock()
	overloads := s.index.extensions[name]
	s.index.mu.RUnlock()

	var fallback *Symbol
	for _, sym := range overloads {
		if len(sym.Parameters)-1 != arity {
			continue
		}
		if s.inScope(sym.Namespace) {
			return sym.reduce(), true
		}
		if fallback == nil {
			fallback = sym
		}
	}
	if fallback != nil {
		return fallback.reduce(), true
	}
	return nil, false
}

func (s *scope) inScope(ns string) bool {
	if ns == "" || ns == s.namespace || strings.HasPrefix(s.namespace, ns+".") {
		return true
	}
	for _, u := range s.usings {
		if u == ns {
			return true
		}
	}
	return false
}

func pickOverload(overloads []*Symbol, arity int) *Symbol {
	if len(overloads) == 0 {
		return nil
	}
	for _, sym := range overloads {
		if arity < 0 || len(sym.Parameters) == arity {
			return sym
		}
	}
	return overloads[0]
}

// Empty is a Model that resolves nothing.
type Empty struct{}

func (Empty) AssemblyLocation(string) string { return "" }
func (Empty) LookupType(string) (*Symbol, bool) { return nil, false }
func (Empty) LookupMember(string, string, int) (*Symbol, bool) { return nil, false }
func (Empty) LookupExtension(string, int) (*Symbol, bool) { return nil, false }
