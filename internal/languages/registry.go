package languages

import "github.com/morozRed/ustgen/internal/parser"

// NewDefaultRegistry creates a registry with all supported language parsers
func NewDefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()

	r.Register(NewCSharpParser())
	r.Register(NewJavaParser())

	return r
}
