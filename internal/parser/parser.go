package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/morozRed/ustgen/internal/ignore"
	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/traverse"
	"github.com/morozRed/ustgen/internal/ust"
)

// LanguageParser defines the interface each language must implement
type LanguageParser interface {
	// Language returns the language name (e.g., "csharp", "java")
	Language() string

	// Extensions returns file extensions this parser handles
	Extensions() []string

	// Parse builds the concrete tree. The caller closes it.
	Parse(ctx context.Context, content []byte) (*sitter.Tree, error)

	// Declarations collects the types and members a file declares, for
	// the project-wide semantic index.
	Declarations(tree *sitter.Tree, content []byte, path, assembly string) *semantic.FileDecls

	// Transform converts the tree into the file's UST root.
	Transform(tree *sitter.Tree, content []byte, model semantic.Model, opts traverse.Options) (*ust.Root, traverse.Stats)
}

// Registry holds all registered language parsers
type Registry struct {
	parsers   map[string]LanguageParser // language name -> parser
	extToLang map[string]string         // extension -> language name
}

// NewRegistry creates a new parser registry
func NewRegistry() *Registry {
	return &Registry{
		parsers:   make(map[string]LanguageParser),
		extToLang: make(map[string]string),
	}
}

// Register adds a language parser to the registry
func (r *Registry) Register(p LanguageParser) {
	lang := p.Language()
	r.parsers[lang] = p
	for _, ext := range p.Extensions() {
		r.extToLang[strings.ToLower(ext)] = lang
	}
}

// GetParserForFile returns the appropriate parser for a file
func (r *Registry) GetParserForFile(filename string) (LanguageParser, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	parser, ok := r.parsers[lang]
	return parser, ok
}

// SupportedExtensions returns all supported file extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Languages returns the registered language names, sorted.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.parsers))
	for lang := range r.parsers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Discover walks root and returns the slash-separated relative paths of
// every supported, non-ignored file in lexical order. Walk errors become
// issues; the walk itself only fails when root is unusable.
func (r *Registry) Discover(root string, matcher *ignore.Matcher) ([]string, []ParseIssue, error) {
	if matcher == nil {
		matcher = ignore.NewMatcher(nil)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", root)
	}

	files := make([]string, 0)
	issues := make([]ParseIssue, 0)

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		relPath := path
		if rel, relErr := filepath.Rel(root, path); relErr == nil {
			relPath = filepath.ToSlash(rel)
		}
		if err != nil {
			issues = append(issues, ParseIssue{
				File:     relPath,
				Severity: "warning",
				Message:  fmt.Sprintf("walk error: %v", err),
			})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if relPath == "." {
			return nil
		}

		// Skip directories and ignored paths
		if matcher.ShouldIgnore(relPath, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		if _, ok := r.GetParserForFile(path); ok {
			files = append(files, relPath)
		}
		return nil
	})

	sort.Strings(files)
	sortIssues(issues)
	return files, issues, err
}

func sortIssues(issues []ParseIssue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].File == issues[j].File {
			return issues[i].Message < issues[j].Message
		}
		return issues[i].File < issues[j].File
	})
}
