package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/morozRed/ustgen/internal/config"
	"github.com/morozRed/ustgen/internal/fileutil"
	"github.com/morozRed/ustgen/internal/ignore"
	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/traverse"
	"github.com/morozRed/ustgen/internal/ust"
)

// Analyzer turns a set of project files into UST roots in two passes:
// every file's declarations are indexed first, then each file is
// traversed in parallel against that index.
type Analyzer struct {
	registry *Registry
	cfg      *config.Config
	logger   *slog.Logger
	locator  semantic.Locator
	progress func(path string)
}

// NewAnalyzer wires the registry to a configuration. The assembly locator
// (and its cache) lives as long as the analyzer, so repeated runs in watch
// mode share it.
func NewAnalyzer(registry *Registry, cfg *config.Config, logger *slog.Logger) (*Analyzer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	locator, err := semantic.NewAssemblyLocator(cfg.Assemblies, cfg.Analysis.LibPaths, cfg.Analysis.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create assembly locator: %w", err)
	}
	return &Analyzer{registry: registry, cfg: cfg, logger: logger, locator: locator}, nil
}

// OnTransform registers fn to be called after each file is rebuilt in
// pass two. fn runs on worker goroutines and must be safe for concurrent use.
func (a *Analyzer) OnTransform(fn func(path string)) {
	a.progress = fn
}

// Matcher builds the ignore matcher for rootPath: built-in defaults, the
// project's ignore file, configured excludes, then configured includes.
func Matcher(rootPath string, cfg *config.Config) (*ignore.Matcher, error) {
	rules, err := ignore.LoadRules(rootPath)
	if err != nil {
		return nil, err
	}
	rules = append(rules, cfg.Exclude...)
	return ignore.NewMatcher(rules).WithInclude(cfg.Include), nil
}

// Analyze discovers the project's files and runs both passes over them.
func (a *Analyzer) Analyze(ctx context.Context, rootPath string, prior map[string]Prior) (*Result, error) {
	matcher, err := Matcher(rootPath, a.cfg)
	if err != nil {
		return nil, err
	}
	files, walkIssues, err := a.registry.Discover(rootPath, matcher)
	if err != nil {
		return nil, err
	}
	result, err := a.Run(ctx, rootPath, files, prior)
	if err != nil {
		return nil, err
	}
	result.Issues = append(result.Issues, walkIssues...)
	sortIssues(result.Issues)
	return result, nil
}

// unit is the per-file working set. Each worker writes only its own unit.
type unit struct {
	path      string
	fullPath  string
	parser    LanguageParser
	content   []byte
	hash      string
	tree      *sitter.Tree
	decls     *semantic.FileDecls
	declsHash string

	prior    Prior
	hasPrior bool

	record FileRecord
	issue  *ParseIssue
}

// Run analyses files (relative to rootPath). A file whose hash and the
// project's declarations both match prior reuses its stored root; any
// declaration change rebuilds every file, since lookups in one file may
// resolve through another file's types.
func (a *Analyzer) Run(ctx context.Context, rootPath string, files []string, prior map[string]Prior) (*Result, error) {
	units := make([]*unit, 0, len(files))
	for _, rel := range files {
		p, ok := a.registry.GetParserForFile(rel)
		if !ok {
			continue
		}
		u := &unit{
			path:     filepath.ToSlash(rel),
			fullPath: absPath(filepath.Join(rootPath, filepath.FromSlash(rel))),
			parser:   p,
		}
		u.prior, u.hasPrior = prior[u.path]
		units = append(units, u)
	}
	defer func() {
		for _, u := range units {
			if u.tree != nil {
				u.tree.Close()
			}
		}
	}()

	if err := a.forEach(ctx, units, a.declare); err != nil {
		return nil, err
	}

	index := semantic.NewIndex(a.locator)
	current := make(map[string]bool, len(units))
	declsChanged := false
	for _, u := range units {
		if u.issue != nil {
			continue
		}
		current[u.path] = true
		index.AddFile(u.decls)
		if !u.hasPrior || u.prior.DeclsHash != u.declsHash {
			declsChanged = true
		}
	}
	for path := range prior {
		if !current[path] {
			declsChanged = true
		}
	}

	err := a.forEach(ctx, units, func(ctx context.Context, u *unit) {
		a.transform(ctx, u, index, declsChanged)
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		RootPath:     rootPath,
		Files:        make([]FileRecord, 0, len(units)),
		Issues:       make([]ParseIssue, 0),
		DeclsChanged: declsChanged,
	}
	for _, u := range units {
		if u.issue != nil {
			result.Issues = append(result.Issues, *u.issue)
			continue
		}
		if !u.record.Reused {
			result.Transformed++
		}
		result.Stats.Add(u.record.Stats)
		result.Files = append(result.Files, u.record)
	}
	sortIssues(result.Issues)

	a.logger.Info("analysis finished",
		slog.Int("files", len(result.Files)),
		slog.Int("transformed", result.Transformed),
		slog.Int("issues", len(result.Issues)),
		slog.Int("indexed_types", index.Len()),
		slog.Bool("decls_changed", declsChanged),
	)
	return result, nil
}

// forEach runs fn over units with the configured worker limit. The
// context is checked before each file starts; files already running are
// allowed to finish.
func (a *Analyzer) forEach(ctx context.Context, units []*unit, fn func(context.Context, *unit)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.WorkerCount())
	for _, u := range units {
		if u.issue != nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(gctx, u)
			return nil
		})
	}
	return g.Wait()
}

// declare is pass one: read, hash and collect declarations. Unchanged
// files reuse their stored declarations without parsing.
func (a *Analyzer) declare(ctx context.Context, u *unit) {
	content, err := os.ReadFile(u.fullPath)
	if err != nil {
		u.fail("error", fmt.Sprintf("read failed: %v", err))
		return
	}
	u.content = content
	u.hash = fileutil.HashBytes(content)

	if u.hasPrior && u.prior.Hash == u.hash && u.prior.Decls != nil && u.prior.DeclsHash != "" {
		u.decls = u.prior.Decls
		u.declsHash = u.prior.DeclsHash
		return
	}
	if !u.parse(ctx) {
		return
	}
	u.decls = u.parser.Declarations(u.tree, u.content, u.path, a.cfg.Analysis.Assembly)
	u.declsHash = DeclsHash(u.decls)
}

// transform is pass two.
func (a *Analyzer) transform(ctx context.Context, u *unit, index *semantic.Index, declsChanged bool) {
	u.record = FileRecord{
		Path:      u.path,
		Language:  u.parser.Language(),
		Hash:      u.hash,
		DeclsHash: u.declsHash,
		Decls:     u.decls,
	}
	if !declsChanged && u.hasPrior && u.prior.Root != nil && u.prior.Hash == u.hash {
		u.record.Root = u.prior.Root
		u.record.Stats = u.prior.Stats
		u.record.Reused = true
		return
	}
	if u.tree == nil && !u.parse(ctx) {
		return
	}

	root, stats := u.parser.Transform(u.tree, u.content, index.Scope(u.path), traverse.Options{
		Policy:   a.cfg.Capture,
		MaxDepth: a.cfg.Analysis.MaxDepth,
		Logger:   a.logger.With(slog.String("file", u.path)),
		File:     u.path,
	})
	u.record.Root = Assemble(root, FileInfo{
		Path:     u.path,
		FullPath: u.fullPath,
		Language: u.parser.Language(),
		Content:  u.content,
	})
	u.record.Stats = stats
	if a.progress != nil {
		a.progress(u.path)
	}
	if stats.Failed > 0 {
		a.logger.Warn("file converted with failures",
			slog.String("file", u.path),
			slog.Int("failed", stats.Failed),
		)
	}
}

func (u *unit) parse(ctx context.Context) bool {
	tree, err := u.parser.Parse(ctx, u.content)
	if err != nil {
		u.fail("error", fmt.Sprintf("parse failed: %v", err))
		return false
	}
	u.tree = tree
	return true
}

func (u *unit) fail(severity, message string) {
	u.issue = &ParseIssue{
		File:     u.path,
		Language: u.parser.Language(),
		Severity: severity,
		Message:  message,
	}
}

// DeclsHash fingerprints a file's declarations.
func DeclsHash(decls *semantic.FileDecls) string {
	data, err := json.Marshal(decls)
	if err != nil {
		return ""
	}
	return fileutil.HashBytes(data)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// RootsByPath indexes the roots of a result by relative path.
func (r *Result) RootsByPath() map[string]*ust.Root {
	out := make(map[string]*ust.Root, len(r.Files))
	for _, f := range r.Files {
		out[f.Path] = f.Root
	}
	return out
}
