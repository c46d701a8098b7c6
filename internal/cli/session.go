package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/morozRed/ustgen/internal/config"
	"github.com/morozRed/ustgen/internal/fileutil"
	"github.com/morozRed/ustgen/internal/languages"
	"github.com/morozRed/ustgen/internal/parser"
	"github.com/morozRed/ustgen/internal/state"
)

// RunOptions are the inputs shared by generate, update and watch.
type RunOptions struct {
	RootPath   string
	Format     Format
	OutputPath string // empty selects DefaultOutputPath
	Workers    int    // overrides the configured worker count when > 0
	Logger     *slog.Logger
	Progress   bool
}

// Session holds everything one project needs across builds: the loaded
// configuration, the analyzer with its assembly cache and the open
// state store. Watch mode keeps one session for its whole lifetime.
type Session struct {
	opts     RunOptions
	cfg      *config.Config
	registry *parser.Registry
	analyzer *parser.Analyzer
	store    *state.Store
	logger   *slog.Logger
}

func OpenSession(opts RunOptions) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath(opts.RootPath, opts.Format)
	} else if !filepath.IsAbs(opts.OutputPath) {
		opts.OutputPath = filepath.Join(opts.RootPath, opts.OutputPath)
	}

	cfg, err := config.Load(opts.RootPath)
	if err != nil {
		return nil, err
	}
	if opts.Workers > 0 {
		cfg.Analysis.Workers = opts.Workers
	}

	registry := languages.NewDefaultRegistry()
	analyzer, err := parser.NewAnalyzer(registry, cfg, opts.Logger)
	if err != nil {
		return nil, err
	}
	store, err := state.Open(opts.RootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	return &Session{
		opts:     opts,
		cfg:      cfg,
		registry: registry,
		analyzer: analyzer,
		store:    store,
		logger:   opts.Logger,
	}, nil
}

func (s *Session) Close() error {
	return s.store.Close()
}

// Config returns the loaded project configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Registry returns the language registry used by the analyzer.
func (s *Session) Registry() *parser.Registry {
	return s.registry
}

// Build analyses the project and writes the output document. A full
// build ignores stored roots; an incremental one reuses the roots of
// unchanged files.
func (s *Session) Build(ctx context.Context, mode string, incremental bool) (RunSummary, error) {
	start := time.Now()

	st, err := s.store.Load()
	if err != nil {
		s.logger.Warn("stored state unreadable; rebuilding from scratch", slog.Any("err", err))
		if err := s.store.Reset(); err != nil {
			return RunSummary{}, fmt.Errorf("failed to reset state: %w", err)
		}
		st = state.NewState()
	}
	if st.UsePolicy(s.cfg.Fingerprint()) {
		s.logger.Info("configuration changed; stored roots invalidated")
	}

	var prior map[string]parser.Prior
	if incremental {
		prior = st.Prior()
	}

	progress := newProgressReporter(mode, s.opts.Progress)
	s.analyzer.OnTransform(progress.Update)
	result, err := s.analyzer.Analyze(ctx, s.opts.RootPath, prior)
	progress.Done()
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to analyse %s: %w", s.opts.RootPath, err)
	}
	for _, issue := range result.Issues {
		s.logger.Warn("file skipped",
			slog.String("file", issue.File),
			slog.String("language", issue.Language),
			slog.String("severity", issue.Severity),
			slog.String("message", issue.Message),
		)
	}

	current := make(map[string]bool, len(result.Files))
	changed := make([]string, 0)
	for _, rec := range result.Files {
		current[rec.Path] = true
		if st.HasChanged(rec.Path, rec.Hash) {
			changed = append(changed, rec.Path)
		}
	}
	deleted := st.DeletedFiles(current)
	st.Apply(result)

	dirty := result.Transformed > 0 || len(changed) > 0 || len(deleted) > 0
	rewritten, err := s.writeOutput(st, result, dirty)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to write output: %w", err)
	}
	if err := s.store.Save(st); err != nil {
		return RunSummary{}, fmt.Errorf("failed to persist state: %w", err)
	}

	return RunSummary{
		Mode:         mode,
		Format:       string(s.opts.Format),
		RootPath:     s.opts.RootPath,
		Output:       s.opts.OutputPath,
		Scanned:      len(result.Files),
		Transformed:  result.Transformed,
		Reused:       MaxInt(len(result.Files)-result.Transformed, 0),
		Rewritten:    rewritten,
		Changed:      len(changed),
		Deleted:      len(deleted),
		Issues:       len(result.Issues),
		Nodes:        result.Stats.Captured,
		Failed:       result.Stats.Failed,
		DeclsChanged: result.DeclsChanged,
		DurationMS:   time.Since(start).Milliseconds(),
		ChangedFiles: changed,
		DeletedFiles: deleted,
	}, nil
}

// writeOutput renders the project document. When nothing changed and
// the file on disk still matches the recorded hash it is left alone, so
// generated_at only moves when the content does.
func (s *Session) writeOutput(st *state.State, result *parser.Result, dirty bool) (int, error) {
	key := s.outputKey()
	if !dirty {
		if stored, ok := st.GetOutputHash(key); ok {
			if onDisk, err := fileutil.HashFile(s.opts.OutputPath); err == nil && onDisk == stored {
				return 0, nil
			}
		}
	}

	data, err := EncodeProject(result.Project(time.Now()), s.opts.Format)
	if err != nil {
		return 0, err
	}
	written, err := fileutil.WriteIfChangedTracked(s.opts.OutputPath, data)
	if err != nil {
		return 0, err
	}
	st.SetOutputHash(key, fileutil.HashBytes(data))
	if written {
		return 1, nil
	}
	return 0, nil
}

// outputKey names the output file in state, relative to the project
// when it lives inside it.
func (s *Session) outputKey() string {
	rel, err := filepath.Rel(s.opts.RootPath, s.opts.OutputPath)
	if err != nil || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(s.opts.OutputPath)
	}
	return filepath.ToSlash(rel)
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
