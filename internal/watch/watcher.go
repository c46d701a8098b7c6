// Package watch recursively watches a project directory with fsnotify and
// reports batches of changed source files. Editors tend to write a file
// several times per save, so events are collected until the tree has been
// quiet for the debounce interval.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/morozRed/ustgen/internal/ignore"
)

const DefaultDebounce = 200 * time.Millisecond

// ErrStopped is returned by Run after Stop.
var ErrStopped = errors.New("watcher stopped")

// Options tune a Watcher.
type Options struct {
	// Accept reports whether a relative path is a source file worth
	// reporting. Nil accepts everything not ignored.
	Accept   func(relPath string) bool
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher reports changed files below a root directory.
type Watcher struct {
	fw       *fsnotify.Watcher
	root     string
	matcher  *ignore.Matcher
	accept   func(string) bool
	debounce time.Duration
	logger   *slog.Logger

	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

// New starts watching root and every directory below it that matcher
// does not ignore.
func New(root string, matcher *ignore.Matcher, opts Options) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if matcher == nil {
		matcher = ignore.NewMatcher(nil)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fw:       fw,
		root:     absRoot,
		matcher:  matcher,
		accept:   opts.Accept,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		done:     make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}
	if w.accept == nil {
		w.accept = func(string) bool { return true }
	}

	if err := w.addTree(absRoot); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers batches of changed relative paths (slash-separated,
// sorted) to onBatch until ctx is done or Stop is called. A failing
// batch is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onBatch func(ctx context.Context, files []string) error) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return ErrStopped
			}
			rel, ok := w.handle(event)
			if !ok {
				continue
			}
			pending[rel] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return ErrStopped
			}
			w.logger.Warn("watch error", "err", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			files := make([]string, 0, len(pending))
			for rel := range pending {
				files = append(files, rel)
			}
			sort.Strings(files)
			pending = make(map[string]bool)

			w.logger.Debug("change batch", "files", len(files))
			if err := onBatch(ctx, files); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Error("rebuild failed", "err", err)
			}

		case <-ctx.Done():
			return ctx.Err()

		case <-w.done:
			return ErrStopped
		}
	}
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}

// handle filters one event and returns the relative path to report.
func (w *Watcher) handle(event fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.matcher.ShouldIgnore(rel, true) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("watch directory failed", "dir", rel, "err", err)
				}
			}
			return "", false
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	if w.matcher.ShouldIgnore(rel, false) || !w.accept(rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.root {
			rel, relErr := filepath.Rel(w.root, path)
			if relErr == nil && w.matcher.ShouldIgnore(filepath.ToSlash(rel), true) {
				return filepath.SkipDir
			}
		}
		return w.fw.Add(path)
	})
}
