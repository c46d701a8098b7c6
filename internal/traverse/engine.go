// Package traverse implements the language-independent half of the UST
// conversion: descend a concrete tree, ask a language mapper for a node at
// every level, and splice the descendants of uncaptured levels into the
// nearest captured ancestor.
package traverse

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/morozRed/ustgen/internal/config"
	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/ust"
)

const maxLoggedText = 120

// Source exposes the concrete tree to the engine.
type Source[N any] interface {
	// Valid reports whether n is a real node (false for nil handles).
	Valid(n N) bool
	Children(n N) []N
	Kind(n N) string
	Text(n N) string
	Span(n N) ust.Location
}

// Mapper converts concrete nodes of one language into UST nodes.
type Mapper[N any] interface {
	// Classify names the UST kind n would map to; false means n has no
	// UST counterpart and always collapses.
	Classify(n N) (ust.Kind, bool)
	// Map builds the node for n. It is only called when the policy
	// captures the classified kind. A non-nil Reference is harvested into
	// the file's root once the node is captured.
	Map(n N) (ust.Node, *ust.Reference, error)
}

// Options configure one engine run.
type Options struct {
	Policy   config.Policy
	MaxDepth int
	Logger   *slog.Logger
	File     string
}

// Engine runs the traversal for one file. It is not safe for concurrent
// use; create one per file.
type Engine[N any] struct {
	src     Source[N]
	mapper  Mapper[N]
	locator semantic.Locator
	opts    Options

	root  *ust.Root
	stats Stats
}

func New[N any](src Source[N], mapper Mapper[N], locator semantic.Locator, opts Options) *Engine[N] {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = config.DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if locator == nil {
		locator = semantic.Empty{}
	}
	return &Engine[N]{src: src, mapper: mapper, locator: locator, opts: opts}
}

// Run converts the tree rooted at top into a Root. It never fails: nodes
// that cannot be mapped collapse into their parent and are reported
// through the logger and the returned Stats.
func (e *Engine[N]) Run(top N) (*ust.Root, Stats) {
	e.root = ust.NewRoot()
	e.stats = newStats()
	if !e.src.Valid(top) {
		return e.root, e.stats
	}
	ust.Adopt(e.root, e.children(top, 0))
	return e.root, e.stats
}

// children applies the per-node step to every child of n and concatenates
// the results in source order.
func (e *Engine[N]) children(n N, depth int) []ust.Node {
	var out []ust.Node
	for _, child := range e.src.Children(n) {
		out = append(out, e.step(child, depth+1)...)
	}
	return out
}

func (e *Engine[N]) step(n N, depth int) []ust.Node {
	if !e.src.Valid(n) {
		return nil
	}
	if depth > e.opts.MaxDepth {
		e.stats.Truncated++
		e.opts.Logger.Warn("concrete tree too deep, skipping subtree",
			slog.String("file", e.opts.File),
			slog.String("kind", e.src.Kind(n)),
			slog.Int("depth", depth))
		return nil
	}

	a := e.attempt(n)
	e.stats.record(a)
	if a.Reason != Captured {
		// Collapse: the level disappears, its descendants move up.
		return e.children(n, depth)
	}

	ust.Adopt(a.Node, e.children(n, depth))
	if a.Reference != nil {
		e.harvest(*a.Reference)
	}
	return []ust.Node{a.Node}
}

// attempt classifies, gates and maps n. Disabled kinds never reach the
// mapper; mapper errors and panics become Failed attempts.
func (e *Engine[N]) attempt(n N) (a Attempt) {
	kind, ok := e.mapper.Classify(n)
	if !ok {
		return Attempt{Reason: Unmapped}
	}
	a.Kind = kind
	if !e.opts.Policy.Captures(kind) {
		a.Reason = Disabled
		e.opts.Logger.Debug("node kind disabled",
			slog.String("file", e.opts.File),
			slog.String("kind", kind.String()),
			slog.String("reason", a.Reason.String()))
		return a
	}

	defer func() {
		if r := recover(); r != nil {
			a = Attempt{Kind: kind, Reason: Failed, Err: fmt.Errorf("mapper panic: %v", r)}
			e.logFailure(n, a)
		}
	}()

	node, ref, err := e.mapper.Map(n)
	switch {
	case err != nil:
		a.Reason, a.Err = Failed, err
		e.logFailure(n, a)
	case node == nil || strings.TrimSpace(node.Common().Identifier) == "":
		a.Reason = NoIdentifier
	default:
		a.Reason, a.Node, a.Reference = Captured, node, ref
		if e.opts.Policy.CollectLocationData {
			loc := e.src.Span(n)
			node.Common().Location = &loc
		}
	}
	return a
}

func (e *Engine[N]) logFailure(n N, a Attempt) {
	e.opts.Logger.Warn("failed to map node",
		slog.String("file", e.opts.File),
		slog.String("kind", e.src.Kind(n)),
		slog.String("ust_kind", a.Kind.String()),
		slog.String("text", truncate(e.src.Text(n), maxLoggedText)),
		slog.String("reason", a.Reason.String()),
		slog.Any("error", a.Err))
}

// harvest records ref on the file root unless reference collection is off
// or an equal reference is already present.
func (e *Engine[N]) harvest(ref ust.Reference) {
	if !e.opts.Policy.CollectReferenceData {
		return
	}
	if ref.Namespace == "" && ref.Assembly == "" {
		return
	}
	if e.root.HasReference(ref) {
		return
	}
	ref.AssemblyLocation = e.locator.AssemblyLocation(ref.Assembly)
	e.root.AddReference(ref)
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
