package languages

import (
	"context"
	"encoding/json"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/ustgen/internal/config"
	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/traverse"
	"github.com/morozRed/ustgen/internal/ust"
)

type converter interface {
	Parse(ctx context.Context, content []byte) (*sitter.Tree, error)
	Declarations(tree *sitter.Tree, content []byte, path, assembly string) *semantic.FileDecls
	Transform(tree *sitter.Tree, content []byte, model semantic.Model, opts traverse.Options) (*ust.Root, traverse.Stats)
}

type converted struct {
	root  *ust.Root
	stats traverse.Stats
	decls *semantic.FileDecls
}

// convert runs both passes over a single file, indexing only that file.
func convert(t *testing.T, p converter, path, src string, policy config.Policy) converted {
	t.Helper()
	content := []byte(src)
	tree, err := p.Parse(context.Background(), content)
	require.NoError(t, err)
	defer tree.Close()

	decls := p.Declarations(tree, content, path, "App")
	index := semantic.NewIndex(nil)
	index.AddFile(decls)

	root, stats := p.Transform(tree, content, index.Scope(path), traverse.Options{Policy: policy, File: path})
	return converted{root: root, stats: stats, decls: decls}
}

// find returns the first node of kind k with the given identifier.
func find(t *testing.T, n ust.Node, k ust.Kind, identifier string) ust.Node {
	t.Helper()
	for _, c := range ust.Collect(n, k) {
		if c.Common().Identifier == identifier {
			return c
		}
	}
	t.Fatalf("no %s node %q", k, identifier)
	return nil
}

func identifiers(nodes []ust.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Common().Identifier)
	}
	return out
}

// requireOwnership checks that every node below root is reachable exactly
// once and points back at the node that owns it.
func requireOwnership(t *testing.T, root *ust.Root) {
	t.Helper()
	seen := make(map[ust.Node]bool)
	ust.Walk(root, func(n ust.Node) bool {
		require.False(t, seen[n], "node %s reached twice", n.Common().Identifier)
		seen[n] = true
		for _, c := range n.Common().Children {
			require.Same(t, n, c.Common().Parent())
		}
		return true
	})
	require.Nil(t, root.Parent())
}

func requireRoundTrip(t *testing.T, root *ust.Root) {
	t.Helper()
	data, err := json.Marshal(root)
	require.NoError(t, err)
	decoded, err := ust.DecodeRoot(data)
	require.NoError(t, err)
	require.True(t, ust.Equal(root, decoded))
	requireOwnership(t, decoded)
}
