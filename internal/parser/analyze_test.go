package parser

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/ustgen/internal/config"
	"github.com/morozRed/ustgen/internal/ust"
)

func newTestAnalyzer(t *testing.T, root string) (*Analyzer, *mockParser) {
	t.Helper()
	mock := &mockParser{lang: "mock", exts: []string{".mock"}}
	r := NewRegistry()
	r.Register(mock)

	cfg := config.Default(root)
	cfg.Analysis.Workers = 2
	a, err := NewAnalyzer(r, cfg, nil)
	require.NoError(t, err)
	return a, mock
}

func priorOf(result *Result) map[string]Prior {
	out := make(map[string]Prior, len(result.Files))
	for _, f := range result.Files {
		out[f.Path] = Prior{Hash: f.Hash, DeclsHash: f.DeclsHash, Decls: f.Decls, Root: f.Root, Stats: f.Stats}
	}
	return out
}

func classOf(t *testing.T, root *ust.Root) *ust.ClassDeclaration {
	t.Helper()
	require.Len(t, root.Children, 1)
	class, ok := root.Children[0].(*ust.ClassDeclaration)
	require.True(t, ok, "expected class node, got %T", root.Children[0])
	return class
}

func TestAnalyzeResolvesAcrossFiles(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.mock"), "Alpha\nbody\n")
	mustWriteFile(t, filepath.Join(root, "lib", "shared.mock"), "Shared\n")

	a, _ := newTestAnalyzer(t, root)
	result, err := a.Analyze(context.Background(), root, nil)
	require.NoError(t, err)
	require.Len(t, result.Files, 2)
	assert.Empty(t, result.Issues)
	assert.True(t, result.DeclsChanged)
	assert.Equal(t, 2, result.Transformed)
	assert.Equal(t, 2, result.Stats.Captured)

	alpha := result.Files[0]
	assert.Equal(t, "a.mock", alpha.Path)
	assert.Equal(t, "mock", alpha.Language)
	assert.NotEmpty(t, alpha.Hash)
	assert.NotEmpty(t, alpha.DeclsHash)

	r := alpha.Root
	assert.Equal(t, "a.mock", r.Identifier)
	assert.Equal(t, "a.mock", r.FilePath)
	assert.Equal(t, filepath.Join(root, "a.mock"), r.FileFullPath)
	assert.Equal(t, "mock", r.Language)
	assert.Equal(t, 2, r.LineCount)

	class := classOf(t, r)
	assert.Equal(t, "Alpha", class.Identifier)
	assert.Equal(t, "demo.Shared", class.BaseType)
	assert.Same(t, ust.Node(r), class.Parent())
}

func TestRunReusesUnchangedRoots(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.mock"), "Alpha\nbody\n")
	mustWriteFile(t, filepath.Join(root, "b.mock"), "Beta\n")
	files := []string{"a.mock", "b.mock"}

	a, mock := newTestAnalyzer(t, root)
	first, err := a.Run(context.Background(), root, files, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, mock.transforms.Load())

	// Body-only edit: declarations are unchanged, so only a.mock is rebuilt.
	mustWriteFile(t, filepath.Join(root, "a.mock"), "Alpha\nother body\nmore\n")
	second, err := a.Run(context.Background(), root, files, priorOf(first))
	require.NoError(t, err)
	assert.False(t, second.DeclsChanged)
	assert.Equal(t, 1, second.Transformed)
	assert.EqualValues(t, 3, mock.transforms.Load())
	assert.False(t, second.Files[0].Reused)
	assert.True(t, second.Files[1].Reused)
	assert.Same(t, first.Files[1].Root, second.Files[1].Root)
	assert.Equal(t, 3, second.Files[0].Root.LineCount)

	// A declaration edit rebuilds every file.
	mustWriteFile(t, filepath.Join(root, "b.mock"), "Gamma\n")
	third, err := a.Run(context.Background(), root, files, priorOf(second))
	require.NoError(t, err)
	assert.True(t, third.DeclsChanged)
	assert.Equal(t, 2, third.Transformed)
	assert.Equal(t, "Gamma", classOf(t, third.Files[1].Root).Identifier)
}

func TestRunTreatsDeletionAsDeclarationChange(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.mock"), "Alpha\n")
	mustWriteFile(t, filepath.Join(root, "shared.mock"), "Shared\n")

	a, _ := newTestAnalyzer(t, root)
	first, err := a.Run(context.Background(), root, []string{"a.mock", "shared.mock"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "demo.Shared", classOf(t, first.Files[0].Root).BaseType)

	require.NoError(t, os.Remove(filepath.Join(root, "shared.mock")))
	second, err := a.Run(context.Background(), root, []string{"a.mock"}, priorOf(first))
	require.NoError(t, err)
	assert.True(t, second.DeclsChanged)
	require.Len(t, second.Files, 1)
	assert.False(t, second.Files[0].Reused)
	assert.Empty(t, classOf(t, second.Files[0].Root).BaseType)
}

func TestRunCollectsFileIssues(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "good.mock"), "Good\n")
	mustWriteFile(t, filepath.Join(root, "bad.mock"), "Bad !!\n")

	a, _ := newTestAnalyzer(t, root)
	result, err := a.Run(context.Background(), root, []string{"bad.mock", "gone.mock", "good.mock"}, nil)
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, "good.mock", result.Files[0].Path)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, "bad.mock", result.Issues[0].File)
	assert.Contains(t, result.Issues[0].Message, "parse failed")
	assert.Equal(t, "gone.mock", result.Issues[1].File)
	assert.Contains(t, result.Issues[1].Message, "read failed")
	assert.Equal(t, "error", result.Issues[1].Severity)
}

func TestRunHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.mock"), "Alpha\n")

	a, mock := newTestAnalyzer(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx, root, []string{"a.mock"}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mock.transforms.Load())
}

func TestLineCount(t *testing.T) {
	cases := map[string]int{
		"":           0,
		"x":          1,
		"x\n":        1,
		"x\ny":       2,
		"x\ny\n":     2,
		"\n\n":       2,
		"a\r\nb\r\n": 2,
	}
	for content, want := range cases {
		assert.Equal(t, want, lineCount([]byte(content)), "content %q", content)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.mock"), "Alpha\n")
	mustWriteFile(t, filepath.Join(root, "shared.mock"), "Shared\n")

	a, _ := newTestAnalyzer(t, root)
	result, err := a.Analyze(context.Background(), root, nil)
	require.NoError(t, err)

	project := result.Project(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	data, err := json.Marshal(project)
	require.NoError(t, err)

	decoded, err := DecodeProject(data)
	require.NoError(t, err)
	assert.Equal(t, project.RootPath, decoded.RootPath)
	assert.True(t, project.GeneratedAt.Equal(decoded.GeneratedAt))
	require.Len(t, decoded.Files, len(project.Files))
	for i := range project.Files {
		assert.True(t, ust.Equal(project.Files[i], decoded.Files[i]), "file %d differs", i)
		class := classOf(t, decoded.Files[i])
		assert.Same(t, ust.Node(decoded.Files[i]), class.Parent())
	}
	assert.Equal(t, project.Stats.Captured, decoded.Stats.Captured)
}

func TestOnTransformReportsRebuiltFiles(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.mock"), "Alpha\n")
	mustWriteFile(t, filepath.Join(root, "b.mock"), "Beta\n")
	files := []string{"a.mock", "b.mock"}

	a, _ := newTestAnalyzer(t, root)
	var mu sync.Mutex
	var seen []string
	a.OnTransform(func(path string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, path)
	})

	first, err := a.Run(context.Background(), root, files, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, files, seen)

	seen = nil
	_, err = a.Run(context.Background(), root, files, priorOf(first))
	require.NoError(t, err)
	assert.Empty(t, seen, "reused roots are not reported")
}
