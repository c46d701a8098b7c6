package bench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/morozRed/ustgen/internal/config"
	"github.com/morozRed/ustgen/internal/languages"
	"github.com/morozRed/ustgen/internal/parser"
	"github.com/morozRed/ustgen/internal/ust"
)

func BenchmarkAnalyze_MediumRepo(b *testing.B) {
	root := b.TempDir()
	createSyntheticCSharpRepo(b, root, 250)
	analyzer := newAnalyzer(b, root)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := analyzer.Analyze(context.Background(), root, nil)
		if err != nil {
			b.Fatalf("analyze failed: %v", err)
		}
		if len(result.Files) != 250 {
			b.Fatalf("expected 250 files, got %d", len(result.Files))
		}
	}
}

func BenchmarkUpdate_OneBodyEdit(b *testing.B) {
	root := b.TempDir()
	createSyntheticCSharpRepo(b, root, 250)
	analyzer := newAnalyzer(b, root)

	first, err := analyzer.Analyze(context.Background(), root, nil)
	if err != nil {
		b.Fatalf("analyze failed: %v", err)
	}
	prior := priorOf(first)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		writeFile(b, filepath.Join(root, "Pkg0", "File000.cs"), fileSource(0, i+1))
		b.StartTimer()

		result, err := analyzer.Analyze(context.Background(), root, prior)
		if err != nil {
			b.Fatalf("analyze failed: %v", err)
		}
		if result.Transformed != 1 {
			b.Fatalf("expected one rebuilt file, got %d", result.Transformed)
		}
		prior = priorOf(result)
	}
}

// BenchmarkResolutionRate reports the share of invocations whose callee
// resolved to a signature.
func BenchmarkResolutionRate(b *testing.B) {
	root := b.TempDir()
	createSyntheticCSharpRepo(b, root, 50)
	analyzer := newAnalyzer(b, root)

	var rate float64
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := analyzer.Analyze(context.Background(), root, nil)
		if err != nil {
			b.Fatalf("analyze failed: %v", err)
		}
		rate = resolutionRate(result)
	}
	b.StopTimer()
	b.ReportMetric(rate, "resolved/call")
}

func resolutionRate(result *parser.Result) float64 {
	total, resolved := 0, 0
	for _, f := range result.Files {
		for _, n := range ust.Collect(f.Root, ust.KindInvocationExpression) {
			total++
			if n.(*ust.InvocationExpression).SemanticMethodSignature != "" {
				resolved++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(resolved) / float64(total)
}

func newAnalyzer(tb testing.TB, root string) *parser.Analyzer {
	tb.Helper()
	a, err := parser.NewAnalyzer(languages.NewDefaultRegistry(), config.Default(root), nil)
	if err != nil {
		tb.Fatalf("analyzer: %v", err)
	}
	return a
}

func priorOf(result *parser.Result) map[string]parser.Prior {
	out := make(map[string]parser.Prior, len(result.Files))
	for _, f := range result.Files {
		out[f.Path] = parser.Prior{Hash: f.Hash, DeclsHash: f.DeclsHash, Decls: f.Decls, Root: f.Root, Stats: f.Stats}
	}
	return out
}

func createSyntheticCSharpRepo(tb testing.TB, root string, files int) {
	tb.Helper()
	for i := 0; i < files; i++ {
		path := filepath.Join(root, fmt.Sprintf("Pkg%d", i%10), fmt.Sprintf("File%03d.cs", i))
		writeFile(tb, path, fileSource(i, 0))
	}
}

// fileSource declares Type<i>, which calls into Type<i-1>. body only
// changes a literal so declarations stay stable.
func fileSource(i, body int) string {
	prev := i - 1
	if prev < 0 {
		prev = 0
	}
	return fmt.Sprintf(`namespace Bench.Pkg%d
{
    using Bench.Pkg%d;

    public class Type%d
    {
        public int Compute(int x)
        {
            var other = new Type%d();
            return other.Helper(x) + %d;
        }

        public int Helper(int x) { return x; }
    }
}
`, i%10, prev%10, i, prev, body)
}

func writeFile(tb testing.TB, path, content string) {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		tb.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		tb.Fatalf("write failed: %v", err)
	}
}
