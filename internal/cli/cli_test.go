package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/morozRed/ustgen/internal/parser"
	"github.com/morozRed/ustgen/internal/state"
	"github.com/morozRed/ustgen/internal/ust"
)

const greeterSource = `namespace Demo;

public class Greeter
{
    public string Greet(string name) { return name; }
}
`

const appSource = `namespace Demo;

public class App
{
    public void Run()
    {
        var g = new Greeter();
        g.Greet("x");
    }
}
`

func TestGenerateUpdateFlow(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "src", "Greeter.cs"), greeterSource)
	mustWriteFile(t, filepath.Join(root, "src", "App.cs"), appSource)

	first := runSummary(t, "generate", root, "--json")
	if first.Scanned != 2 || first.Transformed != 2 || first.Rewritten != 1 {
		t.Fatalf("unexpected generate summary: %+v", first)
	}
	outputPath := filepath.Join(root, state.DirName, "ust.json")
	assertExists(t, outputPath)
	assertExists(t, filepath.Join(root, state.DirName, state.StateFile))

	project := readProject(t, outputPath)
	if len(project.Files) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(project.Files))
	}
	if project.Files[0].FilePath != "src/App.cs" || project.Files[1].FilePath != "src/Greeter.cs" {
		t.Fatalf("expected roots in path order, got %s, %s", project.Files[0].FilePath, project.Files[1].FilePath)
	}
	before, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}

	unchanged := runSummary(t, "update", root, "--json")
	if unchanged.Transformed != 0 || unchanged.Reused != 2 || unchanged.Rewritten != 0 {
		t.Fatalf("expected a no-op update, got %+v", unchanged)
	}
	after, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("expected output to be left untouched by a no-op update")
	}

	mustWriteFile(t, filepath.Join(root, "src", "App.cs"), strings.Replace(appSource, `"x"`, `"y"`, 1))
	bodyEdit := runSummary(t, "update", root, "--json")
	if bodyEdit.Changed != 1 || bodyEdit.Transformed != 1 || bodyEdit.DeclsChanged {
		t.Fatalf("expected only App.cs to be rebuilt, got %+v", bodyEdit)
	}
	if len(bodyEdit.ChangedFiles) != 1 || bodyEdit.ChangedFiles[0] != "src/App.cs" {
		t.Fatalf("unexpected changed files %v", bodyEdit.ChangedFiles)
	}

	mustWriteFile(t, filepath.Join(root, "src", "Greeter.cs"), strings.Replace(greeterSource, "Greet(", "Welcome(", 1))
	declEdit := runSummary(t, "update", root, "--json")
	if !declEdit.DeclsChanged || declEdit.Transformed != 2 {
		t.Fatalf("expected a declaration change to rebuild every file, got %+v", declEdit)
	}
}

func TestUpdateDropsDeletedFiles(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "Greeter.cs"), greeterSource)
	mustWriteFile(t, filepath.Join(root, "App.cs"), appSource)
	runSummary(t, "generate", root, "--json")

	if err := os.Remove(filepath.Join(root, "App.cs")); err != nil {
		t.Fatal(err)
	}
	summary := runSummary(t, "update", root, "--json")
	if summary.Deleted != 1 || summary.Scanned != 1 || summary.Rewritten != 1 {
		t.Fatalf("unexpected summary after delete: %+v", summary)
	}
	if len(summary.DeletedFiles) != 1 || summary.DeletedFiles[0] != "App.cs" {
		t.Fatalf("unexpected deleted files %v", summary.DeletedFiles)
	}

	project := readProject(t, filepath.Join(root, state.DirName, "ust.json"))
	if len(project.Files) != 1 || project.Files[0].FilePath != "Greeter.cs" {
		t.Fatalf("expected only Greeter.cs to remain, got %d roots", len(project.Files))
	}
}

func TestGenerateJSONLWritesOneRootPerLine(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "Greeter.cs"), greeterSource)
	mustWriteFile(t, filepath.Join(root, "Main.java"), "package demo;\n\nclass Main {\n  void run() {}\n}\n")

	out := filepath.Join(root, "out", "tree.jsonl")
	runSummary(t, "generate", root, "--json", "--format", "jsonl", "--output", out)

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("expected jsonl output: %v", err)
	}
	defer f.Close()

	var languages []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		r, err := ust.DecodeRoot(scanner.Bytes())
		if err != nil {
			t.Fatalf("line is not a root: %v", err)
		}
		languages = append(languages, r.Language)
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	if strings.Join(languages, ",") != "csharp,java" {
		t.Fatalf("expected csharp then java roots, got %v", languages)
	}
}

func TestConfigChangeInvalidatesStoredRoots(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "Greeter.cs"), greeterSource)
	mustWriteFile(t, filepath.Join(root, "App.cs"), appSource)
	runSummary(t, "generate", root, "--json")

	mustWriteFile(t, filepath.Join(root, ".ustgen.toml"), "[capture]\nliterals = false\n")
	summary := runSummary(t, "update", root, "--json")
	if summary.Transformed != 2 {
		t.Fatalf("expected every file to be rebuilt after a policy change, got %+v", summary)
	}

	project := readProject(t, filepath.Join(root, state.DirName, "ust.json"))
	for _, r := range project.Files {
		if n := len(ust.Collect(r, ust.KindLiteralExpression)); n != 0 {
			t.Fatalf("%s: expected no literals, got %d", r.FilePath, n)
		}
	}
}

func TestStatsReportsStoredRoots(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "Greeter.cs"), greeterSource)
	mustWriteFile(t, filepath.Join(root, "App.cs"), appSource)
	runSummary(t, "generate", root, "--json")

	out, err := runCLI(t, "stats", root, "--json")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	var stats StatsSummary
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("stats output is not JSON: %v\n%s", err, out)
	}
	if stats.Files != 2 || stats.Languages["csharp"] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Nodes["root"] != 2 || stats.Nodes["class_declaration"] != 2 {
		t.Fatalf("unexpected node counts %v", stats.Nodes)
	}
	if stats.Nodes["method_declaration"] != 2 {
		t.Fatalf("expected Greet and Run, got %v", stats.Nodes)
	}

	text, err := runCLI(t, "stats", root)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(text, "files=2") || !strings.Contains(text, "class_declaration") {
		t.Fatalf("unexpected stats text:\n%s", text)
	}
}

func TestStatsWithoutStateFails(t *testing.T) {
	root := t.TempDir()
	if _, err := runCLI(t, "stats", root); err == nil || !strings.Contains(err.Error(), "no state found") {
		t.Fatalf("expected missing state error, got %v", err)
	}
	assertNotExists(t, filepath.Join(root, state.DirName))
}

func TestKindsListsRegistry(t *testing.T) {
	out, err := runCLI(t, "kinds", "--json")
	if err != nil {
		t.Fatalf("kinds failed: %v", err)
	}
	var tags []ust.KindTag
	if err := json.Unmarshal([]byte(out), &tags); err != nil {
		t.Fatalf("kinds output is not JSON: %v", err)
	}
	if len(tags) != len(ust.Kinds()) {
		t.Fatalf("expected %d kinds, got %d", len(ust.Kinds()), len(tags))
	}
	if tags[0] != (ust.KindTag{ID: 0, Name: "root"}) {
		t.Fatalf("unexpected first kind %+v", tags[0])
	}
}

func TestRejectsBadFlags(t *testing.T) {
	root := t.TempDir()
	cases := [][]string{
		{"generate", root, "--format", "xml"},
		{"generate", root, "--log-level", "loud"},
		{"generate", root, "--log-format", "yaml"},
		{"generate", root, "--workers", "-1"},
		{"generate", filepath.Join(root, "missing")},
	}
	for _, args := range cases {
		if _, err := runCLI(t, args...); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestWatchRebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "Greeter.cs"), greeterSource)
	mustWriteFile(t, filepath.Join(root, "App.cs"), appSource)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	summaries := make(chan RunSummary, 8)
	finished := make(chan error, 1)
	go func() {
		finished <- Watch(ctx, RunOptions{RootPath: root}, 30*time.Millisecond, func(s RunSummary) error {
			summaries <- s
			return nil
		})
	}()

	initial := waitForSummary(t, summaries)
	if initial.Transformed != 2 {
		t.Fatalf("expected initial build of 2 files, got %+v", initial)
	}

	time.Sleep(200 * time.Millisecond)
	mustWriteFile(t, filepath.Join(root, "App.cs"), strings.Replace(appSource, `"x"`, `"z"`, 1))

	rebuilt := waitForSummary(t, summaries)
	if rebuilt.Transformed != 1 || rebuilt.Changed != 1 {
		t.Fatalf("expected App.cs to be rebuilt, got %+v", rebuilt)
	}

	cancel()
	select {
	case err := <-finished:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func waitForSummary(t *testing.T, ch <-chan RunSummary) RunSummary {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a build")
		return RunSummary{}
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func runSummary(t *testing.T, args ...string) RunSummary {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("%s failed: %v", args[0], err)
	}
	var summary RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("%s printed invalid JSON: %v\n%s", args[0], err, out)
	}
	return summary
}

func readProject(t *testing.T, path string) *parser.Project {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	project, err := parser.DecodeProject(data)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return project
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to not exist, err=%v", path, err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}
