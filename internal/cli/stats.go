package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/morozRed/ustgen/internal/fileutil"
	"github.com/morozRed/ustgen/internal/state"
	"github.com/morozRed/ustgen/internal/traverse"
	"github.com/morozRed/ustgen/internal/ust"
)

// StatsSummary aggregates the stored roots of a project.
type StatsSummary struct {
	RootPath  string         `json:"root_path"`
	Files     int            `json:"files"`
	Lines     int            `json:"lines"`
	Languages map[string]int `json:"languages"`
	Nodes     map[string]int `json:"nodes"`
	Traversal traverse.Stats `json:"traversal"`
}

// RunStats reports node counts from the last generate or update without
// re-analysing anything.
func RunStats(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	rootPath, err := resolveProjectRoot(path)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	summary, err := CollectStats(rootPath)
	if err != nil {
		return err
	}
	return PrintStats(cmd.OutOrStdout(), summary, asJSON)
}

func CollectStats(rootPath string) (StatsSummary, error) {
	if _, err := os.Stat(filepath.Join(rootPath, state.DirName, state.StateFile)); err != nil {
		return StatsSummary{}, fmt.Errorf("no state found in %s; run `ustgen generate` first", rootPath)
	}
	store, err := state.Open(rootPath)
	if err != nil {
		return StatsSummary{}, fmt.Errorf("failed to open state: %w", err)
	}
	defer store.Close()

	st, err := store.Load()
	if err != nil {
		return StatsSummary{}, fmt.Errorf("failed to load state: %w", err)
	}

	summary := StatsSummary{
		RootPath:  rootPath,
		Languages: make(map[string]int),
		Nodes:     make(map[string]int),
	}
	for _, file := range fileutil.MapKeysSorted(st.Files) {
		fs := st.Files[file]
		root, ok := st.Root(file)
		if !ok {
			continue
		}
		summary.Files++
		summary.Lines += root.LineCount
		summary.Languages[fs.Language]++
		summary.Traversal.Add(fs.Stats)
		for kind, count := range ust.CountKinds(root) {
			summary.Nodes[kind.String()] += count
		}
	}
	return summary, nil
}

func PrintStats(w io.Writer, summary StatsSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	fmt.Fprintf(w, "files=%d lines=%d", summary.Files, summary.Lines)
	for _, lang := range fileutil.MapKeysSorted(summary.Languages) {
		fmt.Fprintf(w, " %s=%d", lang, summary.Languages[lang])
	}
	fmt.Fprintln(w)
	t := summary.Traversal
	fmt.Fprintf(w, "traversal: captured=%d disabled=%d no_identifier=%d failed=%d truncated=%d\n",
		t.Captured, t.Disabled, t.NoIdentifier, t.Failed, t.Truncated)

	kinds := make([]ust.Kind, 0, len(summary.Nodes))
	for name := range summary.Nodes {
		if k, ok := ust.KindByName(name); ok {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range kinds {
		fmt.Fprintf(tw, "%s\t%d\n", k, summary.Nodes[k.String()])
	}
	return tw.Flush()
}

// RunKinds prints the node kind registry.
func RunKinds(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	tags := make([]ust.KindTag, 0)
	for _, k := range ust.Kinds() {
		tags = append(tags, k.Tag())
	}
	if asJSON {
		return fileutil.PrintJSON(cmd.OutOrStdout(), tags)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, tag := range tags {
		fmt.Fprintf(tw, "%d\t%s\n", tag.ID, tag.Name)
	}
	return tw.Flush()
}
