package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/morozRed/ustgen/internal/fileutil"
)

type RunSummary struct {
	Mode         string   `json:"mode"`
	Format       string   `json:"format,omitempty"`
	RootPath     string   `json:"root_path"`
	Output       string   `json:"output,omitempty"`
	Scanned      int      `json:"scanned"`
	Transformed  int      `json:"transformed"`
	Reused       int      `json:"reused"`
	Rewritten    int      `json:"rewritten"`
	Changed      int      `json:"changed"`
	Deleted      int      `json:"deleted"`
	Issues       int      `json:"issues"`
	Nodes        int      `json:"nodes"`
	Failed       int      `json:"failed"`
	DeclsChanged bool     `json:"decls_changed"`
	DurationMS   int64    `json:"duration_ms"`
	ChangedFiles []string `json:"changed_files,omitempty"`
	DeletedFiles []string `json:"deleted_files,omitempty"`
}

func PrintRunSummary(w io.Writer, summary RunSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	if summary.Mode == "generate" {
		fmt.Fprintf(w, "generate complete in %dms\n", summary.DurationMS)
		if summary.Output != "" {
			fmt.Fprintf(w, "output: %s (%s)\n", summary.Output, summary.Format)
		}
		fmt.Fprintf(w, "files: scanned=%d transformed=%d issues=%d\n", summary.Scanned, summary.Transformed, summary.Issues)
		fmt.Fprintf(w, "nodes: captured=%d failed=%d\n", summary.Nodes, summary.Failed)
		return nil
	}

	fmt.Fprintf(w,
		"%s: scanned=%d transformed=%d reused=%d rewritten=%d changed=%d deleted=%d issues=%d duration=%dms\n",
		summary.Mode,
		summary.Scanned,
		summary.Transformed,
		summary.Reused,
		summary.Rewritten,
		summary.Changed,
		summary.Deleted,
		summary.Issues,
		summary.DurationMS,
	)
	if len(summary.ChangedFiles) > 0 {
		fmt.Fprintf(w, "changed files (%d): %s\n", len(summary.ChangedFiles), SummarizePaths(summary.ChangedFiles, 8))
	}
	if len(summary.DeletedFiles) > 0 {
		fmt.Fprintf(w, "deleted files (%d): %s\n", len(summary.DeletedFiles), SummarizePaths(summary.DeletedFiles, 8))
	}
	if summary.DeclsChanged && summary.Mode != "generate" && summary.Transformed > summary.Changed {
		fmt.Fprintln(w, "declarations changed: every file was rebuilt")
	}
	return nil
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
