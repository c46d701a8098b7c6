package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/morozRed/ustgen/internal/watch"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ustgen",
		Short: "Convert C# and Java sources into a Unified Syntax Tree",
		Long: `ustgen parses every C# and Java file in a project, resolves types and
members against the project's own declarations, and writes one
language-neutral tree per file as JSON.

Output is written to .ustgen/ust.json (or ust.jsonl) together with the
incremental state used by update and watch.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text|json")

	addBuildFlags := func(cmd *cobra.Command) {
		cmd.Flags().String("format", string(FormatJSON), "Output format: json|jsonl")
		cmd.Flags().StringP("output", "o", "", "Output file (default: .ustgen/ust.<format>)")
		cmd.Flags().Int("workers", 0, "Parallel workers (default: analysis.workers or CPU count)")
		cmd.Flags().Bool("json", false, "Print machine-readable run summary")
	}

	generateCmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Convert every supported file from scratch",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunGenerate,
	}
	addBuildFlags(generateCmd)

	updateCmd := &cobra.Command{
		Use:   "update [path]",
		Short: "Reconvert only files changed since the last run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunUpdate,
	}
	addBuildFlags(updateCmd)

	watchCmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Update the output whenever a source file changes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunWatch,
	}
	addBuildFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before a rebuild")

	statsCmd := &cobra.Command{
		Use:   "stats [path]",
		Short: "Show node counts from the last run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunStats,
	}
	statsCmd.Flags().Bool("json", false, "Print machine-readable stats")

	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "List node kinds and their ids",
		Args:  cobra.NoArgs,
		RunE:  RunKinds,
	}
	kindsCmd.Flags().Bool("json", false, "Print machine-readable kind list")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ustgen %s\n", version)
		},
	}

	rootCmd.AddCommand(
		generateCmd,
		updateCmd,
		watchCmd,
		statsCmd,
		kindsCmd,
		versionCmd,
	)

	return rootCmd
}
