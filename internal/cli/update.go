package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// RunUpdate rebuilds only the files whose content changed since the last
// run. Stored roots are reused for the rest unless a declaration changed
// somewhere in the project or the configuration no longer matches.
func RunUpdate(cmd *cobra.Command, args []string) error {
	return runBuild(cmd, args, "update", true)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
