package cli

import (
	"github.com/spf13/cobra"
)

// RunGenerate converts every supported file under [path] from scratch.
func RunGenerate(cmd *cobra.Command, args []string) error {
	return runBuild(cmd, args, "generate", false)
}

func runBuild(cmd *cobra.Command, args []string, mode string, incremental bool) error {
	opts, err := runOptionsFromFlags(cmd, args)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	session, err := OpenSession(opts)
	if err != nil {
		return err
	}
	defer session.Close()

	summary, err := session.Build(commandContext(cmd), mode, incremental)
	if err != nil {
		return err
	}
	return PrintRunSummary(cmd.OutOrStdout(), summary, asJSON)
}
