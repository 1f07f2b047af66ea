package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "govorg",
		Short: "Government organization sync and import tools",
	}
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newImportCmd())
	return cmd
}

func main() {
	_ = newRootCmd().Execute()
}
