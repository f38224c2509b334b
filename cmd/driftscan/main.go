// Command driftscan runs terragrunt plan across a directory tree and
// reports configuration drift.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/deixis/driftscan"
	"github.com/spf13/cobra"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	log.SetFlags(0)
	log.SetPrefix("driftscan: ")

	if err := newRootCmd().Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "driftscan",
		Short: "Detect drift across Terragrunt working directories",
		Long: `driftscan finds every directory under a root that contains a .hcl file,
runs "terragrunt plan -out plan.tfplan" in each with bounded parallelism,
and reports which units have drifted from their configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newPlanCmd(), newMCPCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), driftscan.Version)
		},
	}
}
