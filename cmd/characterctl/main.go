package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var apiFlag string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "characterctl",
		Short:         "CLI client for the character service REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:5000", "Character service base URL")

	root.AddCommand(
		newListCmd(),
		newSearchCmd(),
		newShowCmd(),
		newAddCmd(),
		newUpdateCmd(),
		newDeleteCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
