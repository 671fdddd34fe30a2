// Package cli wires the cobra commands of the research agent binary.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:3001"

// Execute runs the root command with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "research-agent",
		Short:         "Web research agent with a streaming HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newServeCommand())
	root.AddCommand(newAskCommand())
	root.AddCommand(newClearCommand())
	return root
}
