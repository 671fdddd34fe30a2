package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/research-agent/internal/client"
)

type askOptions struct {
	server         string
	conversationID string
	stream         bool
}

func newAskCommand() *cobra.Command {
	opts := askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask a running agent server a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("query is required")
			}
			c := client.New(opts.server, nil)

			if !opts.stream {
				resp, err := c.Query(cmd.Context(), query, opts.conversationID)
				if err != nil {
					return err
				}
				return client.RenderResponse(cmd.OutOrStdout(), resp)
			}

			turn := client.NewTurn()
			renderer := client.NewRenderer(cmd.OutOrStdout())
			err := c.Stream(cmd.Context(), query, opts.conversationID, func(ev client.Event) error {
				turn.Apply(ev)
				return renderer.Update(turn)
			})
			if err != nil {
				return err
			}
			turn.Loading = false
			return renderer.Finish(turn)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", defaultServerURL, "agent server base URL")
	cmd.Flags().StringVar(&opts.conversationID, "conversation", "", "conversation id (server default when empty)")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "stream progress over SSE")
	return cmd
}

func newClearCommand() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "clear <conversation-id>",
		Short: "Delete a stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.New(server, nil).Clear(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Cleared conversation %s\n", args[0])
			return err
		},
	}
	cmd.Flags().StringVar(&server, "server", defaultServerURL, "agent server base URL")
	return cmd
}
