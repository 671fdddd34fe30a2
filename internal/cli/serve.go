package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/research-agent/internal/app"
	"github.com/tanpawarit/research-agent/internal/config"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

func newServeCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			logx.Init(logx.LoggerOpts{Environment: cfg.Env(), Level: cfg.LogLevel})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := app.BuildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.Close(); err != nil {
					logx.Warn().Err(err).Msg("Failed to close runtime")
				}
			}()

			server, err := app.New(cfg.HTTP, rt.Runner)
			if err != nil {
				return err
			}
			return server.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")
	return cmd
}
