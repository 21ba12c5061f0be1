package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sakura/internal/cli"
	"github.com/aretw0/sakura/internal/presentation/tui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves sessions over a JSON API with a live event stream per session.
The OpenAPI document is available at /openapi.yaml and rendered at /swagger.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.Metrics.Addr, _ = cmd.Flags().GetString("metrics-addr")
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		stack, err := cli.NewStack(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		tui.PrintBanner(os.Stderr)
		err = cli.Serve(ctx, cfg, stack, logger)
		if sig := ctx.Signal(); sig != nil {
			cli.PrintSystemMessage(os.Stderr, "Stopped by %v", sig)
		}
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("metrics-addr", "", "Serve /metrics on a separate address")
}
