package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/sakura/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Export the project tree as a Mermaid diagram",
	Long:  `Parses the reply and outputs a Mermaid diagram (graph TD) of the project tree, marking unfinished files.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		opts := cli.ParseOptions{Format: cli.FormatMermaid}
		if len(args) > 0 {
			opts.Input = args[0]
		}
		_, err = cli.RunParse(cmd.Context(), cli.NewFactory(cfg, logger), opts, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
		return err
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
