package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/sakura/internal/cli"
	"github.com/aretw0/sakura/pkg/adapters/anthropic"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse an AI reply and print the resulting project",
	Long: `Feeds a reply (a file, or stdin when omitted or "-") through the streaming parser
the way a live response would arrive, then prints the project it built.

With --sse the input is an Anthropic Messages event stream instead of plain text.
With --json every snapshot change is written as one JSON line while parsing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		opts, err := parseOptions(cmd, args)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		_, err = cli.RunParse(ctx, cli.NewFactory(cfg, logger), opts, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
		return cli.HandleExecutionError(err)
	},
}

func parseOptions(cmd *cobra.Command, args []string) (cli.ParseOptions, error) {
	var opts cli.ParseOptions
	if len(args) > 0 {
		opts.Input = args[0]
	}
	opts.ChunkSize, _ = cmd.Flags().GetInt("chunk-size")
	opts.SSE, _ = cmd.Flags().GetBool("sse")
	opts.JSON, _ = cmd.Flags().GetBool("json")
	opts.OutDir, _ = cmd.Flags().GetString("out")

	mode, _ := cmd.Flags().GetString("mode")
	m, err := anthropic.ParseMode(mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = m

	format, _ := cmd.Flags().GetString("format")
	if opts.JSON && !cmd.Flags().Changed("format") {
		format = string(cli.FormatNone)
	}
	f, err := cli.ParseFormat(format)
	if err != nil {
		return opts, err
	}
	opts.Format = f
	return opts, nil
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", string(anthropic.ModeIncremental), "Feeding mode: 'incremental' chunks or 'full' re-parse of the growing text")
	cmd.Flags().String("format", string(cli.FormatSummary), "Output: summary, tree, files, mermaid or none")
	cmd.Flags().StringP("out", "o", "", "Write the complete files into this directory")
}

func init() {
	rootCmd.AddCommand(parseCmd)

	addOutputFlags(parseCmd)
	parseCmd.Flags().Int("chunk-size", 64, "Bytes per simulated chunk (0 feeds the input at once)")
	parseCmd.Flags().Bool("sse", false, "Read the input as an Anthropic Messages event stream")
	parseCmd.Flags().Bool("json", false, "Write snapshot events as JSON lines while parsing")
}
