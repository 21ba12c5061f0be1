package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/sakura/internal/cli"
	"github.com/aretw0/sakura/internal/presentation/tui"
	"github.com/aretw0/sakura/pkg/adapters/anthropic"
)

var generateCmd = &cobra.Command{
	Use:   "generate PROMPT",
	Short: "Ask Claude for a project and build it while the reply streams",
	Long: `Sends PROMPT to the Anthropic Messages API with the artifact system prompt and
parses the reply as it streams. A status line follows the parser on stderr.
The API key is read from ANTHROPIC_API_KEY.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return errors.New("ANTHROPIC_API_KEY is not set")
		}

		cfg, logger, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		opts, err := parseOptions(cmd, nil)
		if err != nil {
			return err
		}

		model, _ := cmd.Flags().GetString("model")
		maxTokens, _ := cmd.Flags().GetInt("max-tokens")
		client := anthropic.NewClient(apiKey,
			anthropic.WithModel(model),
			anthropic.WithMaxTokens(maxTokens),
			anthropic.WithSystemPrompt(anthropic.SystemPrompt),
		)
		messages := []anthropic.Message{{Role: "user", Content: strings.Join(args, " ")}}
		opts.Source = func(ctx context.Context, target anthropic.Target, mode anthropic.Mode) (string, error) {
			return client.Stream(ctx, messages, target, mode)
		}
		if tui.IsTerminal(os.Stderr) {
			opts.Progress = os.Stderr
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		_, err = cli.RunParse(ctx, cli.NewFactory(cfg, logger), opts, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	addOutputFlags(generateCmd)
	generateCmd.Flags().Bool("json", false, "Write snapshot events as JSON lines while parsing")
	generateCmd.Flags().String("model", anthropic.DefaultModel, "Model to ask")
	generateCmd.Flags().Int("max-tokens", anthropic.DefaultMaxTokens, "Maximum tokens in the reply")
}
