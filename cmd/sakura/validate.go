package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/sakura/internal/cli"
	"github.com/aretw0/sakura/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Lint the artifact markup of a reply",
	Long: `Parses the reply (a file, or stdin when omitted or "-") and reports tags the parser
skips, actions left open, files written twice and paths escaping the project.
Exits non-zero when an error-level issue is found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		var input string
		if len(args) > 0 {
			input = args[0]
		}
		text, err := cli.ReadInput(input, cmd.InOrStdin())
		if err != nil {
			return err
		}

		report, err := validator.Validate(text, cfg.Grammar)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			for _, issue := range report.Issues {
				fmt.Fprintln(out, issue)
			}
			if len(report.Issues) == 0 {
				cli.PrintSystemMessage(out, "No issues found")
			}
		}
		return report.Err()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("json", false, "Print the report as JSON")
}
