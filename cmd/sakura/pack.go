package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/sakura/pkg/dsl"
)

var packCmd = &cobra.Command{
	Use:   "pack DIR",
	Short: "Render a directory as artifact markup",
	Long: `Writes the files under DIR as one artifact, the way a model would stream them.
The output can be fed back to parse, serve or a model. VCS folders, node_modules, dist
and build are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		dir := args[0]
		id, _ := cmd.Flags().GetString("id")
		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			title = filepath.Base(abs)
		}

		b, err := dsl.FromDir(dir, id, title)
		if err != nil {
			return err
		}
		commands, _ := cmd.Flags().GetStringArray("shell")
		for _, c := range commands {
			b.Shell(c)
		}
		reply, err := b.Grammar(cfg.Grammar).Build()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), reply)
		return err
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().String("id", "project", "Artifact id")
	packCmd.Flags().String("title", "", "Artifact title (default: the directory name)")
	packCmd.Flags().StringArray("shell", nil, "Shell action appended after the files (repeatable)")
}
