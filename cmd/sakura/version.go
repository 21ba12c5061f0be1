package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/sakura"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sakura",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sakura version %s\n", strings.TrimSpace(sakura.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
