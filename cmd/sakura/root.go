package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sakura/internal/config"
	"github.com/aretw0/sakura/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "sakura",
	Short: "Sakura turns streamed AI replies into a live virtual project",
	Long: `Sakura parses the artifact markup an AI assistant streams back, file by file and
command by command, and keeps a virtual file system of the project it describes.
Run it once over a reply, serve it over HTTP, expose it to agents through MCP or
mount it as a directory.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file (default sakura.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level: debug, info, warn or error")
}

// setup loads the configuration and builds the logger. The closer releases the log file.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, io.Closer, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
		if err := cfg.Validate(); err != nil {
			return config.Config{}, nil, nil, err
		}
	}

	logger, closer, err := logging.NewWithOptions(cfg.LoggingOptions())
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, closer, nil
}
