package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sakura/internal/cli"
	"github.com/aretw0/sakura/pkg/adapters/anthropic"
	"github.com/aretw0/sakura/pkg/adapters/fuse"
)

var mountCmd = &cobra.Command{
	Use:   "mount MOUNTPOINT [file]",
	Short: "Mount the project as a read-only directory while the reply streams",
	Long: `Mounts the virtual file system at MOUNTPOINT, then feeds the reply (a file, or stdin
when omitted or "-") into it. Files appear and grow as their content arrives.
The mount stays up until interrupted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		var input string
		if len(args) > 1 {
			input = args[1]
		}
		sse, _ := cmd.Flags().GetBool("sse")
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")
		debug, _ := cmd.Flags().GetBool("debug")
		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, err := anthropic.ParseMode(modeFlag)
		if err != nil {
			return err
		}

		ws, err := cli.NewFactory(cfg, logger)()
		if err != nil {
			return err
		}

		server, err := fuse.Mount(args[0], ws.FS(), &fuse.Config{}, debug)
		if err != nil {
			return fmt.Errorf("failed to mount %s: %w", args[0], err)
		}
		cli.PrintSystemMessage(os.Stderr, "Mounted at %s (Ctrl+C to unmount)", args[0])

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		go func() {
			<-ctx.Done()
			if err := server.Unmount(); err != nil {
				logger.Error("failed to unmount", "mountpoint", args[0], "err", err)
			}
		}()

		if sse {
			r, err := cli.OpenInput(input, os.Stdin)
			if err != nil {
				return err
			}
			_, err = anthropic.Drive(ctx, r, ws, mode)
			r.Close()
			if err != nil && !cli.IsInterrupted(err) {
				logger.Error("stream failed", "err", err)
			}
		} else {
			text, err := cli.ReadInput(input, os.Stdin)
			if err != nil {
				return err
			}
			if err := cli.FeedText(ctx, ws, text, chunkSize, mode); err != nil && !cli.IsInterrupted(err) {
				return err
			}
		}
		logger.Info("reply consumed", "files", len(ws.FS().Paths()))

		server.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)

	mountCmd.Flags().String("mode", string(anthropic.ModeIncremental), "Feeding mode: 'incremental' or 'full'")
	mountCmd.Flags().Int("chunk-size", 64, "Bytes per simulated chunk (0 feeds the input at once)")
	mountCmd.Flags().Bool("sse", false, "Read the input as an Anthropic Messages event stream")
	mountCmd.Flags().Bool("debug", false, "Log FUSE requests")
}
