package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Iron-Ham/coordino/internal/statepath"
	"github.com/Iron-Ham/coordino/internal/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <base-name>...",
	Short: "Stream peer session activity",
	Long: `Watch the scratch directory and print a line for every state-file
change made by peer sessions for the given base names. This process's
own session is filtered out. Runs until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	_, cfg, logger, err := newCoordinator()
	if err != nil {
		return err
	}
	defer logger.Close()

	sid := statepath.ResolveSessionID(sessionOverride())
	watcher, err := watch.New(cfg.Paths.ScratchDir, cfg.Paths.Namespace, cfg.Paths.Extension, sid, logger)
	if err != nil {
		return fmt.Errorf("failed to watch scratch directory: %w", err)
	}
	defer watcher.Stop()

	for _, base := range args {
		watcher.WatchBase(base)
	}
	watcher.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("Watching %s for peers of session %s\n", cfg.Paths.ScratchDir, sid)
	for {
		select {
		case u := <-watcher.Updates():
			fmt.Printf("%s %s session=%s\n", u.BaseName, u.Op, u.SessionID)
		case <-sigCh:
			return nil
		}
	}
}
