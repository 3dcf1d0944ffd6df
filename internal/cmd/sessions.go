package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsTTL time.Duration

var sessionsCmd = &cobra.Command{
	Use:   "sessions <base-name>",
	Short: "List active sessions",
	Long: `List the session identifiers with state for the given base name that
was modified within the TTL window. Collaborators use this to detect
concurrently active peers on the same machine.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().DurationVar(&sessionsTTL, "ttl", 0, "activity window (default from config)")
}

func runSessions(cmd *cobra.Command, args []string) error {
	coord, cfg, logger, err := newCoordinator()
	if err != nil {
		return err
	}
	defer logger.Close()

	ttl := sessionsTTL
	if ttl == 0 {
		ttl = cfg.ActiveTTL()
	}

	ids := coord.ListActiveSessions(args[0], ttl)
	if len(ids) == 0 {
		fmt.Println("No active sessions.")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
