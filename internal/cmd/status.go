package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Iron-Ham/coordino/internal/lockfile"
	"github.com/Iron-Ham/coordino/internal/statepath"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <base-name>",
	Short: "Show resolved paths and lock state",
	Long: `Show where reads and writes for the given base name would land for
the current session, whether a legacy file is still inside its grace
window, and who holds the lock, if anyone.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	coord, _, logger, err := newCoordinator()
	if err != nil {
		return err
	}
	defer logger.Close()

	base := args[0]
	sid := statepath.ResolveSessionID(sessionOverride())
	resolver := coord.Resolver()

	sessionPath := resolver.SessionPath(base, sid)
	legacyPath := resolver.LegacyPath(base)
	readPath := resolver.ResolveWithMigration(base, sid)

	fmt.Printf("Session:      %s\n", sid)
	fmt.Printf("Read target:  %s\n", readPath)
	fmt.Printf("Write target: %s\n", sessionPath)

	if info, err := os.Stat(legacyPath); err == nil {
		fmt.Printf("Legacy file:  %s (modified %v ago)\n",
			legacyPath, time.Since(info.ModTime()).Round(time.Second))
	}

	printLock := func(label, path string) {
		owner, err := lockfile.ReadOwner(path)
		if err != nil {
			return
		}
		fmt.Printf("%s lock: pid %d since %v\n",
			label, owner.PID, owner.AcquiredAt.Format(time.RFC3339))
	}
	printLock("Session", sessionPath)
	if readPath == legacyPath {
		printLock("Legacy ", legacyPath)
	}

	return nil
}
