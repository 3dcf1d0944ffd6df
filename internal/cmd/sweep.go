package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sweepMaxAge time.Duration
	sweepDryRun bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep <base-name>",
	Short: "Remove stale session state",
	Long: `Delete session-scoped state files for the given base name whose
modification age exceeds the cutoff. Legacy (session-less) files are
never touched. With --dry-run, prints the sessions that would be swept
without deleting anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().DurationVar(&sweepMaxAge, "max-age", 0, "age cutoff (default from config)")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "preview only, delete nothing")
}

func runSweep(cmd *cobra.Command, args []string) error {
	coord, cfg, logger, err := newCoordinator()
	if err != nil {
		return err
	}
	defer logger.Close()

	maxAge := sweepMaxAge
	if maxAge == 0 {
		maxAge = cfg.SweepMaxAge()
	}

	if sweepDryRun {
		// Stale sessions are everything minus those still inside the cutoff.
		all := coord.ListActiveSessions(args[0], 100*365*24*time.Hour)
		fresh := make(map[string]bool)
		for _, id := range coord.ListActiveSessions(args[0], maxAge) {
			fresh[id] = true
		}

		count := 0
		for _, id := range all {
			if !fresh[id] {
				fmt.Println(id)
				count++
			}
		}
		fmt.Printf("Would sweep %d stale session(s) (older than %v)\n", count, maxAge)
		return nil
	}

	removed := coord.SweepStale(args[0], maxAge)
	fmt.Printf("Swept %d stale session(s) (older than %v)\n", removed, maxAge)
	return nil
}
