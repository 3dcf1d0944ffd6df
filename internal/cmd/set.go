package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <kind> <base-name> [json]",
	Short: "Write a state record",
	Long: `Write a state record for the given kind and base name. The record is
taken from the third argument, or from stdin when omitted. Writes always
target the session-scoped path; legacy files are never modified.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	coord, _, logger, err := newCoordinator()
	if err != nil {
		return err
	}
	defer logger.Close()

	var raw []byte
	if len(args) == 3 {
		raw = []byte(args[2])
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read record from stdin: %w", err)
		}
	}

	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return fmt.Errorf("record is not a JSON object: %w", err)
	}

	coord.Write(args[0], args[1], sessionOverride(), record)
	return nil
}
