package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <kind> <base-name>",
	Short: "Read a state record",
	Long: `Read the state record for the given kind and base name, resolved for
the current session (legacy files within the grace window are honored).
Prints the record as JSON, or "null" when no usable state exists.`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	coord, _, logger, err := newCoordinator()
	if err != nil {
		return err
	}
	defer logger.Close()

	record := coord.Read(args[0], args[1], sessionOverride())
	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render record: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
