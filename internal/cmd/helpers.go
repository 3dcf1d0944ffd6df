package cmd

import (
	"fmt"

	"github.com/Iron-Ham/coordino/internal/config"
	"github.com/Iron-Ham/coordino/internal/logging"
	"github.com/Iron-Ham/coordino/internal/state"
	"github.com/spf13/viper"
)

// newCoordinator loads the configuration, builds the logger, and wires a
// Coordinator for a command invocation.
func newCoordinator() (*state.Coordinator, *config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, nil, nil, config.ValidationErrors(errs)
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return state.New(cfg, logger), cfg, logger, nil
}

// sessionOverride returns the --session flag / COORDINO_SESSION value, if any.
func sessionOverride() string {
	return viper.GetString("session")
}
