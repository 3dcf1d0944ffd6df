package cmd

import (
	"strings"

	"github.com/Iron-Ham/coordino/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "coordino",
	Short: "Crash-safe session state coordination",
	Long: `Coordino manages the session-scoped state files that parallel
assistant sessions on one machine share: atomic writes, advisory lock
files with stale reclamation, and schema-gated reads.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/coordino/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().StringP("session", "s", "", "session identifier override")
	_ = viper.BindPFlag("session", rootCmd.PersistentFlags().Lookup("session"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("COORDINO")
	// Replace dots with underscores for nested keys in env vars
	// e.g., COORDINO_LOCK_WRITE_TIMEOUT_MS for lock.write_timeout_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
