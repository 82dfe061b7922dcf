package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netfabrik/netsim/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "netsim",
	Short: "Network topology analysis and simulation",
	Long: `netsim builds a topology from parsed device configurations, runs
validation and traffic analysis over it, and drives a live in-memory
simulation with one worker per device and a TCP control plane.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.netsim/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ctlCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initConfig reads the config file and NETSIM_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME/.netsim")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("NETSIM")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// newLogger builds the process logger from the global flags, honoring viper
// overrides.
func newLogger() logging.Logger {
	level := logLevel
	if v := viper.GetString("log_level"); v != "" {
		level = v
	}
	format := logFormat
	if v := viper.GetString("log_format"); v != "" {
		format = v
	}
	return logging.New(logging.Config{Level: level, Format: format})
}
