// Package cmd wires the ccmaid command-line surface: one subcommand per
// workflow phase plus the full-workflow runner.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maidkit/ccmaid/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "ccmaid",
	Short: "Manifest-driven AI development workflows",
	Long: `ccmaid drives generate-validate-retry workflows: an agent CLI writes
manifests, behavioral tests, and implementations, and each phase loops until
its validation gate passes or the iteration budget runs out.

Configuration is read from ~/.ccmaid.toml and ./.ccmaid.toml; flags override
both. Run "ccmaid config-example" for a documented sample.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().Bool("mock", false, "use mock generation instead of the agent CLI")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (log level debug)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress non-essential output (log level error)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides -v/-q)")
	rootCmd.PersistentFlags().String("log-file", "", "write JSON logs to this file instead of stderr")

	_ = viper.BindPFlag("cli.mock_mode", rootCmd.PersistentFlags().Lookup("mock"))
}

func initConfig() {
	config.SetDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CCMAID")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config.ReadFiles()
}
