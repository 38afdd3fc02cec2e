package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maidkit/ccmaid/internal/config"
)

var configExampleCmd = &cobra.Command{
	Use:   "config-example",
	Short: "Print a documented sample configuration file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), config.Example)
	},
}

func init() {
	rootCmd.AddCommand(configExampleCmd)
}
