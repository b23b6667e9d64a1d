// Package cmd implements the CLI commands for cardwatch.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cardwatch",
	Short: "Watch trading card shops for restocks and price drops",
	Long: "cardwatch periodically scrapes a catalog of trading card shops, tracks\n" +
		"price and availability per product, and fans out alerts to subscribed\n" +
		"users over Discord and Telegram once a drop crosses their threshold.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.AddCommand(versionCmd)
}

var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		os.Stdout.WriteString("cardwatch " + Version + "\n")
	},
}
