// Package cmd implements the cardwatchctl CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/cardwatch/cardwatch/internal/api/client"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "cardwatchctl",
		Short: "Admin CLI for cardwatch",
		Long: "cardwatchctl is an operator CLI for cardwatch. It inspects the shop\n" +
			"catalog, reviews scheduler and notification history straight from the\n" +
			"database, and can trigger an immediate cycle against a running instance.",
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the root command, for doc generation.
func Root() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "config.yaml", "cardwatch config file (database, shops dir)")
	rootCmd.PersistentFlags().
		String("server", "http://localhost:8080", "cardwatch admin server URL")
	rootCmd.PersistentFlags().
		String("output", "table", "output format (table, json)")

	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))

	rootCmd.AddCommand(shopsCmd())
	rootCmd.AddCommand(cycleCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(notificationsCmd())
}

func initConfig() {
	viper.SetEnvPrefix("CARDWATCHCTL")
	viper.AutomaticEnv()
}

func newAdminClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}

func configPath() string {
	if cfgFile == "" {
		return "config.yaml"
	}
	return cfgFile
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
