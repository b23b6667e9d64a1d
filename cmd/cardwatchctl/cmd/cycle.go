package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func cycleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Trigger or inspect scrape cycles",
	}
	cmd.AddCommand(cycleRunCmd())
	return cmd
}

func cycleRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Trigger an immediate cycle on a running cardwatch instance and wait for it to complete",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAdminClient()
			status, err := client.RunCycle(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(map[string]string{"status": status})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cycle %s\n", status)
			return nil
		},
	}
}
