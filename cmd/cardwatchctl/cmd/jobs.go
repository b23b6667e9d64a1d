package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cardwatch/cardwatch/internal/config"
	"github.com/cardwatch/cardwatch/internal/store"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect scheduler job history",
	}
	cmd.AddCommand(jobsListCmd())
	return cmd
}

func jobsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent job runs",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}
			pg, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer pg.Close()

			runs, err := pg.ListLatestJobRuns(ctx, limit)
			if err != nil {
				return err
			}
			return printJobRuns(runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of job runs to show")
	return cmd
}
