package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cardwatch/cardwatch/internal/config"
	"github.com/cardwatch/cardwatch/internal/store"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Inspect the notification audit log",
	}
	cmd.AddCommand(notificationsListCmd())
	return cmd
}

func notificationsListCmd() *cobra.Command {
	var (
		limit      int
		statusFlag string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent notifications, optionally filtered by delivery status",
		RunE: func(_ *cobra.Command, _ []string) error {
			status := domain.NotificationStatus(statusFlag)
			switch status {
			case domain.NotificationPending, domain.NotificationSending, domain.NotificationSent, domain.NotificationFailed:
			default:
				fatalf("invalid --status %q: must be one of pending, sending, sent, failed", statusFlag)
			}

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

			notifications, err := pg.ListNotificationsByStatus(ctx, status, limit)
			if err != nil {
				return err
			}
			return printNotifications(notifications)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of notifications to show")
	cmd.Flags().StringVar(&statusFlag, "status", "failed", "filter by delivery status (pending, sending, sent, failed)")
	return cmd
}
