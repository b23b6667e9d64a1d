// Package store defines the datastore abstraction for cardwatch. All
// business logic depends on the Store interface, never on concrete
// implementations. This enables mock-based testing without a running
// database.
package store

import (
	"context"
	"time"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// Store is the sole writer of ProductResult and the system of record for
// every other piece of durable, per-cycle-mutated state: notification
// hysteresis, user watches/targets, the notification audit log, and
// scheduler bookkeeping. ShopConfig/Product/ProductType/ProductSet/Series
// are not part of Store — they are read from the on-disk catalog
// (internal/catalog) the same way ShopsConfig.Dir names it.
type Store interface {
	// Hourly Result Store (Component F).
	UpsertProductResult(ctx context.Context, r *domain.ProductResult) error
	BestOfferForProduct(ctx context.Context, productID string) (*domain.ProductResult, error)
	BestOffersForProducts(ctx context.Context, productIDs []string) (map[string]domain.ProductResult, error)
	SweepExpiredResults(ctx context.Context, olderThan time.Duration) (int, error)

	// Notification-State Engine persistence (Component G): preloaded at
	// cycle start, flushed in one batch at cycle end.
	PreloadNotificationState(ctx context.Context, productIDs []string) (map[string]domain.NotificationState, error)
	FlushNotificationState(ctx context.Context, states []domain.NotificationState) error

	// Multi-User Dispatcher lookups (Component H).
	GetActiveWatchersByProductIDs(ctx context.Context, productIDs []string) (map[string][]domain.UserWatchEntry, error)
	GetNotificationTargetsByUserIDs(ctx context.Context, userIDs []string) (map[string][]domain.NotificationTarget, error)

	// Notification audit log (append-only). SweepExpiredNotifications, like
	// SweepExpiredResults, deletes rows older than the given age only when
	// called; no component calls either on a schedule.
	CreateNotification(ctx context.Context, n *domain.Notification) (id string, err error)
	UpdateNotificationStatus(ctx context.Context, id string, status domain.NotificationStatus) error
	RecordDelivery(ctx context.Context, notificationID string, d domain.Delivery) error
	SweepExpiredNotifications(ctx context.Context, olderThan time.Duration) (int, error)
	ListNotificationsByStatus(ctx context.Context, status domain.NotificationStatus, limit int) ([]domain.Notification, error)

	// HasRecentSuccessfulDelivery guards the dispatcher against double-send
	// on a scheduler restart mid-flush: true if (userID, productID, shopID)
	// already has a successful delivery over channel within window.
	HasRecentSuccessfulDelivery(ctx context.Context, userID, productID, shopID string, channel domain.Channel, window time.Duration) (bool, error)

	// Scheduler (Component J) bookkeeping.
	InsertJobRun(ctx context.Context, jobName string) (id string, err error)
	CompleteJobRun(ctx context.Context, id string, status string, errText string, shopsProcessed, productsScraped, notificationsSent int) error
	ListLatestJobRuns(ctx context.Context, limit int) ([]domain.JobRun, error)
	RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error)
	AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error)
	ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error

	// Operational health surface.
	GetSystemState(ctx context.Context, shopsTotal, shopsEnabled, productsTotal, productsActive int) (*domain.SystemState, error)

	// Migrations.
	Migrate(ctx context.Context) error

	// Health.
	Ping(ctx context.Context) error
}
