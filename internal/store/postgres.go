package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, tested via integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// nullDecimal converts a possibly-nil *decimal.Decimal into the NamedArgs
// value pgx should bind — NULL when nil, the underlying decimal otherwise.
func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// ptrFromNull is the inverse of nullDecimal, for scanning query results back
// into the domain's *decimal.Decimal representation.
func ptrFromNull(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

// UpsertProductResult inserts or overwrites the (product, shop, hour) row.
func (s *PostgresStore) UpsertProductResult(ctx context.Context, r *domain.ProductResult) error {
	args := pgx.NamedArgs{
		"product_id":   r.ProductID,
		"shop_id":      r.ShopID,
		"hour_bucket":  r.HourBucket,
		"product_url":  r.ProductURL,
		"price":        nullDecimal(r.Price),
		"is_available": r.IsAvailable,
		"timestamp":    r.Timestamp,
	}

	if err := s.pool.QueryRow(ctx, queryUpsertProductResult, args).Scan(&r.CreatedAt); err != nil {
		return fmt.Errorf("upserting product result for %s/%s: %w", r.ProductID, r.ShopID, err)
	}
	return nil
}

// BestOfferForProduct returns the cheapest available offer for a product in
// the current UTC hour bucket, or nil if no such offer exists.
func (s *PostgresStore) BestOfferForProduct(ctx context.Context, productID string) (*domain.ProductResult, error) {
	bucket := domain.HourBucket(time.Now())

	var r domain.ProductResult
	var price decimal.NullDecimal
	err := s.pool.QueryRow(ctx, queryBestOfferForProduct, productID, bucket).Scan(
		&r.ProductID, &r.ShopID, &r.HourBucket, &r.ProductURL,
		&price, &r.IsAvailable, &r.Timestamp, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying best offer for %s: %w", productID, err)
	}
	r.Price = ptrFromNull(price)
	return &r, nil
}

// BestOffersForProducts batches BestOfferForProduct across many products in
// a single round trip, keyed by ProductID.
func (s *PostgresStore) BestOffersForProducts(ctx context.Context, productIDs []string) (map[string]domain.ProductResult, error) {
	if len(productIDs) == 0 {
		return map[string]domain.ProductResult{}, nil
	}
	bucket := domain.HourBucket(time.Now())

	rows, err := s.pool.Query(ctx, queryBestOffersForProducts, productIDs, bucket)
	if err != nil {
		return nil, fmt.Errorf("querying best offers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.ProductResult, len(productIDs))
	for rows.Next() {
		var r domain.ProductResult
		var price decimal.NullDecimal
		if err := rows.Scan(
			&r.ProductID, &r.ShopID, &r.HourBucket, &r.ProductURL,
			&price, &r.IsAvailable, &r.Timestamp, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning best offer: %w", err)
		}
		r.Price = ptrFromNull(price)
		out[r.ProductID] = r
	}
	return out, rows.Err()
}

// SweepExpiredResults deletes product_results rows older than olderThan,
// returning the number of rows removed.
func (s *PostgresStore) SweepExpiredResults(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, queryDeleteExpiredResults, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("sweeping expired product results: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// PreloadNotificationState loads every hysteresis tuple touching the given
// products, keyed by NotificationState.StateKey.
func (s *PostgresStore) PreloadNotificationState(ctx context.Context, productIDs []string) (map[string]domain.NotificationState, error) {
	if len(productIDs) == 0 {
		return map[string]domain.NotificationState{}, nil
	}

	rows, err := s.pool.Query(ctx, queryPreloadNotificationState, productIDs)
	if err != nil {
		return nil, fmt.Errorf("preloading notification state: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.NotificationState)
	for rows.Next() {
		var st domain.NotificationState
		var price decimal.NullDecimal
		if err := rows.Scan(
			&st.UserID, &st.ProductID, &st.ShopID, &st.LastNotified, &price, &st.WasAvailable,
		); err != nil {
			return nil, fmt.Errorf("scanning notification state: %w", err)
		}
		st.LastPrice = ptrFromNull(price)
		out[st.StateKey()] = st
	}
	return out, rows.Err()
}

// FlushNotificationState upserts a batch of hysteresis tuples in one
// transaction, the end-of-cycle counterpart to PreloadNotificationState.
func (s *PostgresStore) FlushNotificationState(ctx context.Context, states []domain.NotificationState) error {
	if len(states) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning notification state flush: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, st := range states {
		args := pgx.NamedArgs{
			"user_id":       st.UserID,
			"product_id":    st.ProductID,
			"shop_id":       st.ShopID,
			"last_notified": st.LastNotified,
			"last_price":    nullDecimal(st.LastPrice),
			"was_available": st.WasAvailable,
		}
		if _, err := tx.Exec(ctx, queryUpsertNotificationState, args); err != nil {
			return fmt.Errorf("upserting notification state for %s: %w", st.StateKey(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing notification state flush: %w", err)
	}
	return nil
}

// GetActiveWatchersByProductIDs returns every active watch for the given
// products, grouped by ProductID.
func (s *PostgresStore) GetActiveWatchersByProductIDs(ctx context.Context, productIDs []string) (map[string][]domain.UserWatchEntry, error) {
	if len(productIDs) == 0 {
		return map[string][]domain.UserWatchEntry{}, nil
	}

	rows, err := s.pool.Query(ctx, queryGetActiveWatchersByProductIDs, productIDs)
	if err != nil {
		return nil, fmt.Errorf("querying active watchers: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.UserWatchEntry)
	for rows.Next() {
		var w domain.UserWatchEntry
		if err := rows.Scan(&w.UserID, &w.ProductID, &w.MaxPrice, &w.IsActive); err != nil {
			return nil, fmt.Errorf("scanning watch entry: %w", err)
		}
		out[w.ProductID] = append(out[w.ProductID], w)
	}
	return out, rows.Err()
}

// GetNotificationTargetsByUserIDs returns every linked channel target for
// the given users, grouped by UserID.
func (s *PostgresStore) GetNotificationTargetsByUserIDs(ctx context.Context, userIDs []string) (map[string][]domain.NotificationTarget, error) {
	if len(userIDs) == 0 {
		return map[string][]domain.NotificationTarget{}, nil
	}

	rows, err := s.pool.Query(ctx, queryGetNotificationTargetsByUserIDs, userIDs)
	if err != nil {
		return nil, fmt.Errorf("querying notification targets: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.NotificationTarget)
	for rows.Next() {
		var t domain.NotificationTarget
		if err := rows.Scan(&t.UserID, &t.Channel, &t.ChannelTarget); err != nil {
			return nil, fmt.Errorf("scanning notification target: %w", err)
		}
		out[t.UserID] = append(out[t.UserID], t)
	}
	return out, rows.Err()
}

// CreateNotification inserts a new audit-log row and returns its ID.
func (s *PostgresStore) CreateNotification(ctx context.Context, n *domain.Notification) (string, error) {
	payloadJSON, err := json.Marshal(n.Payload)
	if err != nil {
		return "", fmt.Errorf("marshaling notification payload: %w", err)
	}
	deliveriesJSON, err := json.Marshal(n.Deliveries)
	if err != nil {
		return "", fmt.Errorf("marshaling notification deliveries: %w", err)
	}

	args := pgx.NamedArgs{
		"user_id":    n.UserID,
		"status":     string(n.Status),
		"payload":    payloadJSON,
		"deliveries": deliveriesJSON,
	}

	var id string
	if err := s.pool.QueryRow(ctx, queryCreateNotification, args).Scan(&id); err != nil {
		return "", fmt.Errorf("creating notification for user %s: %w", n.UserID, err)
	}
	return id, nil
}

// UpdateNotificationStatus transitions a notification's overall status.
func (s *PostgresStore) UpdateNotificationStatus(ctx context.Context, id string, status domain.NotificationStatus) error {
	_, err := s.pool.Exec(ctx, queryUpdateNotificationStatus, id, string(status))
	if err != nil {
		return fmt.Errorf("updating notification %s status: %w", id, err)
	}
	return nil
}

// RecordDelivery appends one channel delivery attempt to a notification's
// deliveries array.
func (s *PostgresStore) RecordDelivery(ctx context.Context, notificationID string, d domain.Delivery) error {
	deliveryJSON, err := json.Marshal([]domain.Delivery{d})
	if err != nil {
		return fmt.Errorf("marshaling delivery: %w", err)
	}

	_, err = s.pool.Exec(ctx, queryAppendNotificationDelivery, notificationID, deliveryJSON)
	if err != nil {
		return fmt.Errorf("recording delivery for notification %s: %w", notificationID, err)
	}
	return nil
}

// SweepExpiredNotifications deletes notifications rows older than
// olderThan, returning the number of rows removed.
func (s *PostgresStore) SweepExpiredNotifications(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, queryDeleteExpiredNotifications, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("sweeping expired notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListNotificationsByStatus returns the most recent notifications in the
// given overall status, newest first. Used by the admin CLI to surface
// stuck or failed deliveries.
func (s *PostgresStore) ListNotificationsByStatus(ctx context.Context, status domain.NotificationStatus, limit int) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx, queryListNotificationsByStatus, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("querying notifications by status: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var payloadJSON, deliveriesJSON []byte
		var status string
		if err := rows.Scan(&n.ID, &n.UserID, &status, &payloadJSON, &deliveriesJSON, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		n.Status = domain.NotificationStatus(status)
		if err := json.Unmarshal(payloadJSON, &n.Payload); err != nil {
			return nil, fmt.Errorf("unmarshaling notification payload: %w", err)
		}
		if err := json.Unmarshal(deliveriesJSON, &n.Deliveries); err != nil {
			return nil, fmt.Errorf("unmarshaling notification deliveries: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// HasRecentSuccessfulDelivery reports whether (userID, productID, shopID)
// already has a sent delivery over channel within window, guarding the
// dispatcher against a double-send if the scheduler restarts mid-flush.
func (s *PostgresStore) HasRecentSuccessfulDelivery(
	ctx context.Context,
	userID, productID, shopID string,
	channel domain.Channel,
	window time.Duration,
) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, queryHasRecentSuccessfulDelivery,
		userID, productID, shopID, string(channel), window.Seconds(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking recent delivery for user %s product %s: %w", userID, productID, err)
	}
	return exists, nil
}

// InsertJobRun records the start of a scheduled cycle and returns its ID.
func (s *PostgresStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertJobRun, jobName).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting job run: %w", err)
	}
	return id, nil
}

// CompleteJobRun marks a job run as finished with its outcome and counters.
func (s *PostgresStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	shopsProcessed, productsScraped, notificationsSent int,
) error {
	_, err := s.pool.Exec(ctx, queryCompleteJobRun,
		id, status, errText, shopsProcessed, productsScraped, notificationsSent,
	)
	if err != nil {
		return fmt.Errorf("completing job run %s: %w", id, err)
	}
	return nil
}

// ListLatestJobRuns returns the most recent cycle runs, newest first.
func (s *PostgresStore) ListLatestJobRuns(ctx context.Context, limit int) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListLatestJobRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("querying latest job runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		if err := rows.Scan(
			&r.ID, &r.JobName, &r.StartedAt, &r.CompletedAt, &r.Status, &r.ErrorText,
			&r.ShopsProcessed, &r.ProductsScraped, &r.NotificationsSent,
		); err != nil {
			return nil, fmt.Errorf("scanning job run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecoverStaleJobRuns marks any job stuck in 'running' past olderThan as
// crashed, returning the number of rows recovered.
func (s *PostgresStore) RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, queryRecoverStaleJobRuns, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("recovering stale job runs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// AcquireSchedulerLock attempts to take or steal the named lock. It
// succeeds either when no row exists yet, or when the existing row has
// expired; it fails (false, nil) when another holder's lock is still live.
func (s *PostgresStore) AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error) {
	tag, err := s.pool.Exec(ctx, queryAcquireSchedulerLock, jobName, holder, ttl.Seconds())
	if err != nil {
		return false, fmt.Errorf("acquiring scheduler lock %s: %w", jobName, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseSchedulerLock drops the lock row, but only if holder still owns it.
func (s *PostgresStore) ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error {
	_, err := s.pool.Exec(ctx, queryReleaseSchedulerLock, jobName, holder)
	if err != nil {
		return fmt.Errorf("releasing scheduler lock %s: %w", jobName, err)
	}
	return nil
}

// GetSystemState assembles the operational health snapshot. Shop/product
// counts come from the on-disk catalog (the caller's responsibility — see
// internal/catalog) since Store has no knowledge of them; everything else
// is aggregated here from durable store state.
func (s *PostgresStore) GetSystemState(
	ctx context.Context,
	shopsTotal, shopsEnabled, productsTotal, productsActive int,
) (*domain.SystemState, error) {
	st := &domain.SystemState{
		ShopsTotal:     shopsTotal,
		ShopsEnabled:   shopsEnabled,
		ProductsTotal:  productsTotal,
		ProductsActive: productsActive,
	}

	if err := s.pool.QueryRow(ctx, queryPendingNotificationsCount).Scan(&st.PendingNotifications); err != nil {
		return nil, fmt.Errorf("counting pending notifications: %w", err)
	}
	if err := s.pool.QueryRow(ctx, queryResultRowsTotal).Scan(&st.ResultRowsTotal); err != nil {
		return nil, fmt.Errorf("counting result rows: %w", err)
	}
	if err := s.pool.QueryRow(ctx, queryLastCycleAt).Scan(&st.LastCycleAt); err != nil {
		return nil, fmt.Errorf("querying last cycle time: %w", err)
	}

	return st, nil
}
