// Package storemock is a hand-written testify/mock double for store.Store,
// shaped the way mockery would generate it, for packages that depend on
// Store without exercising a real database.
package storemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/cardwatch/cardwatch/internal/store"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// Store is a mock.Mock implementing store.Store.
type Store struct {
	mock.Mock
}

var _ store.Store = (*Store)(nil)

func (m *Store) UpsertProductResult(ctx context.Context, r *domain.ProductResult) error {
	return m.Called(ctx, r).Error(0)
}

func (m *Store) BestOfferForProduct(ctx context.Context, productID string) (*domain.ProductResult, error) {
	args := m.Called(ctx, productID)
	r, _ := args.Get(0).(*domain.ProductResult)
	return r, args.Error(1)
}

func (m *Store) BestOffersForProducts(ctx context.Context, productIDs []string) (map[string]domain.ProductResult, error) {
	args := m.Called(ctx, productIDs)
	r, _ := args.Get(0).(map[string]domain.ProductResult)
	return r, args.Error(1)
}

func (m *Store) SweepExpiredResults(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *Store) PreloadNotificationState(ctx context.Context, productIDs []string) (map[string]domain.NotificationState, error) {
	args := m.Called(ctx, productIDs)
	r, _ := args.Get(0).(map[string]domain.NotificationState)
	return r, args.Error(1)
}

func (m *Store) FlushNotificationState(ctx context.Context, states []domain.NotificationState) error {
	return m.Called(ctx, states).Error(0)
}

func (m *Store) GetActiveWatchersByProductIDs(ctx context.Context, productIDs []string) (map[string][]domain.UserWatchEntry, error) {
	args := m.Called(ctx, productIDs)
	r, _ := args.Get(0).(map[string][]domain.UserWatchEntry)
	return r, args.Error(1)
}

func (m *Store) GetNotificationTargetsByUserIDs(ctx context.Context, userIDs []string) (map[string][]domain.NotificationTarget, error) {
	args := m.Called(ctx, userIDs)
	r, _ := args.Get(0).(map[string][]domain.NotificationTarget)
	return r, args.Error(1)
}

func (m *Store) CreateNotification(ctx context.Context, n *domain.Notification) (string, error) {
	args := m.Called(ctx, n)
	return args.String(0), args.Error(1)
}

func (m *Store) UpdateNotificationStatus(ctx context.Context, id string, status domain.NotificationStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *Store) RecordDelivery(ctx context.Context, notificationID string, d domain.Delivery) error {
	return m.Called(ctx, notificationID, d).Error(0)
}

func (m *Store) SweepExpiredNotifications(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *Store) ListNotificationsByStatus(ctx context.Context, status domain.NotificationStatus, limit int) ([]domain.Notification, error) {
	args := m.Called(ctx, status, limit)
	notifications, _ := args.Get(0).([]domain.Notification)
	return notifications, args.Error(1)
}

func (m *Store) HasRecentSuccessfulDelivery(ctx context.Context, userID, productID, shopID string, channel domain.Channel, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, productID, shopID, channel, window)
	return args.Bool(0), args.Error(1)
}

func (m *Store) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	args := m.Called(ctx, jobName)
	return args.String(0), args.Error(1)
}

func (m *Store) CompleteJobRun(ctx context.Context, id string, status string, errText string, shopsProcessed, productsScraped, notificationsSent int) error {
	return m.Called(ctx, id, status, errText, shopsProcessed, productsScraped, notificationsSent).Error(0)
}

func (m *Store) ListLatestJobRuns(ctx context.Context, limit int) ([]domain.JobRun, error) {
	args := m.Called(ctx, limit)
	r, _ := args.Get(0).([]domain.JobRun)
	return r, args.Error(1)
}

func (m *Store) RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *Store) AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, jobName, holder, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *Store) ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error {
	return m.Called(ctx, jobName, holder).Error(0)
}

func (m *Store) GetSystemState(ctx context.Context, shopsTotal, shopsEnabled, productsTotal, productsActive int) (*domain.SystemState, error) {
	args := m.Called(ctx, shopsTotal, shopsEnabled, productsTotal, productsActive)
	r, _ := args.Get(0).(*domain.SystemState)
	return r, args.Error(1)
}

func (m *Store) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Store) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
