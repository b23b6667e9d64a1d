package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cardwatch/cardwatch/internal/dispatch"
	"github.com/cardwatch/cardwatch/internal/notify"
	"github.com/cardwatch/cardwatch/internal/notifystate"
	"github.com/cardwatch/cardwatch/internal/store/storemock"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

func silentLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func available(price string) domain.ProductResult {
	p := decimal.RequireFromString(price)
	return domain.ProductResult{IsAvailable: true, Price: &p, ProductURL: "https://example.com/p"}
}

type fakeAdapter struct {
	channel domain.Channel
	err     error
	sent    []string
}

func (f *fakeAdapter) Name() domain.Channel { return f.channel }
func (f *fakeAdapter) Send(_ context.Context, channelTarget string, _ domain.NotificationPayload) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, channelTarget)
	return nil
}

func TestPreloadForCycle_ReturnsOnlySubscribedProducts(t *testing.T) {
	ms := new(storemock.Store)
	ms.On("GetActiveWatchersByProductIDs", mock.Anything, mock.Anything).
		Return(map[string][]domain.UserWatchEntry{
			"p1": {{UserID: "u1", ProductID: "p1", MaxPrice: decimal.RequireFromString("100")}},
			"p2": {{UserID: "u2", ProductID: "p2", MaxPrice: decimal.RequireFromString("100")}},
		}, nil)
	ms.On("GetNotificationTargetsByUserIDs", mock.Anything, mock.Anything).
		Return(map[string][]domain.NotificationTarget{
			"u1": {{UserID: "u1", Channel: domain.ChannelDiscord, ChannelTarget: "hook"}},
			// u2 has no linked target.
		}, nil)

	d := dispatch.New(ms, notifystate.New(), map[domain.Channel]notify.Adapter{}, silentLog())
	subscribed, err := d.PreloadForCycle(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1"}, subscribed)
}

func TestProcessResultAndFlush_SendsAndMarksNotified(t *testing.T) {
	ms := new(storemock.Store)
	ms.On("GetActiveWatchersByProductIDs", mock.Anything, mock.Anything).
		Return(map[string][]domain.UserWatchEntry{
			"p1": {{UserID: "u1", ProductID: "p1", MaxPrice: decimal.RequireFromString("100")}},
		}, nil)
	ms.On("GetNotificationTargetsByUserIDs", mock.Anything, mock.Anything).
		Return(map[string][]domain.NotificationTarget{
			"u1": {{UserID: "u1", Channel: domain.ChannelDiscord, ChannelTarget: "hook-1"}},
		}, nil)
	ms.On("HasRecentSuccessfulDelivery", mock.Anything, "u1", "p1", "s1", domain.ChannelDiscord, mock.Anything).
		Return(false, nil)
	ms.On("CreateNotification", mock.Anything, mock.Anything).Return("notif-1", nil)
	ms.On("RecordDelivery", mock.Anything, "notif-1", mock.Anything).Return(nil)
	ms.On("UpdateNotificationStatus", mock.Anything, "notif-1", mock.Anything).Return(nil)

	adapter := &fakeAdapter{channel: domain.ChannelDiscord}
	state := notifystate.New()
	d := dispatch.New(ms, state, map[domain.Channel]notify.Adapter{domain.ChannelDiscord: adapter}, silentLog())

	_, err := d.PreloadForCycle(context.Background(), []string{"p1"})
	require.NoError(t, err)

	d.ProcessResult("p1", "s1", "Booster Box", "Card Shop", available("79.99"))
	assert.Equal(t, 1, d.QueueDepth())

	sent, err := d.FlushNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, d.QueueDepth())
	assert.Equal(t, []string{"hook-1"}, adapter.sent)

	assert.True(t, state.ShouldNotify("u1", "p1", "s1", available("70.00"), decimal.RequireFromString("100")))
	assert.False(t, state.ShouldNotify("u1", "p1", "s1", available("79.99"), decimal.RequireFromString("100")))
}

func TestProcessResult_SkipsOverBudgetAndUnavailable(t *testing.T) {
	ms := new(storemock.Store)
	ms.On("GetActiveWatchersByProductIDs", mock.Anything, mock.Anything).
		Return(map[string][]domain.UserWatchEntry{
			"p1": {{UserID: "u1", ProductID: "p1", MaxPrice: decimal.RequireFromString("50")}},
		}, nil)
	ms.On("GetNotificationTargetsByUserIDs", mock.Anything, mock.Anything).
		Return(map[string][]domain.NotificationTarget{
			"u1": {{UserID: "u1", Channel: domain.ChannelDiscord, ChannelTarget: "hook-1"}},
		}, nil)

	d := dispatch.New(ms, notifystate.New(), map[domain.Channel]notify.Adapter{}, silentLog())

	_, err := d.PreloadForCycle(context.Background(), []string{"p1"})
	require.NoError(t, err)

	d.ProcessResult("p1", "s1", "Booster Box", "Card Shop", available("79.99"))
	assert.Equal(t, 0, d.QueueDepth(), "over budget must not enqueue")

	d.ProcessResult("p1", "s1", "Booster Box", "Card Shop", domain.ProductResult{IsAvailable: false})
	assert.Equal(t, 0, d.QueueDepth(), "unavailable must not enqueue")
}

func TestFlushNotifications_FailedSendDoesNotAdvanceState(t *testing.T) {
	ms := new(storemock.Store)
	ms.On("GetActiveWatchersByProductIDs", mock.Anything, mock.Anything).
		Return(map[string][]domain.UserWatchEntry{
			"p1": {{UserID: "u1", ProductID: "p1", MaxPrice: decimal.RequireFromString("100")}},
		}, nil)
	ms.On("GetNotificationTargetsByUserIDs", mock.Anything, mock.Anything).
		Return(map[string][]domain.NotificationTarget{
			"u1": {{UserID: "u1", Channel: domain.ChannelDiscord, ChannelTarget: "hook-1"}},
		}, nil)
	ms.On("HasRecentSuccessfulDelivery", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, nil)
	ms.On("CreateNotification", mock.Anything, mock.Anything).Return("notif-1", nil)
	ms.On("RecordDelivery", mock.Anything, "notif-1", mock.Anything).Return(nil)
	ms.On("UpdateNotificationStatus", mock.Anything, "notif-1", mock.Anything).Return(nil)

	adapter := &fakeAdapter{channel: domain.ChannelDiscord, err: errors.New("boom")}
	state := notifystate.New()
	d := dispatch.New(ms, state, map[domain.Channel]notify.Adapter{domain.ChannelDiscord: adapter}, silentLog())

	_, err := d.PreloadForCycle(context.Background(), []string{"p1"})
	require.NoError(t, err)

	d.ProcessResult("p1", "s1", "Booster Box", "Card Shop", available("79.99"))
	sent, err := d.FlushNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "a failed delivery must not count as sent")

	assert.True(t, state.ShouldNotify("u1", "p1", "s1", available("79.99"), decimal.RequireFromString("100")),
		"a failed delivery must not advance hysteresis state")
}

func TestFlushNotifications_IdempotencySkipsAlreadySentDelivery(t *testing.T) {
	ms := new(storemock.Store)
	ms.On("GetActiveWatchersByProductIDs", mock.Anything, mock.Anything).
		Return(map[string][]domain.UserWatchEntry{
			"p1": {{UserID: "u1", ProductID: "p1", MaxPrice: decimal.RequireFromString("100")}},
		}, nil)
	ms.On("GetNotificationTargetsByUserIDs", mock.Anything, mock.Anything).
		Return(map[string][]domain.NotificationTarget{
			"u1": {{UserID: "u1", Channel: domain.ChannelDiscord, ChannelTarget: "hook-1"}},
		}, nil)
	ms.On("HasRecentSuccessfulDelivery", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(true, nil)

	adapter := &fakeAdapter{channel: domain.ChannelDiscord}
	d := dispatch.New(ms, notifystate.New(), map[domain.Channel]notify.Adapter{domain.ChannelDiscord: adapter}, silentLog())

	_, err := d.PreloadForCycle(context.Background(), []string{"p1"})
	require.NoError(t, err)

	d.ProcessResult("p1", "s1", "Booster Box", "Card Shop", available("79.99"))
	sent, err := d.FlushNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "an idempotent skip must not be counted as a send")

	assert.Empty(t, adapter.sent, "already-delivered notification must not be re-sent")
	ms.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything)
}
