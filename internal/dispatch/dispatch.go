// Package dispatch fans one scrape result out to every subscribed user's
// linked channels. It holds zero durable state of its own: watcher/target
// lookups are preloaded once per cycle, the hysteresis decision is owned by
// notifystate, and delivery outcomes are appended to the Store's
// notification audit log.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cardwatch/cardwatch/internal/metrics"
	"github.com/cardwatch/cardwatch/internal/notify"
	"github.com/cardwatch/cardwatch/internal/notifystate"
	"github.com/cardwatch/cardwatch/internal/store"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

const (
	batchSize  = 25
	batchDelay = 1100 * time.Millisecond

	// idempotencyWindow bounds how far back HasRecentSuccessfulDelivery
	// looks; it only needs to cover a scheduler restart mid-flush, not a
	// whole cycle.
	idempotencyWindow = time.Hour

	// DefaultHighWaterMark is the default Dispatcher.HighWaterMark. The
	// Scheduler does not compare QueueDepth against it; scrapes are not
	// paused while the queue is deep.
	DefaultHighWaterMark = 500
)

// item is one enqueued, not-yet-sent notification.
type item struct {
	userID    string
	productID string
	shopID    string
	target    domain.NotificationTarget
	payload   domain.NotificationPayload
}

// Dispatcher is the Multi-User Dispatcher (Component H). One instance is
// owned exclusively by the cycle that created it; producers (per-shop
// scrapers) hand results to ProcessResult concurrently, so the queue and
// the preloaded lookup maps are mutex-guarded.
type Dispatcher struct {
	store    store.Store
	state    *notifystate.Engine
	adapters map[domain.Channel]notify.Adapter
	log      *slog.Logger

	HighWaterMark int

	mu       sync.Mutex
	watchers map[string][]domain.UserWatchEntry    // productID -> watchers
	targets  map[string][]domain.NotificationTarget // userID -> linked channels
	queue    []item
}

// New builds a Dispatcher. adapters maps each supported Channel to the
// Channel Adapter that delivers to it; a user with a target on a channel
// missing from adapters is silently skipped (treated as unlinked).
func New(s store.Store, state *notifystate.Engine, adapters map[domain.Channel]notify.Adapter, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:         s,
		state:         state,
		adapters:      adapters,
		log:           log,
		HighWaterMark: DefaultHighWaterMark,
	}
}

// PreloadForCycle loads every active watcher and linked notification target
// touching productIDs, and returns the subset of productIDs that have at
// least one subscriber with a linked channel — the Scheduler may elide
// scrapes for the rest.
func (d *Dispatcher) PreloadForCycle(ctx context.Context, productIDs []string) ([]string, error) {
	watchers, err := d.store.GetActiveWatchersByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("loading active watchers: %w", err)
	}

	userSet := make(map[string]struct{})
	for _, ws := range watchers {
		for _, w := range ws {
			userSet[w.UserID] = struct{}{}
		}
	}
	userIDs := make([]string, 0, len(userSet))
	for id := range userSet {
		userIDs = append(userIDs, id)
	}

	targets, err := d.store.GetNotificationTargetsByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("loading notification targets: %w", err)
	}

	d.mu.Lock()
	d.watchers = watchers
	d.targets = targets
	d.mu.Unlock()

	subscribed := make([]string, 0, len(watchers))
	for productID, ws := range watchers {
		for _, w := range ws {
			if len(targets[w.UserID]) > 0 {
				subscribed = append(subscribed, productID)
				break
			}
		}
	}
	return subscribed, nil
}

// ProcessResult routes one scrape result to every watcher of productID,
// making zero Store calls. A notification is enqueued only for watchers
// whose linked channels exist and whose hysteresis check passes; their
// tracked state advances later, through MarkNotified, only when a delivery
// succeeds. Every other watcher's tracked state advances here.
func (d *Dispatcher) ProcessResult(
	productID, shopID, productName, shopName string,
	result domain.ProductResult,
) {
	d.mu.Lock()
	watchers := d.watchers[productID]
	d.mu.Unlock()

	for _, w := range watchers {
		d.mu.Lock()
		targets := d.targets[w.UserID]
		d.mu.Unlock()

		// Evaluate against the state as it stood before this observation —
		// UpdateTrackedState overwrites the same tuple, so it must run after
		// the decision is captured, not before. A watcher that is enqueued is
		// left untouched here so a failed send is retried next cycle.
		notify := false
		reason := ""
		eligible := len(targets) > 0 && result.Price != nil && result.IsAvailable && !result.Price.GreaterThan(w.MaxPrice)
		if eligible {
			if d.state.ShouldNotify(w.UserID, productID, shopID, result, w.MaxPrice) {
				notify = true
				reason = d.state.NotifyReason(w.UserID, productID, shopID)
			} else {
				metrics.NotificationsSuppressedTotal.WithLabelValues("hysteresis").Inc()
			}
		}

		if !notify {
			d.state.UpdateTrackedState(w.UserID, productID, shopID, result)
			continue
		}
		metrics.NotificationsTriggeredTotal.WithLabelValues(reason).Inc()

		payload := domain.NotificationPayload{
			ProductName: productName,
			ProductID:   productID,
			ShopName:    shopName,
			ShopID:      shopID,
			Price:       *result.Price,
			MaxPrice:    w.MaxPrice,
			ProductURL:  result.ProductURL,
		}

		enqueued := false
		for _, target := range targets {
			if _, ok := d.adapters[target.Channel]; !ok {
				continue
			}
			d.enqueue(item{
				userID:    w.UserID,
				productID: productID,
				shopID:    shopID,
				target:    target,
				payload:   payload,
			})
			enqueued = true
		}
		if !enqueued {
			d.state.UpdateTrackedState(w.UserID, productID, shopID, result)
		}
	}
}

func (d *Dispatcher) enqueue(it item) {
	d.mu.Lock()
	d.queue = append(d.queue, it)
	depth := len(d.queue)
	d.mu.Unlock()
	metrics.DispatchQueueDepth.Set(float64(depth))
}

// QueueDepth reports how many notifications are waiting for the next
// flush. No component compares it against HighWaterMark.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// FlushNotifications drains the queue exactly once, in batches of
// batchSize with a batchDelay pause between batches so the aggregate send
// rate across all channels stays within the channels' own rate limits.
// Messages within a batch send concurrently. A successful send advances
// notifystate via MarkNotified; a failure is logged and leaves state
// untouched so the same watcher is re-evaluated next cycle.
func (d *Dispatcher) FlushNotifications(ctx context.Context) (sent int, err error) {
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()
	metrics.DispatchQueueDepth.Set(0)

	var sentCount int32
	for len(batch) > 0 {
		n := min(batchSize, len(batch))
		wg := sync.WaitGroup{}
		for _, it := range batch[:n] {
			wg.Add(1)
			go func(it item) {
				defer wg.Done()
				sentNow, err := d.send(ctx, it)
				if err != nil {
					d.log.Warn("notification delivery failed",
						"user_id", it.userID, "product_id", it.productID,
						"channel", it.target.Channel, "error", err,
					)
					return
				}
				if sentNow {
					atomic.AddInt32(&sentCount, 1)
				}
			}(it)
		}
		wg.Wait()

		batch = batch[n:]
		if len(batch) > 0 {
			time.Sleep(batchDelay)
		}
	}
	return int(sentCount), nil
}

// send delivers one item, recording the attempt to the audit log
// regardless of outcome and advancing notifystate only on success. sentNow
// is false both when a prior delivery already satisfied this notification
// (idempotent skip) and when delivery failed, so callers can tell a fresh
// send apart from a no-op.
func (d *Dispatcher) send(ctx context.Context, it item) (sentNow bool, err error) {
	already, err := d.store.HasRecentSuccessfulDelivery(
		ctx, it.userID, it.productID, it.shopID, it.target.Channel, idempotencyWindow,
	)
	if err != nil {
		return false, fmt.Errorf("checking idempotency: %w", err)
	}
	if already {
		return false, nil
	}

	notificationID, err := d.store.CreateNotification(ctx, &domain.Notification{
		UserID:  it.userID,
		Status:  domain.NotificationSending,
		Payload: it.payload,
	})
	if err != nil {
		return false, fmt.Errorf("creating notification record: %w", err)
	}

	adapter := d.adapters[it.target.Channel]
	start := time.Now()
	sendErr := adapter.Send(ctx, it.target.ChannelTarget, it.payload)
	metrics.DeliveryDuration.WithLabelValues(string(it.target.Channel)).Observe(time.Since(start).Seconds())

	delivery := domain.Delivery{
		Channel:       it.target.Channel,
		ChannelTarget: it.target.ChannelTarget,
		Attempts:      1,
	}
	if sendErr != nil {
		delivery.Status = domain.DeliveryFailed
		delivery.Error = sendErr.Error()
		metrics.DeliveryFailuresTotal.WithLabelValues(string(it.target.Channel)).Inc()
	} else {
		sentAt := time.Now()
		delivery.Status = domain.DeliverySent
		delivery.SentAt = &sentAt
		metrics.DeliveryLastSuccessTimestamp.WithLabelValues(string(it.target.Channel)).Set(float64(sentAt.Unix()))
	}

	if recErr := d.store.RecordDelivery(ctx, notificationID, delivery); recErr != nil {
		d.log.Warn("failed to record delivery attempt", "notification_id", notificationID, "error", recErr)
	}

	status := domain.NotificationSent
	if sendErr != nil {
		status = domain.NotificationFailed
	}
	if statusErr := d.store.UpdateNotificationStatus(ctx, notificationID, status); statusErr != nil {
		d.log.Warn("failed to update notification status", "notification_id", notificationID, "error", statusErr)
	}

	if sendErr != nil {
		return false, fmt.Errorf("sending via %s: %w", it.target.Channel, sendErr)
	}

	price := it.payload.Price
	d.state.MarkNotified(it.userID, it.productID, it.shopID, domain.ProductResult{
		IsAvailable: true,
		Price:       &price,
	}, time.Now())
	return true, nil
}
