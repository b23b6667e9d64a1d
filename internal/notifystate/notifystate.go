// Package notifystate holds the in-memory hysteresis truth table deciding
// whether a price observation should trigger a user notification. State is
// preloaded from Store at cycle start and flushed back in one batch at
// cycle end; between those two calls the in-memory view is authoritative
// and no further Store reads occur.
package notifystate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardwatch/cardwatch/internal/store"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// Engine is the notification-state truth table for one cycle. Safe for
// concurrent use: scrapers across different shops feed results into the
// same Engine as they complete.
type Engine struct {
	mu     sync.Mutex
	states map[string]domain.NotificationState
}

// New returns an empty Engine. Call Preload before using it in a cycle.
func New() *Engine {
	return &Engine{states: make(map[string]domain.NotificationState)}
}

// Preload loads every hysteresis tuple touching productIDs from s,
// replacing whatever state the Engine previously held.
func (e *Engine) Preload(ctx context.Context, s store.Store, productIDs []string) error {
	states, err := s.PreloadNotificationState(ctx, productIDs)
	if err != nil {
		return fmt.Errorf("preloading notification state: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = states
	return nil
}

// Flush writes every tuple currently held back to s in one batch, the
// end-of-cycle counterpart to Preload.
func (e *Engine) Flush(ctx context.Context, s store.Store) error {
	e.mu.Lock()
	batch := make([]domain.NotificationState, 0, len(e.states))
	for _, st := range e.states {
		batch = append(batch, st)
	}
	e.mu.Unlock()

	if err := s.FlushNotificationState(ctx, batch); err != nil {
		return fmt.Errorf("flushing notification state: %w", err)
	}
	return nil
}

func key(userID, productID, shopID string) string {
	return domain.NotificationState{UserID: userID, ProductID: productID, ShopID: shopID}.StateKey()
}

// ShouldNotify reports whether a new observation for (userID, productID,
// shopID) should trigger a notification: the result must be available and
// at or under userMaxPrice, and either no prior state exists, the product
// was previously unavailable (re-stock edge), or the price strictly
// dropped. An unchanged or higher price does not re-trigger.
func (e *Engine) ShouldNotify(userID, productID, shopID string, result domain.ProductResult, userMaxPrice decimal.Decimal) bool {
	if !result.IsAvailable || result.Price == nil || result.Price.GreaterThan(userMaxPrice) {
		return false
	}

	e.mu.Lock()
	prior, ok := e.states[key(userID, productID, shopID)]
	e.mu.Unlock()

	if !ok || !prior.WasAvailable {
		return true
	}
	if prior.LastPrice == nil {
		return true
	}
	return result.Price.LessThan(*prior.LastPrice)
}

// NotifyReason classifies why ShouldNotify just returned true, for metric
// labeling only: "first_seen" if no prior state exists, "restock" if the
// product was previously unavailable, otherwise "price_drop". Must be
// called before UpdateTrackedState overwrites the tuple it inspects.
func (e *Engine) NotifyReason(userID, productID, shopID string) string {
	e.mu.Lock()
	prior, ok := e.states[key(userID, productID, shopID)]
	e.mu.Unlock()

	if !ok {
		return "first_seen"
	}
	if !prior.WasAvailable {
		return "restock"
	}
	return "price_drop"
}

// UpdateTrackedState records the latest observation's availability and
// price without stamping lastNotified. The dispatcher calls it for every
// watcher of an observed product except those it enqueues a notification
// for; their state advances through MarkNotified once a delivery succeeds.
func (e *Engine) UpdateTrackedState(userID, productID, shopID string, result domain.ProductResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := key(userID, productID, shopID)
	st := e.states[k]
	st.UserID, st.ProductID, st.ShopID = userID, productID, shopID
	st.WasAvailable = result.IsAvailable
	st.LastPrice = result.Price
	e.states[k] = st
}

// MarkNotified records that a notification was just sent, advancing
// lastNotified/lastPrice/wasAvailable. Callers advance state only after a
// successful delivery — a failed send must leave state untouched so
// shouldNotify fires again next cycle.
func (e *Engine) MarkNotified(userID, productID, shopID string, result domain.ProductResult, notifiedAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := key(userID, productID, shopID)
	st := e.states[k]
	st.UserID, st.ProductID, st.ShopID = userID, productID, shopID
	st.LastNotified = &notifiedAt
	st.LastPrice = result.Price
	st.WasAvailable = true
	e.states[k] = st
}
