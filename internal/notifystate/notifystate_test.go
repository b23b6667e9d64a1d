package notifystate_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cardwatch/cardwatch/internal/notifystate"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

func available(price string) domain.ProductResult {
	p := decimal.RequireFromString(price)
	return domain.ProductResult{IsAvailable: true, Price: &p}
}

func unavailable() domain.ProductResult {
	return domain.ProductResult{IsAvailable: false}
}

func TestShouldNotify_NoPriorStateTriggers(t *testing.T) {
	e := notifystate.New()
	max := decimal.RequireFromString("100.00")
	assert.True(t, e.ShouldNotify("u1", "p1", "s1", available("90.00"), max))
}

func TestShouldNotify_UnavailableNeverTriggers(t *testing.T) {
	e := notifystate.New()
	max := decimal.RequireFromString("100.00")
	assert.False(t, e.ShouldNotify("u1", "p1", "s1", unavailable(), max))
}

func TestShouldNotify_OverBudgetDoesNotTrigger(t *testing.T) {
	e := notifystate.New()
	max := decimal.RequireFromString("50.00")
	assert.False(t, e.ShouldNotify("u1", "p1", "s1", available("90.00"), max))
}

func TestShouldNotify_EqualPriceDoesNotRetrigger(t *testing.T) {
	e := notifystate.New()
	max := decimal.RequireFromString("100.00")

	e.MarkNotified("u1", "p1", "s1", available("80.00"), time.Now())
	assert.False(t, e.ShouldNotify("u1", "p1", "s1", available("80.00"), max))
}

func TestShouldNotify_PriceDropRetriggers(t *testing.T) {
	e := notifystate.New()
	max := decimal.RequireFromString("100.00")

	e.MarkNotified("u1", "p1", "s1", available("80.00"), time.Now())
	assert.True(t, e.ShouldNotify("u1", "p1", "s1", available("79.99"), max))
}

func TestShouldNotify_PriceIncreaseDoesNotRetrigger(t *testing.T) {
	e := notifystate.New()
	max := decimal.RequireFromString("100.00")

	e.MarkNotified("u1", "p1", "s1", available("80.00"), time.Now())
	assert.False(t, e.ShouldNotify("u1", "p1", "s1", available("85.00"), max))
}

func TestShouldNotify_RestockRetriggersEvenAtSamePrice(t *testing.T) {
	e := notifystate.New()
	max := decimal.RequireFromString("100.00")

	e.MarkNotified("u1", "p1", "s1", available("80.00"), time.Now())
	e.UpdateTrackedState("u1", "p1", "s1", unavailable())

	assert.True(t, e.ShouldNotify("u1", "p1", "s1", available("80.00"), max))
}

func TestUpdateTrackedState_AdvancesWithoutNotifying(t *testing.T) {
	e := notifystate.New()
	e.UpdateTrackedState("u1", "p1", "s1", available("80.00"))

	max := decimal.RequireFromString("100.00")
	// Same price as the tracked state, never notified: equal-price rule
	// applies the same way as after a notification, since wasAvailable=true.
	assert.False(t, e.ShouldNotify("u1", "p1", "s1", available("80.00"), max))
	assert.True(t, e.ShouldNotify("u1", "p1", "s1", available("79.00"), max))
}

func TestStateIsScopedPerUserProductShop(t *testing.T) {
	e := notifystate.New()
	max := decimal.RequireFromString("100.00")

	e.MarkNotified("u1", "p1", "s1", available("80.00"), time.Now())

	assert.True(t, e.ShouldNotify("u2", "p1", "s1", available("80.00"), max))
	assert.True(t, e.ShouldNotify("u1", "p2", "s1", available("80.00"), max))
	assert.True(t, e.ShouldNotify("u1", "p1", "s2", available("80.00"), max))
}
