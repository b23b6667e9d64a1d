package governor_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwatch/cardwatch/internal/config"
	"github.com/cardwatch/cardwatch/internal/governor"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

func fastDefaults() config.GovernorConfig {
	return config.GovernorConfig{
		MaxConcurrency: 2,
		RequestDelay:   0,
		JitterFraction: 0,
		RatePerSecond:  1000,
		RateBurst:      1000,
	}
}

func TestGovernor_LimitsConcurrency(t *testing.T) {
	t.Parallel()

	g := governor.New(domain.ShopConfig{ID: "shop-a"}, config.GovernorConfig{
		MaxConcurrency: 1,
		RatePerSecond:  1000,
		RateBurst:      1000,
	}, "")

	release1, err := g.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release2, err := g.Acquire(context.Background())
		require.NoError(t, err)
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should have blocked while the slot is held")
	case <-time.After(50 * time.Millisecond):
	}

	release1()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never unblocked after release")
	}
}

func TestGovernor_ContextCancelDuringWaitReturnsError(t *testing.T) {
	t.Parallel()

	g := governor.New(domain.ShopConfig{ID: "shop-b"}, config.GovernorConfig{
		MaxConcurrency: 1,
		RatePerSecond:  1000,
		RateBurst:      1000,
	}, "")

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx)
	assert.Error(t, err)
}

func TestGovernor_PerShopOverridesBeatDefaults(t *testing.T) {
	t.Parallel()

	shop := domain.ShopConfig{
		ID:      "shop-c",
		AntiBot: domain.AntiBotConfig{MaxConcurrency: 3, RequestDelayMs: 10, UseProxy: true},
	}
	def := fastDefaults()
	def.ProxyEnabled = true

	g := governor.New(shop, def, "http://proxy.example.com:8080")
	assert.Equal(t, "http://proxy.example.com:8080", g.ProxyURL())

	var inFlight atomic.Int32
	var maxSeen atomic.Int32
	for i := 0; i < 3; i++ {
		release, err := g.Acquire(context.Background())
		require.NoError(t, err)
		n := inFlight.Add(1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		defer release()
	}
	assert.Equal(t, int32(3), maxSeen.Load())
}

func TestGovernor_ProxyNotBoundWhenShopOptsOut(t *testing.T) {
	t.Parallel()

	def := fastDefaults()
	def.ProxyEnabled = true

	g := governor.New(domain.ShopConfig{ID: "shop-d"}, def, "http://proxy.example.com:8080")
	assert.Equal(t, "", g.ProxyURL())
}
