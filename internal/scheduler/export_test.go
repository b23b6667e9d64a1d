package scheduler

import (
	"context"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// DueShopsForTick re-exports dueShopsForTick for tests in package
// scheduler_test.
func DueShopsForTick(shops []domain.ShopConfig, tick int64) []domain.ShopConfig {
	return dueShopsForTick(shops, tick)
}

// RunCycleForTest re-exports runCycle for tests in package scheduler_test.
func RunCycleForTest(s *Scheduler, ctx context.Context, tick int64) error {
	return s.runCycle(ctx, tick)
}
