// Package scheduler drives the Cycle Scheduler (Component J): one outer
// cron tick fans out across every enabled shop due at that tick's tier,
// coordinating the shop engine, governor, scraper, hourly result store,
// notification-state engine and multi-user dispatcher into a single
// periodic pass.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cardwatch/cardwatch/internal/catalog"
	"github.com/cardwatch/cardwatch/internal/config"
	"github.com/cardwatch/cardwatch/internal/dispatch"
	"github.com/cardwatch/cardwatch/internal/governor"
	"github.com/cardwatch/cardwatch/internal/metrics"
	"github.com/cardwatch/cardwatch/internal/notify"
	"github.com/cardwatch/cardwatch/internal/notifystate"
	"github.com/cardwatch/cardwatch/internal/scraper"
	"github.com/cardwatch/cardwatch/internal/shopengine"
	"github.com/cardwatch/cardwatch/internal/store"
	"github.com/cardwatch/cardwatch/pkg/apperrors"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// lockName is the single distributed advisory lock guarding the cycle
// loop. Unlike the codebase this scheduler is grounded on, which names one
// lock per independent cron job, this system runs one loop driving one
// matrix, so one lock name suffices.
const lockName = "cycle"

// staleRunGrace bounds how long a JobRun may sit in "running" before a
// startup sweep reclassifies it as crashed.
const staleRunGrace = 2 * time.Hour

var allTiers = []domain.FetchingTier{
	domain.TierSuperFast,
	domain.TierFast,
	domain.TierSlow,
	domain.TierSuperSlow,
}

// CatalogLoader reloads the on-disk shop/product catalog. Production wires
// catalog.Load(dir); tests substitute a closure over a fixed Catalog.
type CatalogLoader func() (*catalog.Catalog, error)

// Scheduler owns the cron tick, the per-shop Governor pool (reused across
// cycles so rate-limit state persists), and everything a cycle needs to
// build fresh per-cycle Dispatcher/notifystate instances.
type Scheduler struct {
	store       store.Store
	loadCatalog CatalogLoader
	governorCfg config.GovernorConfig
	scheduleCfg config.ScheduleConfig
	adapters    map[domain.Channel]notify.Adapter
	proxyURL    string
	hostname    string
	log         *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID
	tick    int64

	govMu     sync.Mutex
	governors map[string]*governor.Governor
}

// New builds a Scheduler. adapters maps each enabled notification channel
// to its Channel Adapter; proxyURL is the process-wide upstream proxy used
// when both GovernorConfig.ProxyEnabled and a shop's AntiBot.UseProxy opt
// in.
func New(
	s store.Store,
	loadCatalog CatalogLoader,
	governorCfg config.GovernorConfig,
	scheduleCfg config.ScheduleConfig,
	adapters map[domain.Channel]notify.Adapter,
	proxyURL string,
	log *slog.Logger,
) *Scheduler {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		store:       s,
		loadCatalog: loadCatalog,
		governorCfg: governorCfg,
		scheduleCfg: scheduleCfg,
		adapters:    adapters,
		proxyURL:    proxyURL,
		hostname:    hostname,
		log:         log,
		cron:        cron.New(),
		governors:   make(map[string]*governor.Governor),
	}
}

// Start registers the outer tick and starts the cron driver. The tick runs
// at the super-fast tier's cadence (BasePeriod); slower tiers are gated
// inside runCycle by their tier multiplier.
func (s *Scheduler) Start() error {
	id, err := s.cron.AddFunc("@every "+s.scheduleCfg.BasePeriod.String(), s.runTick)
	if err != nil {
		return fmt.Errorf("scheduling cycle: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.log.Info("scheduler started", "base_period", s.scheduleCfg.BasePeriod)
	return nil
}

// Stop stops the cron driver and returns a context that closes once any
// in-flight cycle has finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// RecoverStaleJobRuns marks any JobRun left "running" past staleRunGrace as
// crashed. Called once at startup, before Start.
func (s *Scheduler) RecoverStaleJobRuns(ctx context.Context) {
	affected, err := s.store.RecoverStaleJobRuns(ctx, staleRunGrace)
	if err != nil {
		s.log.Warn("failed to recover stale job runs", "error", err)
		return
	}
	if affected > 0 {
		metrics.SchedulerStaleRunsRecoveredTotal.Add(float64(affected))
		s.log.Info("recovered stale job runs as crashed", "count", affected)
	}
}

func (s *Scheduler) runTick() {
	tick := atomic.AddInt64(&s.tick, 1)
	ctx := context.Background()
	if err := s.runCycle(ctx, tick); err != nil {
		s.log.Error("cycle failed", "tick", tick, "error", err)
	}
	s.syncNextRunTimestamps(tick)
}

// syncNextRunTimestamps projects each tier's next due tick forward from the
// cron entry's own next-fire time, since a single cron entry drives every
// tier.
func (s *Scheduler) syncNextRunTimestamps(completedTick int64) {
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return
	}
	for _, tier := range allTiers {
		mult := int64(domain.TierMultiplier(tier))
		nextTick := completedTick + 1
		ticksAhead := int64(0)
		for nextTick%mult != 0 {
			nextTick++
			ticksAhead++
		}
		nextRun := entry.Next.Add(time.Duration(ticksAhead) * s.scheduleCfg.BasePeriod)
		metrics.SchedulerNextRunTimestamp.WithLabelValues(string(tier)).Set(float64(nextRun.Unix()))
	}
}

// runCycle executes one full pass across every shop due at tick, guarded by
// the distributed scheduler lock and recorded as a JobRun.
func (s *Scheduler) runCycle(ctx context.Context, tick int64) error {
	return s.runCycleWith(ctx, lockName, func(cat *catalog.Catalog) []domain.ShopConfig {
		return dueShopsForTick(cat.EnabledShops(), tick)
	})
}

// RunNow executes one cycle immediately against every enabled shop,
// bypassing tier gating entirely — an operator asking for a cycle "now"
// means now, for everything, not just whatever tier the current tick
// happens to land on. It still takes the same scheduler lock as a
// tick-driven cycle, so a manual trigger can never race a scheduled one.
// Recorded under a distinct job name so manual runs are distinguishable in
// JobRun history.
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.runCycleWith(ctx, "cycle-manual", func(cat *catalog.Catalog) []domain.ShopConfig {
		return cat.EnabledShops()
	})
}

func (s *Scheduler) runCycleWith(ctx context.Context, jobName string, selectShops func(*catalog.Catalog) []domain.ShopConfig) error {
	start := time.Now()

	acquired, err := s.store.AcquireSchedulerLock(ctx, lockName, s.hostname, s.scheduleCfg.LockTTL)
	if err != nil {
		metrics.CycleErrorsTotal.WithLabelValues("all").Inc()
		return apperrors.Wrap(err, apperrors.ErrUnavailable, "acquiring scheduler lock")
	}
	if !acquired {
		metrics.CycleSkippedTotal.WithLabelValues("all").Inc()
		s.log.Info("scheduler lock held by another instance, skipping cycle", "job", jobName)
		return nil
	}
	defer func() {
		if releaseErr := s.store.ReleaseSchedulerLock(ctx, lockName, s.hostname); releaseErr != nil {
			s.log.Warn("failed to release scheduler lock", "error", releaseErr)
		}
	}()

	runID, err := s.store.InsertJobRun(ctx, jobName)
	if err != nil {
		metrics.CycleErrorsTotal.WithLabelValues("all").Inc()
		return apperrors.Wrap(err, apperrors.ErrInternal, "recording job start")
	}

	shopsProcessed, productsScraped, notificationsSent, runErr := s.runCycleBody(ctx, selectShops)

	status, errText := "succeeded", ""
	if runErr != nil {
		status = "failed"
		errText = runErr.Error()
		metrics.CycleErrorsTotal.WithLabelValues("all").Inc()
	}
	if completeErr := s.store.CompleteJobRun(ctx, runID, status, errText, shopsProcessed, productsScraped, notificationsSent); completeErr != nil {
		s.log.Warn("failed to record job completion", "error", completeErr)
	}

	metrics.CycleDuration.WithLabelValues("all").Observe(time.Since(start).Seconds())
	if runErr == nil {
		metrics.SchedulerLastSuccessTimestamp.WithLabelValues("all").Set(float64(time.Now().Unix()))
	}
	return runErr
}

func (s *Scheduler) runCycleBody(ctx context.Context, selectShops func(*catalog.Catalog) []domain.ShopConfig) (shopsProcessed, productsScraped, notificationsSent int, err error) {
	cat, err := s.loadCatalog()
	if err != nil {
		return 0, 0, 0, apperrors.Wrap(err, apperrors.ErrInvalidInput, "loading catalog")
	}

	dueShops := selectShops(cat)

	resolved := cat.ResolvedProducts()
	productsByID := make(map[string]domain.ResolvedProduct, len(resolved))
	allProductIDs := make([]string, 0, len(resolved))
	for _, p := range resolved {
		productsByID[p.ID] = p
		allProductIDs = append(allProductIDs, p.ID)
	}

	state := notifystate.New()
	if err := state.Preload(ctx, s.store, allProductIDs); err != nil {
		return 0, 0, 0, fmt.Errorf("preloading notification state: %w", err)
	}

	disp := dispatch.New(s.store, state, s.adapters, s.log)
	subscribed, err := disp.PreloadForCycle(ctx, allProductIDs)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("preloading dispatch targets: %w", err)
	}
	subscribedSet := make(map[string]struct{}, len(subscribed))
	for _, id := range subscribed {
		subscribedSet[id] = struct{}{}
	}

	cycleCtx, cancel := context.WithTimeout(ctx, s.scheduleCfg.CycleDeadline)
	defer cancel()

	var scraped int32
	var wg sync.WaitGroup
	for _, shop := range dueShops {
		shop := shop
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := s.runShop(cycleCtx, shop, productsByID, subscribedSet, cat.Series, disp)
			atomic.AddInt32(&scraped, int32(n))
		}()
	}
	wg.Wait()

	sent, flushErr := disp.FlushNotifications(ctx)
	if flushErr != nil {
		s.log.Warn("flushing notifications failed", "error", flushErr)
	}
	if flushErr := state.Flush(ctx, s.store); flushErr != nil {
		s.log.Warn("flushing notification state failed", "error", flushErr)
	}

	return len(dueShops), int(scraped), sent, nil
}

// runShop scrapes every subscribed product against one shop, gated purely
// by that shop's Governor — its internal semaphore already is the
// concurrency bound, so no additional limiter is needed here. Products are
// ordered by ProductSetID so adjacent scrapes of the same set run
// back-to-back; this is bookkeeping only; each product still costs its own
// search round trip.
func (s *Scheduler) runShop(
	ctx context.Context,
	shop domain.ShopConfig,
	productsByID map[string]domain.ResolvedProduct,
	subscribed map[string]struct{},
	series domain.SeriesCatalog,
	disp *dispatch.Dispatcher,
) int {
	gov := s.governorFor(shop)

	eng, err := shopengine.New(shop.Engine, shopengine.WithProxyURL(gov.ProxyURL()))
	if err != nil {
		s.log.Error("building shop engine", "shop", shop.ID, "error", err)
		return 0
	}
	defer func() {
		if closeErr := eng.Close(); closeErr != nil {
			s.log.Warn("closing shop engine", "shop", shop.ID, "error", closeErr)
		}
	}()

	scr := scraper.New(eng, s.log)

	products := productsForShop(productsByID, subscribed)
	sort.Slice(products, func(i, j int) bool {
		return products[i].ProductSetID < products[j].ProductSetID
	})

	var scraped int32
	var wg sync.WaitGroup
	for _, product := range products {
		product := product
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := gov.Acquire(ctx)
			if err != nil {
				return
			}
			defer release()

			result := scr.Scrape(ctx, shop, product, series)
			atomic.AddInt32(&scraped, 1)
			metrics.ResultsStoredTotal.Inc()

			if err := s.store.UpsertProductResult(ctx, &result); err != nil {
				s.log.Warn("storing product result failed", "shop", shop.ID, "product", product.ID, "error", err)
			}
			disp.ProcessResult(product.ID, shop.ID, product.Name, shop.Name, result)
		}()
	}
	wg.Wait()
	return int(scraped)
}

func (s *Scheduler) governorFor(shop domain.ShopConfig) *governor.Governor {
	s.govMu.Lock()
	defer s.govMu.Unlock()

	if g, ok := s.governors[shop.ID]; ok {
		return g
	}
	proxyURL := ""
	if s.governorCfg.ProxyEnabled && shop.AntiBot.UseProxy {
		proxyURL = s.proxyURL
	}
	g := governor.New(shop, s.governorCfg, proxyURL)
	s.governors[shop.ID] = g
	return g
}

// dueShopsForTick returns every shop whose FetchingTier multiplier divides
// tick, so super-fast shops are included every tick and slower tiers only
// on their multiple.
func dueShopsForTick(shops []domain.ShopConfig, tick int64) []domain.ShopConfig {
	due := make([]domain.ShopConfig, 0, len(shops))
	for _, shop := range shops {
		mult := int64(domain.TierMultiplier(shop.FetchingTier))
		if tick%mult == 0 {
			due = append(due, shop)
		}
	}
	return due
}

func productsForShop(productsByID map[string]domain.ResolvedProduct, subscribed map[string]struct{}) []domain.ResolvedProduct {
	out := make([]domain.ResolvedProduct, 0, len(subscribed))
	for id := range subscribed {
		if p, ok := productsByID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
