// Package preload warms the shared cache ahead of the user reaching a
// booking step. Warming is best-effort: a failed warm is absorbed because
// the consumer retries the same query synchronously moments later.
package preload

import (
	"context"
	"time"

	"github.com/glowbook/bookingflow/internal/availability"
	"github.com/glowbook/bookingflow/internal/cache"
	"github.com/glowbook/bookingflow/internal/catalog"
	"github.com/glowbook/bookingflow/internal/observability/metrics"
	"github.com/glowbook/bookingflow/pkg/logging"
)

// Outcome classifies a warmer run.
type Outcome string

const (
	// OutcomeOK means the warmer fetched and cached fresh data.
	OutcomeOK Outcome = "ok"
	// OutcomeSkipped means the cache was already warm.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the fetch failed; the error is recorded but
	// never propagated to the user.
	OutcomeFailed Outcome = "failed"
)

// Result is a warmer's typed outcome, replacing silent error swallowing
// so callers and tests can assert what happened.
type Result struct {
	Outcome Outcome
	Err     error
}

func ok() Result      { return Result{Outcome: OutcomeOK} }
func skipped() Result { return Result{Outcome: OutcomeSkipped} }
func failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}

// Preloader fires speculative catalog and availability queries through
// the same cache-aware gateways the on-demand consumers use, so a warm
// entry is observed under its canonical key.
type Preloader struct {
	catalog    *catalog.Catalog
	resolver   *availability.Resolver
	store      cache.Store
	logger     *logging.Logger
	metrics    *metrics.BookingMetrics
	catalogTTL time.Duration
	staffTTL   time.Duration
	now        func() time.Time
}

// Option configures a Preloader.
type Option func(*Preloader)

// WithTTLs overrides the TTLs used for warm checks.
func WithTTLs(catalogTTL, staffTTL time.Duration) Option {
	return func(p *Preloader) {
		p.catalogTTL = catalogTTL
		p.staffTTL = staffTTL
	}
}

// WithMetrics attaches booking metrics.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(p *Preloader) { p.metrics = m }
}

// WithClock overrides the preloader's clock.
func WithClock(now func() time.Time) Option {
	return func(p *Preloader) { p.now = now }
}

// NewPreloader creates a preloader over the catalog gateway and resolver.
func NewPreloader(cat *catalog.Catalog, res *availability.Resolver, store cache.Store, logger *logging.Logger, opts ...Option) *Preloader {
	if logger == nil {
		logger = logging.Default()
	}
	p := &Preloader{
		catalog:    cat,
		resolver:   res,
		store:      store,
		logger:     logger,
		catalogTTL: cache.CatalogTTL,
		staffTTL:   cache.StaffTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Go runs a warmer on its own goroutine, discarding the result. Panics
// are recovered: a preload can never take down the caller.
func (p *Preloader) Go(fn func() Result) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("preload panicked", "panic", r)
			}
		}()
		fn()
	}()
}

// Categories warms the category list.
func (p *Preloader) Categories(ctx context.Context) Result {
	return p.warmCatalog(ctx, "categories", cache.CategoriesKey(), p.catalogTTL, func() error {
		_, err := p.catalog.Categories(ctx)
		return err
	})
}

// ServicesForCategory warms one category's service list.
func (p *Preloader) ServicesForCategory(ctx context.Context, categoryID string) Result {
	return p.warmCatalog(ctx, "services", cache.ServicesKey(categoryID), p.catalogTTL, func() error {
		_, err := p.catalog.Services(ctx, categoryID)
		return err
	})
}

// StaffForVariation warms the staff list for one service variation.
func (p *Preloader) StaffForVariation(ctx context.Context, serviceID, variationID string) Result {
	return p.warmCatalog(ctx, "staff", cache.StaffKey(variationID), p.staffTTL, func() error {
		_, err := p.catalog.Staff(ctx, serviceID, variationID)
		return err
	})
}

// AddonsForService warms the add-on list for one service.
func (p *Preloader) AddonsForService(ctx context.Context, serviceID string) Result {
	return p.warmCatalog(ctx, "addons", cache.AddonsKey(serviceID), p.staffTTL, func() error {
		_, err := p.catalog.Addons(ctx, serviceID)
		return err
	})
}

// UpcomingAvailability warms the next days of availability for a staff
// and service combination, starting tomorrow so the warmed batch key
// matches the on-demand calendar query.
func (p *Preloader) UpcomingAvailability(ctx context.Context, staffID, serviceID, variationID string, addonIDs []string, days int) Result {
	if days <= 0 {
		days = 2
	}
	now := p.now().UTC()
	win := availability.NewDateWindow(now.AddDate(0, 0, 1), now.AddDate(0, 0, days))
	return p.WindowAvailability(ctx, staffID, serviceID, variationID, addonIDs, win)
}

// WindowAvailability warms an explicit window of availability. A resolve
// that issued no network calls means every batch was already cached.
func (p *Preloader) WindowAvailability(ctx context.Context, staffID, serviceID, variationID string, addonIDs []string, win availability.DateWindow) Result {
	res, err := p.resolver.Resolve(ctx, availability.ResolveRequest{
		StaffID:     staffID,
		ServiceID:   serviceID,
		VariationID: variationID,
		AddonIDs:    addonIDs,
		Window:      win,
	})
	if err != nil {
		p.metrics.ObservePreload("availability", string(OutcomeFailed))
		p.logger.Debug("availability preload failed", "staff_id", staffID, "error", err)
		return failed(err)
	}
	if res.NetworkCalls == 0 {
		p.metrics.ObservePreload("availability", string(OutcomeSkipped))
		return skipped()
	}
	p.metrics.ObservePreload("availability", string(OutcomeOK))
	return ok()
}

func (p *Preloader) warmCatalog(ctx context.Context, warmer string, key cache.Key, ttl time.Duration, fetch func() error) Result {
	if _, warm := p.store.Get(ctx, key, ttl); warm {
		p.metrics.ObservePreload(warmer, string(OutcomeSkipped))
		return skipped()
	}
	if err := fetch(); err != nil {
		p.metrics.ObservePreload(warmer, string(OutcomeFailed))
		p.logger.Debug("preload failed", "warmer", warmer, "key", key.String(), "error", err)
		return failed(err)
	}
	p.metrics.ObservePreload(warmer, string(OutcomeOK))
	return ok()
}
