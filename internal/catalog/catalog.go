// Package catalog is a cache-aware gateway over the provider's catalog
// lookups. Every consumer (flow, preloader, HTTP handlers) reads through
// it so warmed entries are observed under the same canonical keys.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/glowbook/bookingflow/internal/cache"
	"github.com/glowbook/bookingflow/internal/observability/metrics"
	"github.com/glowbook/bookingflow/internal/provider"
	"github.com/glowbook/bookingflow/pkg/logging"
)

// Provider is the catalog slice of the upstream client.
type Provider interface {
	GetCategories(ctx context.Context) ([]provider.Category, error)
	GetServices(ctx context.Context, categoryID string) ([]provider.Service, error)
	GetStaff(ctx context.Context, serviceID string) ([]provider.Staff, error)
	GetAddons(ctx context.Context, serviceID string) ([]provider.Addon, error)
}

// Catalog serves catalog lookups through the shared cache store.
type Catalog struct {
	provider   Provider
	store      cache.Store
	logger     *logging.Logger
	metrics    *metrics.BookingMetrics
	catalogTTL time.Duration
	staffTTL   time.Duration
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithTTLs overrides the catalog and staff TTLs.
func WithTTLs(catalogTTL, staffTTL time.Duration) Option {
	return func(c *Catalog) {
		c.catalogTTL = catalogTTL
		c.staffTTL = staffTTL
	}
}

// WithMetrics attaches booking metrics.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

// NewCatalog creates the gateway.
func NewCatalog(p Provider, store cache.Store, logger *logging.Logger, opts ...Option) *Catalog {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Catalog{
		provider:   p,
		store:      store,
		logger:     logger,
		catalogTTL: cache.CatalogTTL,
		staffTTL:   cache.StaffTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categories lists service categories.
func (c *Catalog) Categories(ctx context.Context) ([]provider.Category, error) {
	return lookup(ctx, c, cache.CategoriesKey(), c.catalogTTL, "categories", func() ([]provider.Category, error) {
		return c.provider.GetCategories(ctx)
	})
}

// Services lists the services of one category.
func (c *Catalog) Services(ctx context.Context, categoryID string) ([]provider.Service, error) {
	return lookup(ctx, c, cache.ServicesKey(categoryID), c.catalogTTL, "services", func() ([]provider.Service, error) {
		return c.provider.GetServices(ctx, categoryID)
	})
}

// Staff lists the staff able to perform a service. Results are cached per
// variation: staff eligibility is variation-specific upstream even though
// the query itself is keyed by service.
func (c *Catalog) Staff(ctx context.Context, serviceID, variationID string) ([]provider.Staff, error) {
	return lookup(ctx, c, cache.StaffKey(variationID), c.staffTTL, "staff", func() ([]provider.Staff, error) {
		return c.provider.GetStaff(ctx, serviceID)
	})
}

// Addons lists the add-ons applicable to a service. An empty list is a
// first-class answer and is cached like any other.
func (c *Catalog) Addons(ctx context.Context, serviceID string) ([]provider.Addon, error) {
	return lookup(ctx, c, cache.AddonsKey(serviceID), c.staffTTL, "addons", func() ([]provider.Addon, error) {
		return c.provider.GetAddons(ctx, serviceID)
	})
}

// FindService locates a service by ID within a category's list.
func (c *Catalog) FindService(ctx context.Context, categoryID, serviceID string) (*provider.Service, error) {
	services, err := c.Services(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	for i := range services {
		if services[i].ID == serviceID {
			return &services[i], nil
		}
	}
	return nil, fmt.Errorf("catalog: service %s not found in category %s", serviceID, categoryID)
}

func lookup[T any](ctx context.Context, c *Catalog, key cache.Key, ttl time.Duration, op string, fetch func() (T, error)) (T, error) {
	if v, ok := cache.GetJSON[T](ctx, c.store, key, ttl); ok {
		c.metrics.ObserveCacheHit(key.Namespace())
		return v, nil
	}
	c.metrics.ObserveCacheMiss(key.Namespace())

	started := time.Now()
	v, err := fetch()
	c.metrics.ObserveProviderLatency(op, time.Since(started).Seconds())
	if err != nil {
		c.metrics.ObserveProviderRequest(op, "error")
		var zero T
		return zero, fmt.Errorf("catalog: %s lookup: %w", op, err)
	}
	c.metrics.ObserveProviderRequest(op, "ok")
	cache.SetJSON(ctx, c.store, key, v)
	return v, nil
}
