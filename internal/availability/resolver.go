// Package availability resolves bookable time slots for a staff/service
// combination across a rolling booking horizon, batching provider calls
// and reusing the shared cache so month-view navigation does not hammer
// the rate-sensitive upstream.
package availability

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/glowbook/bookingflow/internal/cache"
	"github.com/glowbook/bookingflow/internal/observability/metrics"
	"github.com/glowbook/bookingflow/internal/provider"
	"github.com/glowbook/bookingflow/pkg/logging"
)

const defaultBatchDays = 7

// SlotSource is the narrow slice of the provider the resolver consumes.
type SlotSource interface {
	GetAvailability(ctx context.Context, q provider.AvailabilityQuery) (map[string][]provider.TimeSlot, error)
}

// ResolveRequest identifies one availability query shape.
type ResolveRequest struct {
	StaffID     string
	ServiceID   string
	VariationID string
	AddonIDs    []string
	Window      DateWindow
}

// Result maps dates to their resolved slots. A date present with an empty
// slot list is fully booked; a date absent from the map was never checked
// (batch not requested, or its fetch failed). The distinction drives the
// waitlist affordance in the UI.
type Result struct {
	SlotsByDate map[string][]provider.TimeSlot
	// NetworkCalls counts provider fetches this resolve performed; zero
	// means the whole window was served from cache.
	NetworkCalls int
}

// Checked reports whether the date was covered by a resolved batch.
func (r *Result) Checked(date string) bool {
	_, ok := r.SlotsByDate[date]
	return ok
}

// FullyBooked reports whether a checked date has no bookable slot left.
func (r *Result) FullyBooked(date string) bool {
	slots, ok := r.SlotsByDate[date]
	if !ok {
		return false
	}
	for _, s := range slots {
		if s.Available {
			return false
		}
	}
	return true
}

// Resolver fetches and caches batched availability. Within one Resolve
// call batches run sequentially with jitter between network calls;
// concurrent Resolve calls for overlapping windows are not coalesced and
// may duplicate a fetch, with the last idempotent cache write winning.
type Resolver struct {
	source    SlotSource
	store     cache.Store
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
	tracer    trace.Tracer
	ttl       time.Duration
	batchDays int
	horizon   func(today time.Time) time.Time
	now       func() time.Time
	sleep     func(time.Duration)
	jitter    func() time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the resolver's clock.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithSleep overrides the inter-batch delay function.
func WithSleep(sleep func(time.Duration)) Option {
	return func(r *Resolver) { r.sleep = sleep }
}

// WithJitter overrides the jitter bounds for inter-batch delays.
func WithJitter(min, max time.Duration) Option {
	return func(r *Resolver) { r.jitter = jitterFn(min, max) }
}

// WithTTL overrides the availability cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

// WithBatchDays overrides the batch width.
func WithBatchDays(days int) Option {
	return func(r *Resolver) { r.batchDays = days }
}

// WithHorizon overrides how far past today the booking window extends.
func WithHorizon(horizon func(today time.Time) time.Time) Option {
	return func(r *Resolver) { r.horizon = horizon }
}

// WithMetrics attaches booking metrics.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates an availability resolver over the given slot source
// and cache store.
func NewResolver(source SlotSource, store cache.Store, logger *logging.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Resolver{
		source:    source,
		store:     store,
		logger:    logger,
		tracer:    otel.Tracer("bookingflow.internal.availability"),
		ttl:       cache.AvailabilityTTL,
		batchDays: defaultBatchDays,
		horizon: func(today time.Time) time.Time {
			return today.AddDate(0, 2, 0)
		},
		now:    time.Now,
		sleep:  time.Sleep,
		jitter: jitterFn(100*time.Millisecond, 300*time.Millisecond),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns slots per date for the requested window, clipped to the
// bookable horizon. Same-day slots are excluded: bookings open tomorrow to
// avoid racing staff schedule changes. A failed batch leaves its dates
// unchecked and does not abort siblings; the returned error is non-nil
// only when the first attempted network batch fails outright, so callers
// can show a single aggregate banner.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "availability.resolve")
	defer span.End()

	result := &Result{SlotsByDate: make(map[string][]provider.TimeSlot)}

	today := Day(r.now())
	win := req.Window.Clip(today.AddDate(0, 0, 1), r.horizon(today))
	if win.Empty() {
		return result, nil
	}

	var firstErr error
	networkCalls := 0
	winStart := win.Start.Format(DateFormat)
	winEnd := win.End.Format(DateFormat)
	for _, batch := range win.Batches(r.batchDays) {
		key := cache.AvailabilityKey(
			req.StaffID, req.ServiceID, req.VariationID, req.AddonIDs,
			batch.Start.Format(DateFormat), batch.End.Format(DateFormat),
		)

		if cached, ok := cache.GetJSON[map[string][]provider.TimeSlot](ctx, r.store, key, r.ttl); ok {
			r.metrics.ObserveCacheHit(key.Namespace())
			mergeSlots(result.SlotsByDate, cached, winStart, winEnd)
			continue
		}
		r.metrics.ObserveCacheMiss(key.Namespace())

		if networkCalls > 0 {
			r.sleep(r.jitter())
		}
		firstAttempt := networkCalls == 0
		networkCalls++

		started := time.Now()
		slots, err := r.source.GetAvailability(ctx, provider.AvailabilityQuery{
			StaffID:     req.StaffID,
			ServiceID:   req.ServiceID,
			VariationID: req.VariationID,
			AddonIDs:    req.AddonIDs,
			Start:       batch.Start.Format(DateFormat),
			End:         batch.End.Format(DateFormat),
		})
		r.metrics.ObserveProviderLatency("availability", time.Since(started).Seconds())
		if err != nil {
			r.metrics.ObserveProviderRequest("availability", "error")
			span.RecordError(err)
			r.logger.Warn("availability batch failed",
				"staff_id", req.StaffID,
				"service_id", req.ServiceID,
				"batch_start", batch.Start.Format(DateFormat),
				"error", err,
			)
			if firstAttempt {
				firstErr = fmt.Errorf("availability: batch %s..%s: %w",
					batch.Start.Format(DateFormat), batch.End.Format(DateFormat), err)
			}
			continue
		}
		r.metrics.ObserveProviderRequest("availability", "ok")

		normalized := normalizeBatch(batch, slots)
		cache.SetJSON(ctx, r.store, key, normalized)
		mergeSlots(result.SlotsByDate, normalized, winStart, winEnd)
	}

	result.NetworkCalls = networkCalls
	return result, firstErr
}

// normalizeBatch fills in every date of the batch so fully-booked days
// (present, empty) stay distinguishable from never-checked ones (absent).
func normalizeBatch(batch DateWindow, slots map[string][]provider.TimeSlot) map[string][]provider.TimeSlot {
	out := make(map[string][]provider.TimeSlot, batch.End.Sub(batch.Start)/(24*time.Hour)+1)
	for _, date := range batch.Dates() {
		if daySlots, ok := slots[date]; ok && daySlots != nil {
			out[date] = daySlots
		} else {
			out[date] = []provider.TimeSlot{}
		}
	}
	return out
}

// mergeSlots copies dates from a batch into the result, dropping dates
// outside [from, to]. Cached batches stay full-width for key alignment,
// but the tail of the last batch must never surface beyond the clipped
// window: a date past the horizon would otherwise read as fully booked.
func mergeSlots(dst, src map[string][]provider.TimeSlot, from, to string) {
	for date, slots := range src {
		if date < from || date > to {
			continue
		}
		dst[date] = slots
	}
}

func jitterFn(min, max time.Duration) func() time.Duration {
	if max <= min {
		return func() time.Duration { return min }
	}
	spread := max - min
	return func() time.Duration {
		return min + time.Duration(rand.Int63n(int64(spread)))
	}
}
