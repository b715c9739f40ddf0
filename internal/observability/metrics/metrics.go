package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow's cache
// and provider traffic. All observe methods are nil-safe so callers can
// run without metrics wired.
type BookingMetrics struct {
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	preloads         *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingflow",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by key namespace",
		}, []string{"namespace"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingflow",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by key namespace",
		}, []string{"namespace"}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingflow",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Upstream scheduling provider calls",
		}, []string{"op", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookingflow",
			Subsystem: "provider",
			Name:      "request_seconds",
			Help:      "Latency of upstream provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		preloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingflow",
			Subsystem: "preload",
			Name:      "total",
			Help:      "Preload warmer outcomes",
		}, []string{"warmer", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.providerRequests, m.providerLatency, m.preloads)
	return m
}

func (m *BookingMetrics) ObserveCacheHit(namespace string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(namespace).Inc()
}

func (m *BookingMetrics) ObserveCacheMiss(namespace string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(namespace).Inc()
}

func (m *BookingMetrics) ObserveProviderRequest(op, status string) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(op, status).Inc()
}

func (m *BookingMetrics) ObserveProviderLatency(op string, seconds float64) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(op).Observe(seconds)
}

func (m *BookingMetrics) ObservePreload(warmer, outcome string) {
	if m == nil {
		return
	}
	m.preloads.WithLabelValues(warmer, outcome).Inc()
}
