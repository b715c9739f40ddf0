package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glowbook/bookingflow/internal/availability"
	"github.com/glowbook/bookingflow/internal/bookingflow"
	"github.com/glowbook/bookingflow/internal/cache"
	"github.com/glowbook/bookingflow/internal/catalog"
	"github.com/glowbook/bookingflow/internal/http/handlers"
	"github.com/glowbook/bookingflow/internal/provider"
	"github.com/glowbook/bookingflow/pkg/logging"
)

type stubBackend struct{}

func (stubBackend) GetCategories(context.Context) ([]provider.Category, error) {
	return []provider.Category{{ID: "cat_1", Name: "Massage"}}, nil
}

func (stubBackend) GetServices(context.Context, string) ([]provider.Service, error) {
	return nil, nil
}

func (stubBackend) GetStaff(context.Context, string) ([]provider.Staff, error) {
	return nil, nil
}

func (stubBackend) GetAddons(context.Context, string) ([]provider.Addon, error) {
	return nil, nil
}

func (stubBackend) GetAvailability(context.Context, provider.AvailabilityQuery) (map[string][]provider.TimeSlot, error) {
	return nil, nil
}

func (stubBackend) GetDayAvailability(context.Context, provider.AvailabilityQuery) (*provider.DayAvailability, error) {
	return &provider.DayAvailability{StaffAvailable: true}, nil
}

func (stubBackend) CreateAppointment(context.Context, provider.AppointmentRequest) (string, error) {
	return "appt_1", nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Default()
	backend := stubBackend{}
	store := cache.NewMemoryStore()
	cat := catalog.NewCatalog(backend, store, logger)
	resolver := availability.NewResolver(backend, store, logger)
	sessions := handlers.NewSessionStore()
	newFlow := func() *bookingflow.Flow {
		return bookingflow.NewFlow(cat, backend, nil, logger)
	}

	reg := prometheus.NewRegistry()
	cfg := &Config{
		Logger:         logger,
		CatalogHandler: handlers.NewCatalogHandler(cat, logger),
		Availability:   handlers.NewAvailabilityHandler(resolver, backend, nil, logger),
		Appointments:   handlers.NewAppointmentHandler(backend, logger),
		Sessions:       handlers.NewSessionHandler(sessions, newFlow, logger),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	return New(cfg)
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestCategoriesRoute(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestSessionRoutesWired(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
