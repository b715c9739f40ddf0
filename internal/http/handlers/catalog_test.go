package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glowbook/bookingflow/internal/cache"
	"github.com/glowbook/bookingflow/internal/catalog"
	"github.com/glowbook/bookingflow/internal/provider"
)

// fakeBackend implements catalog.Provider and bookingflow.Booker for
// handler tests.
type fakeBackend struct {
	mu         sync.Mutex
	variations []provider.Variation
	addons     []provider.Addon
	failCreate bool
	created    int
	catalogErr error
}

func (f *fakeBackend) GetCategories(context.Context) ([]provider.Category, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return []provider.Category{{ID: "cat_1", Name: "Massage"}}, nil
}

func (f *fakeBackend) GetServices(_ context.Context, categoryID string) ([]provider.Service, error) {
	return []provider.Service{{
		ID:         "svc_1",
		CategoryID: categoryID,
		Name:       "Deep Tissue",
		Variations: f.variations,
	}}, nil
}

func (f *fakeBackend) GetStaff(context.Context, string) ([]provider.Staff, error) {
	return []provider.Staff{{ID: "st_1", DisplayName: "Avery"}}, nil
}

func (f *fakeBackend) GetAddons(context.Context, string) ([]provider.Addon, error) {
	return f.addons, nil
}

func (f *fakeBackend) CreateAppointment(context.Context, provider.AppointmentRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return "", errors.New("provider rejected booking")
	}
	f.created++
	return "appt_1", nil
}

func testVariations() []provider.Variation {
	return []provider.Variation{
		{ID: "var_1", Version: 1, Name: "60 min", DurationMs: 3600000, PriceCents: 8000, Currency: "USD"},
		{ID: "var_2", Version: 1, Name: "90 min", DurationMs: 5400000, PriceCents: 11000, Currency: "USD"},
	}
}

func newCatalogHandler(backend *fakeBackend) *CatalogHandler {
	cat := catalog.NewCatalog(backend, cache.NewMemoryStore(), nil)
	return NewCatalogHandler(cat, nil)
}

func TestListCategories(t *testing.T) {
	h := newCatalogHandler(&fakeBackend{variations: testVariations()})
	rec := httptest.NewRecorder()
	h.ListCategories(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var body struct {
		Categories []provider.Category `json:"categories"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Categories) != 1 || body.Categories[0].ID != "cat_1" {
		t.Fatalf("unexpected categories: %+v", body.Categories)
	}
}

func TestListCategoriesUpstreamError(t *testing.T) {
	h := newCatalogHandler(&fakeBackend{catalogErr: errors.New("upstream down")})
	rec := httptest.NewRecorder()
	h.ListCategories(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, rec.Code)
	}
}

func TestListServicesRequiresCategory(t *testing.T) {
	h := newCatalogHandler(&fakeBackend{variations: testVariations()})
	rec := httptest.NewRecorder()
	h.ListServices(rec, httptest.NewRequest(http.MethodGet, "/api/services", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestListStaff(t *testing.T) {
	h := newCatalogHandler(&fakeBackend{variations: testVariations()})
	rec := httptest.NewRecorder()
	h.ListStaff(rec, httptest.NewRequest(http.MethodGet, "/api/staff?serviceId=svc_1&variationId=var_1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var body struct {
		Staff []provider.Staff `json:"staff"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Staff) != 1 || body.Staff[0].ID != "st_1" {
		t.Fatalf("unexpected staff: %+v", body.Staff)
	}
}

func TestListAddonsEmptyListIsOK(t *testing.T) {
	h := newCatalogHandler(&fakeBackend{variations: testVariations(), addons: []provider.Addon{}})
	rec := httptest.NewRecorder()
	h.ListAddons(rec, httptest.NewRequest(http.MethodGet, "/api/addons?serviceId=svc_1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var body struct {
		Addons []provider.Addon `json:"addons"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Addons == nil || len(body.Addons) != 0 {
		t.Fatalf("expected empty addon list, got %+v", body.Addons)
	}
}
