package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glowbook/bookingflow/internal/availability"
	"github.com/glowbook/bookingflow/internal/cache"
	"github.com/glowbook/bookingflow/internal/preload"
	"github.com/glowbook/bookingflow/internal/provider"
)

type fakeSlotSource struct {
	mu     sync.Mutex
	calls  int
	failOn map[string]bool
}

func (f *fakeSlotSource) GetAvailability(_ context.Context, q provider.AvailabilityQuery) (map[string][]provider.TimeSlot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failOn[q.Start] {
		return nil, errors.New("upstream throttled")
	}
	day, _ := time.Parse(availability.DateFormat, q.Start)
	return map[string][]provider.TimeSlot{
		q.Start: {{StartTime: day.Add(10 * time.Hour), EndTime: day.Add(11 * time.Hour), Available: true}},
	}, nil
}

func (f *fakeSlotSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newAvailabilityHandler(source *fakeSlotSource) *AvailabilityHandler {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := availability.NewResolver(source, cache.NewMemoryStore(), nil,
		availability.WithClock(func() time.Time { return now }),
		availability.WithSleep(func(time.Duration) {}),
	)
	return NewAvailabilityHandler(res, nil, nil, nil)
}

func TestGetAvailability(t *testing.T) {
	h := newAvailabilityHandler(&fakeSlotSource{})
	rec := httptest.NewRecorder()
	target := "/api/availability?staffId=st_1&serviceId=svc_1&variationId=var_1&start=2026-03-02&end=2026-03-15"
	h.GetAvailability(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var body availabilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.SlotsByDate["2026-03-02"]) != 1 {
		t.Fatalf("expected a slot on 2026-03-02, got %+v", body.SlotsByDate["2026-03-02"])
	}
	// Dates the batch covered but the provider returned nothing for are
	// present and fully booked.
	fullyBooked := make(map[string]bool, len(body.FullyBooked))
	for _, d := range body.FullyBooked {
		fullyBooked[d] = true
	}
	if !fullyBooked["2026-03-03"] {
		t.Fatalf("expected 2026-03-03 fully booked, got %v", body.FullyBooked)
	}
	if fullyBooked["2026-03-02"] {
		t.Fatalf("2026-03-02 has an open slot, must not be fully booked")
	}
	if body.Warning != "" {
		t.Fatalf("unexpected warning: %q", body.Warning)
	}
}

func TestGetAvailabilityPartialFailureWarns(t *testing.T) {
	h := newAvailabilityHandler(&fakeSlotSource{failOn: map[string]bool{"2026-03-02": true}})
	rec := httptest.NewRecorder()
	target := "/api/availability?staffId=st_1&serviceId=svc_1&variationId=var_1&start=2026-03-02&end=2026-03-15"
	h.GetAvailability(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var body availabilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Warning == "" {
		t.Fatal("expected a warning for the failed batch")
	}
	// The failed batch's dates stay unchecked; the sibling batch still
	// produced dates.
	if _, ok := body.SlotsByDate["2026-03-02"]; ok {
		t.Fatal("failed batch dates must stay unchecked")
	}
	if len(body.SlotsByDate["2026-03-09"]) != 1 {
		t.Fatalf("expected sibling batch to resolve, got %+v", body.SlotsByDate)
	}
}

func TestGetAvailabilityTotalFailure(t *testing.T) {
	h := newAvailabilityHandler(&fakeSlotSource{failOn: map[string]bool{
		"2026-03-02": true,
		"2026-03-09": true,
	}})
	rec := httptest.NewRecorder()
	target := "/api/availability?staffId=st_1&serviceId=svc_1&variationId=var_1&start=2026-03-02&end=2026-03-15"
	h.GetAvailability(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, rec.Code)
	}
}

func TestGetAvailabilityWarmsNextWindow(t *testing.T) {
	source := &fakeSlotSource{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := cache.NewMemoryStore()
	res := availability.NewResolver(source, store, nil,
		availability.WithClock(func() time.Time { return now }),
		availability.WithSleep(func(time.Duration) {}),
	)
	pre := preload.NewPreloader(nil, res, store, nil)
	h := NewAvailabilityHandler(res, nil, pre, nil)

	rec := httptest.NewRecorder()
	target := "/api/availability?staffId=st_1&serviceId=svc_1&variationId=var_1&start=2026-03-02&end=2026-03-08"
	h.GetAvailability(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	// One call for the request itself, one for the warmed 03-09..03-15
	// window; the warm runs on its own goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for source.Calls() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected follow-up window warm, got %d calls", source.Calls())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The warmed window now serves a direct lookup without new calls. Use
	// a preloader-free handler so this lookup does not warm further.
	plain := NewAvailabilityHandler(res, nil, nil, nil)
	rec = httptest.NewRecorder()
	target = "/api/availability?staffId=st_1&serviceId=svc_1&variationId=var_1&start=2026-03-09&end=2026-03-15"
	plain.GetAvailability(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := source.Calls(); got != 2 {
		t.Fatalf("expected warmed window to be served from cache, got %d calls", got)
	}
}

type fakeDaySource struct {
	day   provider.DayAvailability
	err   error
	lastQ provider.AvailabilityQuery
}

func (f *fakeDaySource) GetDayAvailability(_ context.Context, q provider.AvailabilityQuery) (*provider.DayAvailability, error) {
	f.lastQ = q
	if f.err != nil {
		return nil, f.err
	}
	return &f.day, nil
}

func TestGetDayDistinguishesOffDayFromFullyBooked(t *testing.T) {
	source := &fakeSlotSource{}
	days := &fakeDaySource{day: provider.DayAvailability{StaffAvailable: false}}
	h := newAvailabilityHandler(source)
	h.days = days

	rec := httptest.NewRecorder()
	target := "/api/availability/day?staffId=st_1&serviceId=svc_1&variationId=var_1&date=2026-03-05"
	h.GetDay(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var body provider.DayAvailability
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.StaffAvailable {
		t.Fatal("expected staff unavailable that day")
	}
	if body.IsFullyBooked {
		t.Fatal("an off day must not read fully booked")
	}
	if days.lastQ.Start != "2026-03-05" || days.lastQ.StaffID != "st_1" {
		t.Fatalf("unexpected probe query: %+v", days.lastQ)
	}
}

func TestGetDayValidation(t *testing.T) {
	h := newAvailabilityHandler(&fakeSlotSource{})
	h.days = &fakeDaySource{}

	rec := httptest.NewRecorder()
	h.GetDay(rec, httptest.NewRequest(http.MethodGet, "/api/availability/day?staffId=st_1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for missing ids, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = httptest.NewRecorder()
	target := "/api/availability/day?staffId=st_1&serviceId=svc_1&variationId=var_1&date=tomorrow"
	h.GetDay(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for bad date, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestGetAvailabilityValidation(t *testing.T) {
	h := newAvailabilityHandler(&fakeSlotSource{})

	rec := httptest.NewRecorder()
	h.GetAvailability(rec, httptest.NewRequest(http.MethodGet, "/api/availability?staffId=st_1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for missing ids, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = httptest.NewRecorder()
	target := "/api/availability?staffId=st_1&serviceId=svc_1&variationId=var_1&start=03/02/2026&end=2026-03-15"
	h.GetAvailability(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for bad date, got %d", http.StatusBadRequest, rec.Code)
	}
}
