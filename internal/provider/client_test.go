package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetServices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("X-Location-Id"); got != "loc_1" {
			t.Fatalf("unexpected location header %q", got)
		}
		if got := r.URL.Query().Get("categoryId"); got != "cat_1" {
			t.Fatalf("unexpected categoryId %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"services": []map[string]any{{
				"id":         "svc_1",
				"categoryId": "cat_1",
				"name":       "Deep Tissue Massage",
				"variations": []map[string]any{{
					"id": "var_1", "version": 3, "name": "60 min",
					"durationMs": 3600000, "priceCents": 8000, "currency": "USD",
				}},
			}},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key", "loc_1", nil)
	services, err := c.GetServices(context.Background(), "cat_1")
	if err != nil {
		t.Fatalf("GetServices error: %v", err)
	}
	if len(services) != 1 || services[0].ID != "svc_1" {
		t.Fatalf("unexpected services: %+v", services)
	}
	if len(services[0].Variations) != 1 || services[0].Variations[0].PriceCents != 8000 {
		t.Fatalf("unexpected variations: %+v", services[0].Variations)
	}
}

func TestGetAvailabilityQueryShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start") != "2026-03-02" || q.Get("end") != "2026-03-08" {
			t.Fatalf("unexpected window %s..%s", q.Get("start"), q.Get("end"))
		}
		if q.Get("staffId") != "st_1" || q.Get("serviceId") != "svc_1" || q.Get("variationId") != "var_1" {
			t.Fatalf("unexpected identifiers: %v", q)
		}
		if q.Get("addons") != "add_1,add_2" {
			t.Fatalf("unexpected addons csv %q", q.Get("addons"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"slotsByDate": map[string]any{
				"2026-03-02": []map[string]any{{
					"startTime": "2026-03-02T10:00:00Z",
					"endTime":   "2026-03-02T11:00:00Z",
					"available": true,
				}},
				"2026-03-03": []map[string]any{},
			},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key", "loc_1", nil)
	slots, err := c.GetAvailability(context.Background(), AvailabilityQuery{
		StaffID:     "st_1",
		ServiceID:   "svc_1",
		VariationID: "var_1",
		AddonIDs:    []string{"add_1", "add_2"},
		Start:       "2026-03-02",
		End:         "2026-03-08",
	})
	if err != nil {
		t.Fatalf("GetAvailability error: %v", err)
	}
	if len(slots["2026-03-02"]) != 1 {
		t.Fatalf("unexpected slots: %+v", slots)
	}
	want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if !slots["2026-03-02"][0].StartTime.Equal(want) {
		t.Fatalf("unexpected start time %v", slots["2026-03-02"][0].StartTime)
	}
	if got, ok := slots["2026-03-03"]; !ok || len(got) != 0 {
		t.Fatalf("expected empty slice for fully booked date, got %+v ok=%v", got, ok)
	}
}

func TestCreateAppointment(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/appointments" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req AppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if req.IdempotencyKey == "" {
			t.Fatal("expected idempotency key")
		}
		if len(req.Segments) != 2 || req.Segments[0].ServiceVariationID != "var_1" {
			t.Fatalf("unexpected segments: %+v", req.Segments)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "appt_1"})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key", "loc_1", nil)
	id, err := c.CreateAppointment(context.Background(), AppointmentRequest{
		IdempotencyKey: "idem-1",
		StaffID:        "st_1",
		StartAt:        time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Segments: []AppointmentSegment{
			{ServiceVariationID: "var_1", ServiceVariationVersion: 3, StaffID: "st_1", DurationMinutes: 60},
			{ServiceVariationID: "addvar_1", ServiceVariationVersion: 1, StaffID: "st_1", DurationMinutes: 15},
		},
	})
	if err != nil {
		t.Fatalf("CreateAppointment error: %v", err)
	}
	if id != "appt_1" {
		t.Fatalf("unexpected appointment id %q", id)
	}
}

func TestGetDayAvailability(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/availability/day" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("date") != "2026-03-05" || q.Get("staffId") != "st_1" || q.Get("serviceId") != "svc_1" {
			t.Fatalf("unexpected query: %v", q)
		}
		if q.Get("variationId") != "var_1" || q.Get("addons") != "add_1" {
			t.Fatalf("unexpected variation/addons: %v", q)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"slots":          []any{},
			"isFullyBooked":  false,
			"staffAvailable": false,
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key", "loc_1", nil)
	day, err := c.GetDayAvailability(context.Background(), AvailabilityQuery{
		StaffID:     "st_1",
		ServiceID:   "svc_1",
		VariationID: "var_1",
		AddonIDs:    []string{"add_1"},
		Start:       "2026-03-05",
	})
	if err != nil {
		t.Fatalf("GetDayAvailability error: %v", err)
	}
	// No slots because the staff member is off that day, not because the
	// day is booked out.
	if day.StaffAvailable || day.IsFullyBooked {
		t.Fatalf("unexpected day probe response: %+v", day)
	}
	if len(day.Slots) != 0 {
		t.Fatalf("unexpected slots: %+v", day.Slots)
	}
}

func TestErrorStatusSurfaced(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key", "loc_1", nil)
	if _, err := c.GetCategories(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestMissingAPIKey(t *testing.T) {
	c := NewClient("http://localhost:0", "", "loc_1", nil)
	if _, err := c.GetCategories(context.Background()); err == nil {
		t.Fatal("expected missing api key error")
	}
}
