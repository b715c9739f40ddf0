package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/glowbook/bookingflow/internal/availability"
	"github.com/glowbook/bookingflow/internal/preload"
	"github.com/glowbook/bookingflow/internal/provider"
	"github.com/glowbook/bookingflow/pkg/logging"
)

// DaySource is the provider slice serving the single-day probe.
type DaySource interface {
	GetDayAvailability(ctx context.Context, q provider.AvailabilityQuery) (*provider.DayAvailability, error)
}

// AvailabilityHandler serves slot lookups for a staff/service combination.
// When a preloader is attached, each window lookup also warms the window
// that follows the requested one, anticipating forward calendar navigation.
type AvailabilityHandler struct {
	resolver  *availability.Resolver
	days      DaySource
	preloader *preload.Preloader
	logger    *logging.Logger
}

// NewAvailabilityHandler creates a new availability handler. The day
// source and preloader may be nil.
func NewAvailabilityHandler(res *availability.Resolver, days DaySource, pre *preload.Preloader, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{resolver: res, days: days, preloader: pre, logger: logger}
}

type availabilityResponse struct {
	SlotsByDate map[string][]provider.TimeSlot `json:"slotsByDate"`
	FullyBooked []string                       `json:"fullyBooked"`
	// Warning carries a partial-failure message when some batches failed
	// but cached or sibling batches still produced usable dates.
	Warning string `json:"warning,omitempty"`
}

// GetAvailability handles GET /api/availability with staffId, serviceId,
// variationId, optional addonIds (comma-separated), start and end
// (YYYY-MM-DD) query parameters.
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	staffID := q.Get("staffId")
	serviceID := q.Get("serviceId")
	variationID := q.Get("variationId")
	if staffID == "" || serviceID == "" || variationID == "" {
		http.Error(w, "missing staffId, serviceId or variationId", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(availability.DateFormat, q.Get("start"))
	if err != nil {
		http.Error(w, "invalid start date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(availability.DateFormat, q.Get("end"))
	if err != nil {
		http.Error(w, "invalid end date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var addonIDs []string
	if raw := q.Get("addonIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				addonIDs = append(addonIDs, id)
			}
		}
	}

	result, err := h.resolver.Resolve(r.Context(), availability.ResolveRequest{
		StaffID:     staffID,
		ServiceID:   serviceID,
		VariationID: variationID,
		AddonIDs:    addonIDs,
		Window:      availability.NewDateWindow(start, end),
	})
	if err != nil && len(result.SlotsByDate) == 0 {
		h.logger.Error("availability lookup failed", "staff_id", staffID, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	resp := availabilityResponse{
		SlotsByDate: result.SlotsByDate,
		FullyBooked: fullyBookedDates(result),
	}
	if err != nil {
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)

	if h.preloader != nil {
		span := int(end.Sub(start).Hours()/24) + 1
		nextWin := availability.NewDateWindow(end.AddDate(0, 0, 1), end.AddDate(0, 0, span))
		h.preloader.Go(func() preload.Result {
			return h.preloader.WindowAvailability(context.Background(), staffID, serviceID, variationID, addonIDs, nextWin)
		})
	}
}

// GetDay handles GET /api/availability/day: a single-day probe for the
// fully-booked dates the window lookup reports. StaffAvailable false means
// the staff member does not work that day; only then is IsFullyBooked not
// meaningful.
func (h *AvailabilityHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	if h.days == nil {
		http.Error(w, "day probe not available", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	staffID := q.Get("staffId")
	serviceID := q.Get("serviceId")
	variationID := q.Get("variationId")
	if staffID == "" || serviceID == "" || variationID == "" {
		http.Error(w, "missing staffId, serviceId or variationId", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(availability.DateFormat, q.Get("date"))
	if err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var addonIDs []string
	if raw := q.Get("addonIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				addonIDs = append(addonIDs, id)
			}
		}
	}

	day, err := h.days.GetDayAvailability(r.Context(), provider.AvailabilityQuery{
		StaffID:     staffID,
		ServiceID:   serviceID,
		VariationID: variationID,
		AddonIDs:    addonIDs,
		Start:       date.Format(availability.DateFormat),
	})
	if err != nil {
		h.logger.Error("day probe failed", "staff_id", staffID, "date", q.Get("date"), "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func fullyBookedDates(result *availability.Result) []string {
	dates := make([]string, 0)
	for date := range result.SlotsByDate {
		if result.FullyBooked(date) {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}
