package provider

import "time"

// Category is a top-level grouping of bookable services.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Variation is one bookable version of a service with its own duration,
// price and catalog version. Versions are echoed back on appointment
// creation so the provider can reject stale catalog data.
type Variation struct {
	ID         string `json:"id"`
	Version    int64  `json:"version"`
	Name       string `json:"name"`
	DurationMs int64  `json:"durationMs"`
	PriceCents int64  `json:"priceCents"`
	Currency   string `json:"currency"`
}

// Service is a bookable service with one or more variations.
type Service struct {
	ID          string      `json:"id"`
	CategoryID  string      `json:"categoryId"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Variations  []Variation `json:"variations"`
}

// Addon is a supplementary service bookable only alongside a base service.
// A zero DurationMs marks an informational add-on that affects price but
// does not occupy schedule time.
type Addon struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	VariationID string `json:"variationId"`
	Version     int64  `json:"version"`
	DurationMs  int64  `json:"durationMs"`
	PriceCents  int64  `json:"priceCents"`
}

// Staff is a bookable team member.
type Staff struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// TimeSlot is one bookable start time as reported by the provider.
type TimeSlot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Available bool      `json:"available"`
}

// DayAvailability is the single-day probe response. IsFullyBooked is only
// meaningful when StaffAvailable is true: a staff member who does not work
// that day has no slots without being "fully booked".
type DayAvailability struct {
	Slots          []TimeSlot `json:"slots"`
	IsFullyBooked  bool       `json:"isFullyBooked"`
	StaffAvailable bool       `json:"staffAvailable"`
}

// AvailabilityQuery describes one batch-window availability request.
// Start and End are inclusive calendar dates in YYYY-MM-DD form.
type AvailabilityQuery struct {
	StaffID     string
	ServiceID   string
	VariationID string
	AddonIDs    []string
	Start       string
	End         string
}

// ClientInfo is the booking client's contact details.
type ClientInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ConsentResponse is one answered consent-form question.
type ConsentResponse struct {
	QuestionID string `json:"questionId"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// AppointmentSegment is one schedulable unit within an appointment. The
// base service segment always comes first.
type AppointmentSegment struct {
	ServiceVariationID      string `json:"serviceVariationId"`
	ServiceVariationVersion int64  `json:"serviceVariationVersion"`
	StaffID                 string `json:"staffId"`
	DurationMinutes         int    `json:"durationMinutes"`
}

// AppointmentRequest is the assembled multi-segment booking submitted to
// the provider. The provider is the system of record once it accepts one.
type AppointmentRequest struct {
	IdempotencyKey       string               `json:"idempotencyKey"`
	StaffID              string               `json:"staffId"`
	StartAt              time.Time            `json:"startAt"`
	Segments             []AppointmentSegment `json:"segments"`
	TotalDurationMinutes int                  `json:"totalDurationMinutes"`
	TotalPriceCents      int64                `json:"totalPriceCents"`
	Currency             string               `json:"currency"`
	Client               ClientInfo           `json:"client"`
	Consent              []ConsentResponse    `json:"consent,omitempty"`
	Note                 string               `json:"note,omitempty"`
}
