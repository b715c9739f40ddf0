// Package appointment assembles a selected service, variation and add-on
// list into the single multi-segment request submitted to the provider.
// Assembly is pure: all I/O around it belongs to the booking flow.
package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glowbook/bookingflow/internal/provider"
)

// InvariantError reports an assembly precondition violation. It is fatal
// to the current submission attempt but preserves the collected state so
// the user can correct and retry.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "appointment: " + e.Reason
}

// Input carries everything assembly needs.
type Input struct {
	Service   provider.Service
	Variation provider.Variation
	Addons    []provider.Addon
	StaffID   string
	StartAt   time.Time
	Client    provider.ClientInfo
	Consent   []provider.ConsentResponse
	Note      string
	// IdempotencyKey is generated when empty.
	IdempotencyKey string
}

// Assemble builds the appointment request. The base service segment comes
// first; add-ons follow in their given order. Add-ons with zero duration
// contribute price only: the provider rejects zero-length segments, so
// they are never emitted as schedulable ones.
func Assemble(in Input) (*provider.AppointmentRequest, error) {
	if in.Variation.ID == "" {
		return nil, &InvariantError{Reason: "missing service variation"}
	}
	if in.StaffID == "" {
		return nil, &InvariantError{Reason: "missing staff member"}
	}
	baseMinutes := minutes(in.Variation.DurationMs)
	if baseMinutes <= 0 {
		return nil, &InvariantError{Reason: fmt.Sprintf("base variation %s has zero duration", in.Variation.ID)}
	}

	segments := []provider.AppointmentSegment{{
		ServiceVariationID:      in.Variation.ID,
		ServiceVariationVersion: in.Variation.Version,
		StaffID:                 in.StaffID,
		DurationMinutes:         baseMinutes,
	}}

	totalMinutes := baseMinutes
	totalPrice := in.Variation.PriceCents
	for _, addon := range in.Addons {
		totalPrice += addon.PriceCents
		addonMinutes := minutes(addon.DurationMs)
		if addonMinutes == 0 {
			continue
		}
		totalMinutes += addonMinutes
		segments = append(segments, provider.AppointmentSegment{
			ServiceVariationID:      addon.VariationID,
			ServiceVariationVersion: addon.Version,
			StaffID:                 in.StaffID,
			DurationMinutes:         addonMinutes,
		})
	}

	key := in.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	return &provider.AppointmentRequest{
		IdempotencyKey:       key,
		StaffID:              in.StaffID,
		StartAt:              in.StartAt,
		Segments:             segments,
		TotalDurationMinutes: totalMinutes,
		TotalPriceCents:      totalPrice,
		Currency:             in.Variation.Currency,
		Client:               in.Client,
		Consent:              in.Consent,
		Note:                 in.Note,
	}, nil
}

func minutes(durationMs int64) int {
	return int(durationMs / 60000)
}
