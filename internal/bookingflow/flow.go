// Package bookingflow drives the multi-step booking sequence: category,
// service, variation, staff, optional add-ons, date/time, client info,
// consent, summary. Each forward transition warms the cache for the steps
// the user is likely to reach next.
package bookingflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/glowbook/bookingflow/internal/appointment"
	"github.com/glowbook/bookingflow/internal/catalog"
	"github.com/glowbook/bookingflow/internal/preload"
	"github.com/glowbook/bookingflow/internal/provider"
	"github.com/glowbook/bookingflow/pkg/logging"
)

// Booker is the provider slice that creates the final appointment.
type Booker interface {
	CreateAppointment(ctx context.Context, req provider.AppointmentRequest) (string, error)
}

// Selection accumulates the user's choices across steps. Nothing here is
// discarded on a failed submission.
type Selection struct {
	Category  *provider.Category
	Service   *provider.Service
	Variation *provider.Variation
	Staff     *provider.Staff
	Addons    []provider.Addon
	Slot      *provider.TimeSlot
	Client    *provider.ClientInfo
	Consent   []provider.ConsentResponse
	Note      string
}

// Flow is one booking session's state machine. It is safe for concurrent
// use; the step list is recomputed from current facts on every move.
type Flow struct {
	catalog *catalog.Catalog
	booker  Booker
	pre     *preload.Preloader
	logger  *logging.Logger

	preloadServices int
	preloadDays     int

	mu            sync.Mutex
	current       Step
	sel           Selection
	addonsChecked bool
	hasAddons     bool
	appointmentID string
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithPreloadBreadth tunes how many services get staff prewarmed and how
// many days of availability are warmed ahead.
func WithPreloadBreadth(services, days int) FlowOption {
	return func(f *Flow) {
		f.preloadServices = services
		f.preloadDays = days
	}
}

// NewFlow starts a booking session at the category step and warms the
// category list in the background.
func NewFlow(cat *catalog.Catalog, booker Booker, pre *preload.Preloader, logger *logging.Logger, opts ...FlowOption) *Flow {
	if logger == nil {
		logger = logging.Default()
	}
	f := &Flow{
		catalog:         cat,
		booker:          booker,
		pre:             pre,
		logger:          logger,
		preloadServices: 3,
		preloadDays:     2,
		current:         StepCategory,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.pre != nil {
		f.pre.Go(func() preload.Result {
			return f.pre.Categories(context.Background())
		})
	}
	return f
}

// Current returns the step the session is on.
func (f *Flow) Current() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Steps returns the step sequence as currently known.
func (f *Flow) Steps() []Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return stepsFor(f.stepContext())
}

// Selection returns a copy of the collected choices.
func (f *Flow) Selection() Selection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sel
}

// AppointmentID returns the created appointment's ID after a successful
// submission.
func (f *Flow) AppointmentID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appointmentID
}

// SelectCategory records the chosen category and clears any downstream
// choices that depended on the previous one.
func (f *Flow) SelectCategory(ctx context.Context, categoryID string) error {
	categories, err := f.catalog.Categories(ctx)
	if err != nil {
		return fmt.Errorf("bookingflow: load categories: %w", err)
	}
	for i := range categories {
		if categories[i].ID == categoryID {
			f.mu.Lock()
			f.sel = Selection{Category: &categories[i]}
			f.resetAddonCheck()
			f.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("bookingflow: unknown category %s", categoryID)
}

// SelectService records the chosen service. A service with exactly one
// variation synthesizes that variation immediately so the variation step
// never appears.
func (f *Flow) SelectService(ctx context.Context, serviceID string) error {
	f.mu.Lock()
	category := f.sel.Category
	f.mu.Unlock()
	if category == nil {
		return fmt.Errorf("bookingflow: select a category first")
	}

	svc, err := f.catalog.FindService(ctx, category.ID, serviceID)
	if err != nil {
		return fmt.Errorf("bookingflow: %w", err)
	}
	if len(svc.Variations) == 0 {
		return fmt.Errorf("bookingflow: service %s has no bookable variations", serviceID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sel.Service = svc
	f.sel.Variation = nil
	f.sel.Staff = nil
	f.sel.Addons = nil
	f.sel.Slot = nil
	f.resetAddonCheck()
	if len(svc.Variations) == 1 {
		f.sel.Variation = &svc.Variations[0]
	}
	return nil
}

// SelectVariation records the chosen variation of the selected service.
func (f *Flow) SelectVariation(variationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sel.Service == nil {
		return fmt.Errorf("bookingflow: select a service first")
	}
	for i := range f.sel.Service.Variations {
		if f.sel.Service.Variations[i].ID == variationID {
			f.sel.Variation = &f.sel.Service.Variations[i]
			f.sel.Staff = nil
			f.sel.Slot = nil
			return nil
		}
	}
	return fmt.Errorf("bookingflow: unknown variation %s", variationID)
}

// SelectStaff records the chosen staff member.
func (f *Flow) SelectStaff(ctx context.Context, staffID string) error {
	f.mu.Lock()
	svc, variation := f.sel.Service, f.sel.Variation
	f.mu.Unlock()
	if svc == nil || variation == nil {
		return fmt.Errorf("bookingflow: select a service and variation first")
	}

	staff, err := f.catalog.Staff(ctx, svc.ID, variation.ID)
	if err != nil {
		return fmt.Errorf("bookingflow: load staff: %w", err)
	}
	for i := range staff {
		if staff[i].ID == staffID {
			f.mu.Lock()
			f.sel.Staff = &staff[i]
			f.sel.Slot = nil
			f.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("bookingflow: unknown staff member %s", staffID)
}

// SelectAddons records the chosen add-ons by ID. An empty list is valid.
func (f *Flow) SelectAddons(ctx context.Context, addonIDs []string) error {
	f.mu.Lock()
	svc := f.sel.Service
	f.mu.Unlock()
	if svc == nil {
		return fmt.Errorf("bookingflow: select a service first")
	}

	available, err := f.catalog.Addons(ctx, svc.ID)
	if err != nil {
		return fmt.Errorf("bookingflow: load addons: %w", err)
	}
	byID := make(map[string]provider.Addon, len(available))
	for _, a := range available {
		byID[a.ID] = a
	}

	chosen := make([]provider.Addon, 0, len(addonIDs))
	for _, id := range addonIDs {
		a, okAddon := byID[id]
		if !okAddon {
			return fmt.Errorf("bookingflow: addon %s not applicable to service %s", id, svc.ID)
		}
		chosen = append(chosen, a)
	}

	f.mu.Lock()
	f.sel.Addons = chosen
	f.sel.Slot = nil
	f.mu.Unlock()
	return nil
}

// SelectSlot records the chosen start time.
func (f *Flow) SelectSlot(slot provider.TimeSlot) error {
	if !slot.Available {
		return fmt.Errorf("bookingflow: slot at %s is not available", slot.StartTime)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sel.Slot = &slot
	return nil
}

// SetClient records the client's contact details.
func (f *Flow) SetClient(info provider.ClientInfo) error {
	if info.FirstName == "" || info.LastName == "" {
		return fmt.Errorf("bookingflow: client first and last name are required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sel.Client = &info
	return nil
}

// SetConsent records the consent-form answers.
func (f *Flow) SetConsent(responses []provider.ConsentResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sel.Consent = responses
}

// SetNote records a free-form note for the appointment.
func (f *Flow) SetNote(note string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sel.Note = note
}

// Next advances to the following step once the current one is complete.
// Completing staff selection triggers the one-time add-ons check that
// decides whether the add-ons step appears.
func (f *Flow) Next(ctx context.Context) (Step, error) {
	f.mu.Lock()
	if err := f.requireComplete(f.current); err != nil {
		f.mu.Unlock()
		return f.current, err
	}
	current := f.current
	f.mu.Unlock()

	if current == StepStaff {
		f.checkAddons(ctx)
	}

	f.mu.Lock()
	next, moved := nextStep(f.current, f.stepContext())
	if !moved {
		f.mu.Unlock()
		return f.current, fmt.Errorf("bookingflow: no step after %s", f.current)
	}
	f.current = next
	f.mu.Unlock()

	f.onEnter(next)
	return next, nil
}

// Back returns to the previous step in the recomputed sequence, so a
// skipped add-ons step is also skipped on the way back.
func (f *Flow) Back() (Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == StepConfirmation {
		return f.current, fmt.Errorf("bookingflow: booking already confirmed")
	}
	prev, moved := prevStep(f.current, f.stepContext())
	if !moved {
		return f.current, fmt.Errorf("bookingflow: already at the first step")
	}
	f.current = prev
	return prev, nil
}

// Submit assembles the appointment and hands it to the provider. Failure
// keeps the session on summary with every choice intact for retry.
func (f *Flow) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.current != StepSummary {
		f.mu.Unlock()
		return "", fmt.Errorf("bookingflow: submit is only valid on the summary step")
	}
	sel := f.sel
	f.mu.Unlock()

	if sel.Slot == nil || sel.Client == nil || sel.Staff == nil || sel.Variation == nil || sel.Service == nil {
		return "", fmt.Errorf("bookingflow: booking selection incomplete")
	}

	req, err := appointment.Assemble(appointment.Input{
		Service:   *sel.Service,
		Variation: *sel.Variation,
		Addons:    sel.Addons,
		StaffID:   sel.Staff.ID,
		StartAt:   sel.Slot.StartTime,
		Client:    *sel.Client,
		Consent:   sel.Consent,
		Note:      sel.Note,
	})
	if err != nil {
		return "", err
	}

	id, err := f.booker.CreateAppointment(ctx, *req)
	if err != nil {
		f.logger.Warn("appointment creation failed", "staff_id", sel.Staff.ID, "error", err)
		return "", fmt.Errorf("bookingflow: create appointment: %w", err)
	}

	f.mu.Lock()
	f.appointmentID = id
	f.current = StepConfirmation
	f.mu.Unlock()
	f.logger.Info("booking confirmed", "appointment_id", id)
	return id, nil
}

// checkAddons performs the one-time add-ons lookup for the chosen
// service. A lookup failure reads as "no add-ons": the step is skipped
// rather than blocking the booking.
func (f *Flow) checkAddons(ctx context.Context) {
	f.mu.Lock()
	if f.addonsChecked || f.sel.Service == nil {
		f.mu.Unlock()
		return
	}
	serviceID := f.sel.Service.ID
	f.mu.Unlock()

	addons, err := f.catalog.Addons(ctx, serviceID)
	has := err == nil && len(addons) > 0
	if err != nil {
		f.logger.Warn("addon check failed, skipping addon step", "service_id", serviceID, "error", err)
	}

	f.mu.Lock()
	f.addonsChecked = true
	f.hasAddons = has
	f.mu.Unlock()
}

// onEnter fires the speculative warmers for the step just entered.
func (f *Flow) onEnter(step Step) {
	if f.pre == nil {
		return
	}
	f.mu.Lock()
	sel := f.sel
	services, days := f.preloadServices, f.preloadDays
	f.mu.Unlock()

	switch step {
	case StepService:
		if sel.Category == nil {
			return
		}
		categoryID := sel.Category.ID
		f.pre.Go(func() preload.Result {
			ctx := context.Background()
			if r := f.pre.ServicesForCategory(ctx, categoryID); r.Outcome == preload.OutcomeFailed {
				return r
			}
			listed, err := f.catalog.Services(ctx, categoryID)
			if err != nil {
				return preload.Result{Outcome: preload.OutcomeFailed, Err: err}
			}
			for i, svc := range listed {
				if i >= services {
					break
				}
				if len(svc.Variations) > 0 {
					f.pre.StaffForVariation(ctx, svc.ID, svc.Variations[0].ID)
				}
			}
			return preload.Result{Outcome: preload.OutcomeOK}
		})
	case StepStaff:
		if sel.Service == nil {
			return
		}
		serviceID := sel.Service.ID
		f.pre.Go(func() preload.Result {
			return f.pre.AddonsForService(context.Background(), serviceID)
		})
	case StepAddons, StepDateTime:
		if sel.Staff == nil || sel.Service == nil || sel.Variation == nil {
			return
		}
		staffID, serviceID, variationID := sel.Staff.ID, sel.Service.ID, sel.Variation.ID
		addonIDs := make([]string, 0, len(sel.Addons))
		for _, a := range sel.Addons {
			addonIDs = append(addonIDs, a.ID)
		}
		f.pre.Go(func() preload.Result {
			return f.pre.UpcomingAvailability(context.Background(), staffID, serviceID, variationID, addonIDs, days)
		})
	}
}

// requireComplete validates the selection the current step collects.
func (f *Flow) requireComplete(step Step) error {
	switch step {
	case StepCategory:
		if f.sel.Category == nil {
			return fmt.Errorf("bookingflow: select a category before continuing")
		}
	case StepService:
		if f.sel.Service == nil {
			return fmt.Errorf("bookingflow: select a service before continuing")
		}
	case StepVariation:
		if f.sel.Variation == nil {
			return fmt.Errorf("bookingflow: select a variation before continuing")
		}
	case StepStaff:
		if f.sel.Staff == nil {
			return fmt.Errorf("bookingflow: select a staff member before continuing")
		}
	case StepDateTime:
		if f.sel.Slot == nil {
			return fmt.Errorf("bookingflow: select a time before continuing")
		}
	case StepClient:
		if f.sel.Client == nil {
			return fmt.Errorf("bookingflow: enter contact details before continuing")
		}
	}
	return nil
}

func (f *Flow) stepContext() stepContext {
	return stepContext{
		singleVariation: f.sel.Service != nil && len(f.sel.Service.Variations) == 1,
		hasAddons:       f.hasAddons,
	}
}

func (f *Flow) resetAddonCheck() {
	f.addonsChecked = false
	f.hasAddons = false
}
