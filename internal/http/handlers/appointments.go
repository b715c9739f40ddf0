package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/glowbook/bookingflow/internal/appointment"
	"github.com/glowbook/bookingflow/internal/provider"
	"github.com/glowbook/bookingflow/pkg/logging"
)

// Booker is the provider slice that creates appointments.
type Booker interface {
	CreateAppointment(ctx context.Context, req provider.AppointmentRequest) (string, error)
}

// AppointmentHandler serves direct appointment creation for clients that
// manage their own selection state instead of a server-side session.
type AppointmentHandler struct {
	booker Booker
	logger *logging.Logger
}

// NewAppointmentHandler creates a new appointment handler.
func NewAppointmentHandler(booker Booker, logger *logging.Logger) *AppointmentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentHandler{booker: booker, logger: logger}
}

type createAppointmentRequest struct {
	Service        provider.Service           `json:"service"`
	Variation      provider.Variation         `json:"variation"`
	Addons         []provider.Addon           `json:"addons,omitempty"`
	StaffID        string                     `json:"staffId"`
	StartAt        time.Time                  `json:"startAt"`
	Client         provider.ClientInfo        `json:"client"`
	Consent        []provider.ConsentResponse `json:"consent,omitempty"`
	Note           string                     `json:"note,omitempty"`
	IdempotencyKey string                     `json:"idempotencyKey,omitempty"`
}

// Create handles POST /api/appointments.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	assembled, err := appointment.Assemble(appointment.Input{
		Service:        req.Service,
		Variation:      req.Variation,
		Addons:         req.Addons,
		StaffID:        req.StaffID,
		StartAt:        req.StartAt,
		Client:         req.Client,
		Consent:        req.Consent,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		var invErr *appointment.InvariantError
		if errors.As(err, &invErr) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	id, err := h.booker.CreateAppointment(r.Context(), *assembled)
	if err != nil {
		h.logger.Error("appointment creation failed", "staff_id", req.StaffID, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	h.logger.Info("appointment created", "appointment_id", id)
	writeJSON(w, http.StatusCreated, map[string]string{"appointmentId": id})
}
