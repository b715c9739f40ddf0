package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/glowbook/bookingflow/internal/bookingflow"
	"github.com/glowbook/bookingflow/internal/provider"
	"github.com/glowbook/bookingflow/pkg/logging"
)

// SessionStore keeps live booking sessions in memory. Sessions are
// transient by design: an abandoned browser tab simply ages out with the
// process, while the cache underneath persists across sessions.
type SessionStore struct {
	mu    sync.RWMutex
	flows map[string]*bookingflow.Flow
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{flows: make(map[string]*bookingflow.Flow)}
}

// Create registers a flow under a fresh session ID.
func (s *SessionStore) Create(f *bookingflow.Flow) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.flows[id] = f
	s.mu.Unlock()
	return id
}

// Get returns the flow for a session ID.
func (s *SessionStore) Get(id string) (*bookingflow.Flow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	return f, ok
}

// SessionHandler serves the stateful booking session endpoints.
type SessionHandler struct {
	sessions *SessionStore
	newFlow  func() *bookingflow.Flow
	logger   *logging.Logger
}

// NewSessionHandler creates a session handler. newFlow is called once per
// created session and wires the flow to the shared catalog and preloader.
func NewSessionHandler(sessions *SessionStore, newFlow func() *bookingflow.Flow, logger *logging.Logger) *SessionHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionHandler{sessions: sessions, newFlow: newFlow, logger: logger}
}

type sessionState struct {
	ID            string             `json:"id"`
	Step          bookingflow.Step   `json:"step"`
	Steps         []bookingflow.Step `json:"steps"`
	AppointmentID string             `json:"appointmentId,omitempty"`
}

func stateOf(id string, f *bookingflow.Flow) sessionState {
	return sessionState{
		ID:            id,
		Step:          f.Current(),
		Steps:         f.Steps(),
		AppointmentID: f.AppointmentID(),
	}
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	f := h.newFlow()
	id := h.sessions.Create(f)
	h.logger.Info("booking session created", "session_id", id)
	writeJSON(w, http.StatusCreated, stateOf(id, f))
}

// Get handles GET /api/sessions/{sessionID}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, f, ok := h.flowFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(id, f))
}

// selectionRequest carries the choices a client can record on the current
// step. Pointer fields distinguish "not provided" from explicit empties:
// an empty addonIds list is a valid choice, an absent one is not a choice.
type selectionRequest struct {
	CategoryID  string                      `json:"categoryId,omitempty"`
	ServiceID   string                      `json:"serviceId,omitempty"`
	VariationID string                      `json:"variationId,omitempty"`
	StaffID     string                      `json:"staffId,omitempty"`
	AddonIDs    *[]string                   `json:"addonIds,omitempty"`
	Slot        *provider.TimeSlot          `json:"slot,omitempty"`
	Client      *provider.ClientInfo        `json:"client,omitempty"`
	Consent     []provider.ConsentResponse  `json:"consent,omitempty"`
	Note        *string                     `json:"note,omitempty"`
}

// ApplySelection handles POST /api/sessions/{sessionID}/selection.
func (h *SessionHandler) ApplySelection(w http.ResponseWriter, r *http.Request) {
	id, f, ok := h.flowFor(w, r)
	if !ok {
		return
	}

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	apply := func(err error) bool {
		if err != nil {
			h.logger.Warn("selection rejected", "session_id", id, "error", err)
			writeError(w, http.StatusBadRequest, err)
			return false
		}
		return true
	}

	if req.CategoryID != "" && !apply(f.SelectCategory(ctx, req.CategoryID)) {
		return
	}
	if req.ServiceID != "" && !apply(f.SelectService(ctx, req.ServiceID)) {
		return
	}
	if req.VariationID != "" && !apply(f.SelectVariation(req.VariationID)) {
		return
	}
	if req.StaffID != "" && !apply(f.SelectStaff(ctx, req.StaffID)) {
		return
	}
	if req.AddonIDs != nil && !apply(f.SelectAddons(ctx, *req.AddonIDs)) {
		return
	}
	if req.Slot != nil && !apply(f.SelectSlot(*req.Slot)) {
		return
	}
	if req.Client != nil && !apply(f.SetClient(*req.Client)) {
		return
	}
	if req.Consent != nil {
		f.SetConsent(req.Consent)
	}
	if req.Note != nil {
		f.SetNote(*req.Note)
	}

	writeJSON(w, http.StatusOK, stateOf(id, f))
}

// Next handles POST /api/sessions/{sessionID}/next.
func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	id, f, ok := h.flowFor(w, r)
	if !ok {
		return
	}
	if _, err := f.Next(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(id, f))
}

// Back handles POST /api/sessions/{sessionID}/back.
func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	id, f, ok := h.flowFor(w, r)
	if !ok {
		return
	}
	if _, err := f.Back(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(id, f))
}

// Submit handles POST /api/sessions/{sessionID}/submit. A failed
// submission leaves the session on summary with every choice intact, so
// the client can retry the same call.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, f, ok := h.flowFor(w, r)
	if !ok {
		return
	}
	apptID, err := f.Submit(r.Context())
	if err != nil {
		h.logger.Error("submission failed", "session_id", id, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	h.logger.Info("booking submitted", "session_id", id, "appointment_id", apptID)
	writeJSON(w, http.StatusCreated, stateOf(id, f))
}

func (h *SessionHandler) flowFor(w http.ResponseWriter, r *http.Request) (string, *bookingflow.Flow, bool) {
	id := chi.URLParam(r, "sessionID")
	f, ok := h.sessions.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return id, nil, false
	}
	return id, f, true
}
