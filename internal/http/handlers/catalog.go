// Package handlers exposes the booking pipeline over JSON HTTP: catalog
// browsing, availability lookup, and stateful booking sessions.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/glowbook/bookingflow/internal/catalog"
	"github.com/glowbook/bookingflow/pkg/logging"
)

// CatalogHandler serves catalog browsing endpoints.
type CatalogHandler struct {
	catalog *catalog.Catalog
	logger  *logging.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(cat *catalog.Catalog, logger *logging.Logger) *CatalogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{catalog: cat, logger: logger}
}

// ListCategories handles GET /api/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.logger.Error("failed to list categories", "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// ListServices handles GET /api/services?categoryId=...
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("categoryId")
	if categoryID == "" {
		http.Error(w, "missing categoryId", http.StatusBadRequest)
		return
	}
	services, err := h.catalog.Services(r.Context(), categoryID)
	if err != nil {
		h.logger.Error("failed to list services", "category_id", categoryID, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

// ListStaff handles GET /api/staff?serviceId=...&variationId=...
func (h *CatalogHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	serviceID := r.URL.Query().Get("serviceId")
	variationID := r.URL.Query().Get("variationId")
	if serviceID == "" || variationID == "" {
		http.Error(w, "missing serviceId or variationId", http.StatusBadRequest)
		return
	}
	staff, err := h.catalog.Staff(r.Context(), serviceID, variationID)
	if err != nil {
		h.logger.Error("failed to list staff", "service_id", serviceID, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"staff": staff})
}

// ListAddons handles GET /api/addons?serviceId=...
func (h *CatalogHandler) ListAddons(w http.ResponseWriter, r *http.Request) {
	serviceID := r.URL.Query().Get("serviceId")
	if serviceID == "" {
		http.Error(w, "missing serviceId", http.StatusBadRequest)
		return
	}
	addons, err := h.catalog.Addons(r.Context(), serviceID)
	if err != nil {
		h.logger.Error("failed to list addons", "service_id", serviceID, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"addons": addons})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
