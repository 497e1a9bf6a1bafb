package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/api/models"
	"github.com/routopia/routeengine/internal/api/response"
	"github.com/routopia/routeengine/internal/preferences"
	"github.com/routopia/routeengine/internal/routing"
)

// PreferencesHandler handles stored route preference endpoints.
type PreferencesHandler struct {
	service *preferences.Service
	logger  zerolog.Logger
}

// NewPreferencesHandler creates a PreferencesHandler.
func NewPreferencesHandler(service *preferences.Service, logger zerolog.Logger) *PreferencesHandler {
	return &PreferencesHandler{service: service, logger: logger}
}

// GetPreferences handles GET /v1/users/{userId}/preferences.
func (h *PreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, preferencesResponse(rec))
}

// PutPreferences handles PUT /v1/users/{userId}/preferences.
func (h *PreferencesHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs routing.RoutePreferences
	if !decode(w, r, &prefs) {
		return
	}

	rec, err := h.service.Update(r.Context(), chi.URLParam(r, "userId"), prefs)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, preferencesResponse(rec))
}

// DeletePreferences handles DELETE /v1/users/{userId}/preferences.
func (h *PreferencesHandler) DeletePreferences(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "userId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w, r)
}

func preferencesResponse(rec *preferences.Record) models.PreferencesResponse {
	return models.PreferencesResponse{
		UserID:      rec.UserID,
		Preferences: rec.Preferences,
		CreatedAt:   models.Timestamp(rec.CreatedAt),
		UpdatedAt:   models.Timestamp(rec.UpdatedAt),
	}
}
