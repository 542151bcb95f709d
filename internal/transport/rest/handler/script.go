package handler

import (
	"encoding/json"
	"net/http"

	"intaker/internal/model"
	"intaker/internal/service"
	"intaker/internal/transport/rest/middleware"
)

// ScriptHandler handles intake script endpoints
type ScriptHandler struct {
	scriptSvc *service.ScriptService
}

// NewScriptHandler creates a new script handler
func NewScriptHandler(scriptSvc *service.ScriptService) *ScriptHandler {
	return &ScriptHandler{scriptSvc: scriptSvc}
}

// GetActive handles GET /v1/scripts/active
func (h *ScriptHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	if middleware.GetClinicianID(r.Context()) == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	script, err := h.scriptSvc.GetActive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if script == nil {
		writeError(w, http.StatusNotFound, "no active script")
		return
	}

	writeJSON(w, http.StatusOK, script)
}

// Publish handles POST /v1/scripts
func (h *ScriptHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if middleware.GetClinicianID(r.Context()) == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var script model.IntakeScript
	if err := json.NewDecoder(r.Body).Decode(&script); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.scriptSvc.Publish(r.Context(), &script); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"scriptId": script.ScriptID,
		"version":  script.Version,
	})
}
