package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"intaker/internal/model"
	"intaker/internal/service"
	"intaker/internal/transport/rest/middleware"
)

// SessionHandler handles intake session endpoints
type SessionHandler struct {
	intakeSvc *service.IntakeService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(intakeSvc *service.IntakeService) *SessionHandler {
	return &SessionHandler{intakeSvc: intakeSvc}
}

// Start handles POST /v1/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	clinicianID := middleware.GetClinicianID(r.Context())
	if clinicianID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.intakeSvc.StartSession(r.Context(), clinicianID, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /v1/sessions/{sessionId}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	session, err := h.intakeSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Audit handles GET /v1/sessions/{sessionId}/audit
func (h *SessionHandler) Audit(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	events, err := h.intakeSvc.AuditTrail(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []*model.AuditEvent{}
	}

	writeJSON(w, http.StatusOK, events)
}

// End handles POST /v1/sessions/{sessionId}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	if err := h.intakeSvc.EndSession(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}
