package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"intaker/internal/service"
	"intaker/internal/transport/rest/middleware"
)

// AssessmentHandler handles assessment and treatment plan endpoints
type AssessmentHandler struct {
	assessmentSvc *service.AssessmentService
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(assessmentSvc *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentSvc: assessmentSvc}
}

// Get handles GET /v1/sessions/{sessionId}/assessment
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if middleware.GetClinicianID(r.Context()) == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	assessment, err := h.assessmentSvc.GetAssessment(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if assessment == nil {
		writeError(w, http.StatusNotFound, "assessment not found")
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}

// GeneratePlan handles POST /v1/sessions/{sessionId}/plan
func (h *AssessmentHandler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if middleware.GetClinicianID(r.Context()) == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Plan generation can outlive the request.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		h.assessmentSvc.GeneratePlan(ctx, sessionID)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "generating"})
}

// GetPlan handles GET /v1/sessions/{sessionId}/plan
func (h *AssessmentHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if middleware.GetClinicianID(r.Context()) == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	plan, err := h.assessmentSvc.GetPlan(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if plan == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_started"})
		return
	}

	writeJSON(w, http.StatusOK, plan)
}
