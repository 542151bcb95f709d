package handler

import (
	"encoding/json"
	"net/http"

	"intaker/internal/model"
	"intaker/internal/service"
	"intaker/internal/transport/rest/middleware"
)

// ChatHandler handles the patient chat pipeline
type ChatHandler struct {
	intakeSvc *service.IntakeService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(intakeSvc *service.IntakeService) *ChatHandler {
	return &ChatHandler{intakeSvc: intakeSvc}
}

// Message handles POST /v1/chat/message
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req model.ChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The patient token is scoped to one session; the body must agree.
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" || (req.SessionID != "" && req.SessionID != sessionID) {
		writeError(w, http.StatusForbidden, "token not valid for this session")
		return
	}

	resp, err := h.intakeSvc.HandleMessage(r.Context(), sessionID, req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
