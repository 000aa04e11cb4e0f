package handler

import (
	"net/http"

	"github.com/studyweave/studyweave/internal/auth"
	"github.com/studyweave/studyweave/internal/service"
)

// ParticipantHandler serves the participant dashboard.
type ParticipantHandler struct {
	svc *service.ParticipantService
}

func NewParticipantHandler(svc *service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{svc: svc}
}

// HandleAssignments returns every enrollment the caller holds, with
// progress, per-mode counts, and the suggested next action.
// GET /api/participant/assignments
func (h *ParticipantHandler) HandleAssignments(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	details, err := h.svc.Assignments(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}
