package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyweave/studyweave/internal/auth"
	"github.com/studyweave/studyweave/internal/service"
)

// ReviewerHandler serves the adjudication queue for comparison judgments.
type ReviewerHandler struct {
	svc *service.ComparisonService
}

func NewReviewerHandler(svc *service.ComparisonService) *ReviewerHandler {
	return &ReviewerHandler{svc: svc}
}

// HandleQueue lists the caller's pending adjudications, oldest first.
// GET /api/reviewer/adjudications
func (h *ReviewerHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	queue, err := h.svc.Queue(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queue)
}

// HandleAdjudicate resolves one pending comparison.
// PUT /api/reviewer/adjudications/{id}
func (h *ReviewerHandler) HandleAdjudicate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body service.AdjudicationInput
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.svc.Adjudicate(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
