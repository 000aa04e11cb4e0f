package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/studyweave/studyweave/internal/auth"
	"github.com/studyweave/studyweave/internal/repository"
	"github.com/studyweave/studyweave/internal/service"
)

// ResearcherHandler serves the researcher dashboard routes.
type ResearcherHandler struct {
	svc *service.ResearcherService
}

func NewResearcherHandler(svc *service.ResearcherService) *ResearcherHandler {
	return &ResearcherHandler{svc: svc}
}

// HandleOverview returns all owned studies with enrollment rollups.
// GET /api/researcher/overview
func (h *ResearcherHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	overview, err := h.svc.Overview(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// HandleParticipants returns per-participant progress for one owned study.
// GET /api/researcher/participants/{studyID}
func (h *ResearcherHandler) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	rows, err := h.svc.Participants(r.Context(), id.UserID, id.Role, chi.URLParam(r, "studyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleNotifications returns the recomputed notification feed, newest first.
// GET /api/researcher/notifications
func (h *ResearcherHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	notices, err := h.svc.Notifications(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notices)
}

// HandleActions returns the caller's audit trail.
// GET /api/researcher/actions?limit=&offset=
func (h *ResearcherHandler) HandleActions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	logs, err := h.svc.ActionLog(r.Context(), id.UserID, listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// listOptions parses limit/offset query parameters, ignoring junk values.
func listOptions(r *http.Request) repository.ListOptions {
	var opts repository.ListOptions
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		opts.Limit = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n > 0 {
		opts.Offset = n
	}
	return opts
}
