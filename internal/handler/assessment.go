package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyweave/studyweave/internal/auth"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
	"github.com/studyweave/studyweave/internal/service"
)

// AssessmentHandler serves /api/artifact-assessments.
type AssessmentHandler struct {
	svc *service.AssessmentService
}

func NewAssessmentHandler(svc *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{svc: svc}
}

// HandleCreate records a new draft assessment with its items.
// POST /api/artifact-assessments
func (h *AssessmentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body service.CreateAssessmentInput
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.svc.Create(r.Context(), id.UserID, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandleList returns assessments scoped to the caller's role.
// GET /api/artifact-assessments?studyId=&studyArtifactId=&assessmentType=&status=
func (h *AssessmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	q := r.URL.Query()
	filter := repository.AssessmentFilter{
		StudyID:         q.Get("studyId"),
		StudyArtifactID: q.Get("studyArtifactId"),
		EvaluatorUserID: q.Get("evaluatorUserId"),
		AssessmentType:  q.Get("assessmentType"),
		Status:          q.Get("status"),
	}

	list, err := h.svc.List(r.Context(), id.UserID, id.Role, filter, listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGet returns one assessment with its items.
// GET /api/artifact-assessments/{id}
func (h *AssessmentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	a, err := h.svc.Get(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleUpdate replaces the payload and items of a draft.
// PUT /api/artifact-assessments/{id}
func (h *AssessmentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Payload model.JSONMap                 `json:"payload"`
		Items   []service.AssessmentItemInput `json:"items"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.svc.UpdateDraft(r.Context(), id.UserID, chi.URLParam(r, "id"), body.Payload, body.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleSubmit finalizes a draft assessment.
// POST /api/artifact-assessments/{id}/submit
func (h *AssessmentHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	a, err := h.svc.Submit(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
