package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyweave/studyweave/internal/auth"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/service"
)

// StudyHandler serves /api/studies: lifecycle, artifacts, participants,
// checkpoints, and comparison submissions.
type StudyHandler struct {
	svc         *service.StudyService
	comparisons *service.ComparisonService
}

func NewStudyHandler(svc *service.StudyService, comparisons *service.ComparisonService) *StudyHandler {
	return &StudyHandler{svc: svc, comparisons: comparisons}
}

// HandleCreate creates a study with its artifacts and invitees in one shot.
// POST /api/studies
func (h *StudyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body service.CreateStudyInput
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	study, err := h.svc.Create(r.Context(), id.UserID, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, study)
}

// HandleList returns the caller's studies (researchers) or public ones.
// GET /api/studies
func (h *StudyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	studies, err := h.svc.List(r.Context(), id.UserID, id.Role, listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, studies)
}

// HandleGet returns one study with its ordered artifacts.
// GET /api/studies/{id}
func (h *StudyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	study, err := h.svc.Get(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, study)
}

// HandleUpdate edits study fields.
// PUT /api/studies/{id}
func (h *StudyHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body service.UpdateStudyInput
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	study, err := h.svc.Update(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, study)
}

// HandleTransition moves the study along its lifecycle.
// POST /api/studies/{id}/transition {"status":"active"}
func (h *StudyHandler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Status model.StudyStatus `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	study, err := h.svc.Transition(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"), body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, study)
}

// HandleDelete removes a draft study.
// DELETE /api/studies/{id}
func (h *StudyHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if err := h.svc.Delete(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddArtifact attaches an artifact to the study.
// POST /api/studies/{id}/artifacts
func (h *StudyHandler) HandleAddArtifact(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body service.StudyArtifactInput
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	sa, err := h.svc.AddArtifact(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sa)
}

// HandleRemoveArtifact detaches a study artifact.
// DELETE /api/studies/{id}/artifacts/{studyArtifactID}
func (h *StudyHandler) HandleRemoveArtifact(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	err := h.svc.RemoveArtifact(r.Context(), id.UserID, id.Role,
		chi.URLParam(r, "id"), chi.URLParam(r, "studyArtifactID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleInvite enrolls an existing account by email.
// POST /api/studies/{id}/participants {"email","competencyAssessmentId"}
func (h *StudyHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Email        string `json:"email"`
		CompetencyID string `json:"competencyAssessmentId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.svc.Invite(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"), body.Email, body.CompetencyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// HandleRemoveParticipant deletes an enrollment.
// DELETE /api/studies/{id}/participants/{enrollmentID}
func (h *StudyHandler) HandleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	err := h.svc.RemoveParticipant(r.Context(), id.UserID, id.Role,
		chi.URLParam(r, "id"), chi.URLParam(r, "enrollmentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCheckpoint saves the caller's opaque timer checkpoint and next
// assignment pointer for this study.
// PUT /api/studies/{id}/checkpoint
func (h *StudyHandler) HandleCheckpoint(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Checkpoint          model.JSONMap `json:"checkpoint"`
		NextMode            string        `json:"nextMode"`
		NextStudyArtifactID string        `json:"nextStudyArtifactId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.svc.SaveCheckpoint(r.Context(), id.UserID, chi.URLParam(r, "id"),
		body.Checkpoint, body.NextMode, body.NextStudyArtifactID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleSubmitComparison records a head-to-head judgment for this study.
// POST /api/studies/{id}/comparisons
func (h *StudyHandler) HandleSubmitComparison(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body service.ComparisonInput
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.comparisons.Submit(r.Context(), id.UserID, chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
