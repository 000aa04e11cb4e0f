package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/auth"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/service"
)

// CompetencyHandler serves /api/competency: assessments, questions, the CSV
// import, the assignment lifecycle, and report downloads.
type CompetencyHandler struct {
	svc *service.CompetencyService
}

func NewCompetencyHandler(svc *service.CompetencyService) *CompetencyHandler {
	return &CompetencyHandler{svc: svc}
}

// HandleCreateAssessment creates a quiz with its initial questions.
// POST /api/competency/assessments
func (h *CompetencyHandler) HandleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Title         string                  `json:"title"`
		Description   string                  `json:"description"`
		PassThreshold float64                 `json:"passThreshold"`
		Questions     []service.QuestionInput `json:"questions"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.svc.CreateAssessment(r.Context(), id.UserID, body.Title, body.Description, body.PassThreshold, body.Questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandleListAssessments lists the caller's quizzes.
// GET /api/competency/assessments
func (h *CompetencyHandler) HandleListAssessments(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	list, err := h.svc.ListAssessments(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGetAssessment returns one quiz with its questions.
// GET /api/competency/assessments/{id}
func (h *CompetencyHandler) HandleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	a, err := h.svc.GetAssessment(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleDeleteAssessment removes a quiz and its questions.
// DELETE /api/competency/assessments/{id}
func (h *CompetencyHandler) HandleDeleteAssessment(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if err := h.svc.DeleteAssessment(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddQuestions appends authored questions.
// POST /api/competency/assessments/{id}/questions
func (h *CompetencyHandler) HandleAddQuestions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Questions []service.QuestionInput `json:"questions"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.svc.AddQuestions(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"), body.Questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandleDeleteQuestion removes one question.
// DELETE /api/competency/assessments/{id}/questions/{questionID}
func (h *CompetencyHandler) HandleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	err := h.svc.DeleteQuestion(r.Context(), id.UserID, id.Role,
		chi.URLParam(r, "id"), chi.URLParam(r, "questionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleImportQuestions appends questions from an uploaded CSV.
// POST /api/competency/assessments/{id}/questions/import (multipart: file)
func (h *CompetencyHandler) HandleImportQuestions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadBytes)
	if err := r.ParseMultipartForm(service.MaxUploadBytes); err != nil {
		writeError(w, apperror.ValidationFailed("file", "invalid or oversized multipart upload"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "a file field is required"))
		return
	}
	defer file.Close()

	a, err := h.svc.ImportQuestionsCSV(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"), file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandleStartAssignment moves the caller's attempt to in_progress.
// POST /api/competency/assignments/{id}/start
func (h *CompetencyHandler) HandleStartAssignment(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	a, err := h.svc.StartAssignment(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleSubmitAssignment records answers and auto-scores the MCQs.
// POST /api/competency/assignments/{id}/submit {"answers":{...}}
func (h *CompetencyHandler) HandleSubmitAssignment(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Answers model.JSONMap `json:"answers"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.svc.SubmitAssignment(r.Context(), id.UserID, chi.URLParam(r, "id"), body.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleReviewAssignment records the accept/reject decision.
// POST /api/competency/assignments/{id}/review {"decision","notes"}
func (h *CompetencyHandler) HandleReviewAssignment(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Decision string `json:"decision"`
		Notes    string `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.svc.ReviewAssignment(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"), body.Decision, body.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleReport downloads the reviewed-submission report as an attachment.
// GET /api/competency/assessments/{id}/report?format=csv|pdf
func (h *CompetencyHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	report, err := h.svc.Report(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	stamp := time.Now().Format("2006-01-02")
	switch r.URL.Query().Get("format") {
	case "pdf":
		data, err := report.PDF()
		if err != nil {
			writeError(w, err)
			return
		}
		sendAttachment(w, data, "application/pdf", fmt.Sprintf("competency-report-%s.pdf", stamp))
	case "", "csv":
		data, err := report.CSV()
		if err != nil {
			writeError(w, err)
			return
		}
		sendAttachment(w, data, "text/csv; charset=utf-8", fmt.Sprintf("competency-report-%s.csv", stamp))
	default:
		writeError(w, apperror.ValidationFailed("format", "format must be csv or pdf"))
	}
}

func sendAttachment(w http.ResponseWriter, data []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
