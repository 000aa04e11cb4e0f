package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

// QuestionInput is one authored question. Options are the MCQ choices in
// order; CorrectIndex of -1 marks a free-text question.
type QuestionInput struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Position     int      `json:"position"`
}

// CompetencyService owns screening assessments, their questions, and the
// per-participant assignment lifecycle
// (pending → in_progress → submitted → reviewed).
type CompetencyService struct {
	store   repository.Store
	emailer Emailer
	logger  *slog.Logger
}

func NewCompetencyService(store repository.Store, emailer Emailer, logger *slog.Logger) *CompetencyService {
	return &CompetencyService{store: store, emailer: emailer, logger: logger}
}

// CreateAssessment creates a quiz with its initial question set in one
// transaction.
func (s *CompetencyService) CreateAssessment(ctx context.Context, researcherID, title, description string, passThreshold float64, questions []QuestionInput) (*model.CompetencyAssessment, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "assessment title is required")
	}
	if passThreshold < 0 || passThreshold > 1 {
		return nil, apperror.ValidationFailed("passThreshold", "pass threshold must be between 0 and 1")
	}

	assessment := &model.CompetencyAssessment{
		ID:            xid.New().String(),
		ResearcherID:  researcherID,
		Title:         title,
		Description:   description,
		PassThreshold: passThreshold,
	}
	rows, err := buildQuestions(assessment.ID, questions)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Competency().CreateAssessment(ctx, assessment); err != nil {
			return fmt.Errorf("creating assessment: %w", err)
		}
		return tx.Competency().CreateQuestions(ctx, rows)
	})
	if err != nil {
		return nil, err
	}
	return s.store.Competency().GetAssessment(ctx, assessment.ID)
}

func buildQuestions(assessmentID string, inputs []QuestionInput) ([]model.CompetencyQuestion, error) {
	rows := make([]model.CompetencyQuestion, 0, len(inputs))
	for i, q := range inputs {
		prompt := strings.TrimSpace(q.Prompt)
		if prompt == "" {
			return nil, apperror.ValidationFailed("questions", fmt.Sprintf("question %d has no prompt", i+1))
		}
		if q.CorrectIndex >= len(q.Options) {
			return nil, apperror.ValidationFailed("questions",
				fmt.Sprintf("question %d: correct index %d out of range", i+1, q.CorrectIndex))
		}
		position := q.Position
		if position == 0 {
			position = i + 1
		}
		choices := make([]any, len(q.Options))
		for j, o := range q.Options {
			choices[j] = o
		}
		rows = append(rows, model.CompetencyQuestion{
			ID:           xid.New().String(),
			AssessmentID: assessmentID,
			Prompt:       prompt,
			Options:      model.JSONMap{"choices": choices},
			CorrectIndex: q.CorrectIndex,
			Position:     position,
		})
	}
	return rows, nil
}

// GetAssessment returns a quiz with its questions, owner or admin only.
func (s *CompetencyService) GetAssessment(ctx context.Context, callerID string, callerRole model.Role, id string) (*model.CompetencyAssessment, error) {
	return s.requireAssessmentOwner(ctx, callerID, callerRole, id)
}

func (s *CompetencyService) ListAssessments(ctx context.Context, researcherID string) ([]model.CompetencyAssessment, error) {
	return s.store.Competency().ListAssessmentsByResearcher(ctx, researcherID)
}

func (s *CompetencyService) DeleteAssessment(ctx context.Context, callerID string, callerRole model.Role, id string) error {
	if _, err := s.requireAssessmentOwner(ctx, callerID, callerRole, id); err != nil {
		return err
	}
	return s.store.Competency().DeleteAssessment(ctx, id)
}

// AddQuestions appends authored questions to an assessment.
func (s *CompetencyService) AddQuestions(ctx context.Context, callerID string, callerRole model.Role, assessmentID string, inputs []QuestionInput) (*model.CompetencyAssessment, error) {
	if _, err := s.requireAssessmentOwner(ctx, callerID, callerRole, assessmentID); err != nil {
		return nil, err
	}
	rows, err := buildQuestions(assessmentID, inputs)
	if err != nil {
		return nil, err
	}
	if err := s.store.Competency().CreateQuestions(ctx, rows); err != nil {
		return nil, fmt.Errorf("adding questions: %w", err)
	}
	return s.store.Competency().GetAssessment(ctx, assessmentID)
}

func (s *CompetencyService) DeleteQuestion(ctx context.Context, callerID string, callerRole model.Role, assessmentID, questionID string) error {
	if _, err := s.requireAssessmentOwner(ctx, callerID, callerRole, assessmentID); err != nil {
		return err
	}
	return s.store.Competency().DeleteQuestion(ctx, questionID)
}

// ImportQuestionsCSV parses an uploaded CSV of questions and appends them.
// Expected columns: prompt, option..., correct_index. A header row is
// skipped when its last column does not parse as a number. Free-text
// questions use a single prompt column with correct_index -1 or empty.
func (s *CompetencyService) ImportQuestionsCSV(ctx context.Context, callerID string, callerRole model.Role, assessmentID string, r io.Reader) (*model.CompetencyAssessment, error) {
	if _, err := s.requireAssessmentOwner(ctx, callerID, callerRole, assessmentID); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperror.ValidationFailed("file", fmt.Sprintf("invalid CSV: %v", err))
	}
	if len(records) == 0 {
		return nil, apperror.ValidationFailed("file", "CSV contains no rows")
	}

	var inputs []QuestionInput
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		last := strings.TrimSpace(rec[len(rec)-1])
		correct := -1
		if last != "" {
			n, err := strconv.Atoi(last)
			if err != nil {
				if i == 0 {
					continue // header row
				}
				return nil, apperror.ValidationFailed("file",
					fmt.Sprintf("row %d: correct index %q is not a number", i+1, last))
			}
			correct = n
		}

		var options []string
		if len(rec) > 2 {
			options = rec[1 : len(rec)-1]
		}
		inputs = append(inputs, QuestionInput{
			Prompt:       rec[0],
			Options:      options,
			CorrectIndex: correct,
		})
	}
	if len(inputs) == 0 {
		return nil, apperror.ValidationFailed("file", "CSV contains no questions")
	}
	return s.AddQuestions(ctx, callerID, callerRole, assessmentID, inputs)
}

// StartAssignment moves the participant's attempt to in_progress.
func (s *CompetencyService) StartAssignment(ctx context.Context, userID, assignmentID string) (*model.CompetencyAssignment, error) {
	a, err := s.store.Competency().GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, apperror.Forbidden("this assignment belongs to another participant")
	}
	if a.Status != model.AssignmentPending {
		return nil, apperror.ValidationFailed("status", fmt.Sprintf("assignment is %s, not pending", a.Status))
	}

	now := time.Now()
	a.Status = model.AssignmentInProgress
	a.StartedAt = &now
	if err := s.store.Competency().UpdateAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("starting assignment: %w", err)
	}
	return a, nil
}

// SubmitAssignment records the participant's answers, auto-scores the MCQs,
// and bumps the enrollment to in_progress, all in one transaction. After
// commit, the owning researcher is emailed best-effort.
func (s *CompetencyService) SubmitAssignment(ctx context.Context, userID, assignmentID string, answers model.JSONMap) (*model.CompetencyAssignment, error) {
	a, err := s.store.Competency().GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, apperror.Forbidden("this assignment belongs to another participant")
	}
	if a.Status != model.AssignmentPending && a.Status != model.AssignmentInProgress {
		return nil, apperror.ValidationFailed("status", fmt.Sprintf("assignment already %s", a.Status))
	}
	if len(answers) == 0 {
		return nil, apperror.ValidationFailed("answers", "answers are required")
	}

	now := time.Now()
	a.Status = model.AssignmentSubmitted
	a.Answers = answers
	a.SubmittedAt = &now
	if a.StartedAt == nil {
		a.StartedAt = &now
	}
	if a.Assessment != nil {
		a.Score = autoScore(a.Assessment.Questions, answers)
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Competency().UpdateAssignment(ctx, a); err != nil {
			return fmt.Errorf("submitting assignment: %w", err)
		}
		e, err := tx.Enrollments().GetByID(ctx, a.EnrollmentID)
		if err != nil {
			return err
		}
		if e.ParticipationStatus == model.ParticipationInvited {
			e.ParticipationStatus = model.ParticipationInProgress
			if err := tx.Enrollments().Update(ctx, e); err != nil {
				return fmt.Errorf("updating enrollment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyResearcher(ctx, a.StudyID, "Competency screening submitted",
		fmt.Sprintf("A participant submitted the competency screening for study %s (score %.0f%%).", a.StudyID, a.Score*100))
	return a, nil
}

// autoScore is the fraction of MCQs answered correctly. Assessments with no
// MCQs score 0 and are decided entirely at review.
func autoScore(questions []model.CompetencyQuestion, answers model.JSONMap) float64 {
	mcqs, correct := 0, 0
	for _, q := range questions {
		if q.CorrectIndex < 0 {
			continue
		}
		mcqs++
		if idx, ok := answerIndex(answers[q.ID]); ok && idx == q.CorrectIndex {
			correct++
		}
	}
	if mcqs == 0 {
		return 0
	}
	return float64(correct) / float64(mcqs)
}

// ReviewAssignment records the researcher's accept/reject decision.
func (s *CompetencyService) ReviewAssignment(ctx context.Context, callerID string, callerRole model.Role, assignmentID, decision, notes string) (*model.CompetencyAssignment, error) {
	if decision != model.DecisionAccepted && decision != model.DecisionRejected {
		return nil, apperror.ValidationFailed("decision", "decision must be accepted or rejected")
	}
	a, err := s.store.Competency().GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	study, err := s.store.Studies().GetByID(ctx, a.StudyID)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleAdmin && study.ResearcherID != callerID {
		return nil, apperror.Forbidden("only the owning researcher can review this assignment")
	}
	if a.Status != model.AssignmentSubmitted {
		return nil, apperror.ValidationFailed("status", fmt.Sprintf("assignment is %s, not submitted", a.Status))
	}

	now := time.Now()
	a.Status = model.AssignmentReviewed
	a.Decision = decision
	a.ReviewNotes = notes
	a.ReviewedAt = &now
	if err := s.store.Competency().UpdateAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("reviewing assignment: %w", err)
	}
	return a, nil
}

// Report builds the reviewed-submission report for an assessment.
func (s *CompetencyService) Report(ctx context.Context, callerID string, callerRole model.Role, assessmentID string) (CompetencyReport, error) {
	assessment, err := s.requireAssessmentOwner(ctx, callerID, callerRole, assessmentID)
	if err != nil {
		return CompetencyReport{}, err
	}
	reviewed, err := s.store.Competency().ListReviewedByAssessment(ctx, assessmentID)
	if err != nil {
		return CompetencyReport{}, fmt.Errorf("loading reviewed assignments: %w", err)
	}
	return BuildCompetencyReport(assessment, reviewed, time.Now()), nil
}

// notifyResearcher emails the owner of a study best-effort: the triggering
// write has already committed, so failures are logged and dropped.
func (s *CompetencyService) notifyResearcher(ctx context.Context, studyID, subject, body string) {
	study, err := s.store.Studies().GetByID(ctx, studyID)
	if err != nil {
		s.logger.Error("failed to load study for notification", slog.String("study", studyID), slog.String("error", err.Error()))
		return
	}
	owner, err := s.store.Users().GetByID(ctx, study.ResearcherID)
	if err != nil {
		s.logger.Error("failed to load researcher for notification", slog.String("study", studyID), slog.String("error", err.Error()))
		return
	}
	if err := s.emailer.Send(ctx, owner.Email, subject, body); err != nil {
		s.logger.Error("failed to send notification email",
			slog.String("to", owner.Email),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CompetencyService) requireAssessmentOwner(ctx context.Context, callerID string, callerRole model.Role, id string) (*model.CompetencyAssessment, error) {
	assessment, err := s.store.Competency().GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleAdmin && assessment.ResearcherID != callerID {
		return nil, apperror.Forbidden("only the owning researcher can access this assessment")
	}
	return assessment, nil
}
