package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

// AssessmentItemInput is one finding line in an incoming rubric submission.
type AssessmentItemInput struct {
	Position int    `json:"position"`
	Label    string `json:"label"`
	Verdict  string `json:"verdict"`
	Comment  string `json:"comment"`
}

// CreateAssessmentInput is the POST /api/artifact-assessments body.
type CreateAssessmentInput struct {
	StudyID         string                `json:"studyId"`
	StudyArtifactID string                `json:"studyArtifactId"`
	AssessmentType  string                `json:"assessmentType"`
	Payload         model.JSONMap         `json:"payload"`
	Items           []AssessmentItemInput `json:"items"`
}

// AssessmentService owns artifact-assessment submissions: the transactional
// create, the scoped listing, draft edits, and the submit side-effect
// handler.
type AssessmentService struct {
	store   repository.Store
	emailer Emailer
	logger  *slog.Logger
}

func NewAssessmentService(store repository.Store, emailer Emailer, logger *slog.Logger) *AssessmentService {
	return &AssessmentService{store: store, emailer: emailer, logger: logger}
}

// Create validates and inserts an assessment with its items in one
// transaction: a bad input or a failed item insert writes nothing.
func (s *AssessmentService) Create(ctx context.Context, evaluatorUserID string, in CreateAssessmentInput) (*model.ArtifactAssessment, error) {
	if in.StudyID == "" {
		return nil, apperror.ValidationFailed("studyId", "studyId is required")
	}
	if in.StudyArtifactID == "" {
		return nil, apperror.ValidationFailed("studyArtifactId", "studyArtifactId is required")
	}
	if in.AssessmentType == "" {
		return nil, apperror.ValidationFailed("assessmentType", "assessmentType is required")
	}
	if !model.ValidMode(in.AssessmentType) {
		return nil, apperror.ValidationFailed("assessmentType",
			fmt.Sprintf("unknown assessment type %q", in.AssessmentType))
	}

	assessment := &model.ArtifactAssessment{
		ID:              xid.New().String(),
		StudyID:         in.StudyID,
		StudyArtifactID: in.StudyArtifactID,
		EvaluatorUserID: evaluatorUserID,
		AssessmentType:  model.NormalizeMode(in.AssessmentType),
		Status:          model.AssessmentDraft,
		Payload:         in.Payload,
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sa, err := tx.Studies().GetStudyArtifact(ctx, in.StudyArtifactID)
		if err != nil {
			return err
		}
		if sa.StudyID != in.StudyID {
			return apperror.ValidationFailed("studyArtifactId", "study artifact does not belong to the given study")
		}

		// Enrollment is optional: public studies accept guest evaluators
		// who were never enrolled.
		if e, err := tx.Enrollments().GetByStudyAndUser(ctx, in.StudyID, evaluatorUserID); err == nil {
			assessment.EnrollmentID = e.ID
		}

		if err := tx.Assessments().Create(ctx, assessment); err != nil {
			return fmt.Errorf("creating assessment: %w", err)
		}
		return tx.Assessments().CreateItems(ctx, buildItems(assessment.ID, in.Items))
	})
	if err != nil {
		return nil, err
	}

	return s.store.Assessments().GetByID(ctx, assessment.ID)
}

func buildItems(assessmentID string, inputs []AssessmentItemInput) []model.ArtifactAssessmentItem {
	items := make([]model.ArtifactAssessmentItem, 0, len(inputs))
	for i, in := range inputs {
		position := in.Position
		if position == 0 {
			position = i + 1
		}
		items = append(items, model.ArtifactAssessmentItem{
			ID:           xid.New().String(),
			AssessmentID: assessmentID,
			Position:     position,
			Label:        in.Label,
			Verdict:      in.Verdict,
			Comment:      in.Comment,
		})
	}
	return items
}

// List returns assessments matching the filter. Participant and guest
// callers are always pinned to their own evaluatorUserId, whatever the
// query string asked for, so one participant can never read another's
// submissions. Researchers are pinned to studies they own unless admin.
func (s *AssessmentService) List(ctx context.Context, callerID string, callerRole model.Role, filter repository.AssessmentFilter, opts repository.ListOptions) ([]model.ArtifactAssessment, error) {
	switch callerRole {
	case model.RoleParticipant, model.RoleGuest:
		filter.EvaluatorUserID = callerID
	case model.RoleResearcher:
		if filter.StudyID == "" {
			return nil, apperror.ValidationFailed("studyId", "studyId is required for researcher queries")
		}
		study, err := s.store.Studies().GetByID(ctx, filter.StudyID)
		if err != nil {
			return nil, err
		}
		if study.ResearcherID != callerID {
			return nil, apperror.Forbidden("you do not own this study")
		}
	}
	return s.store.Assessments().List(ctx, filter, opts)
}

// Get returns one assessment, visible to its evaluator, the owning
// researcher, or an admin.
func (s *AssessmentService) Get(ctx context.Context, callerID string, callerRole model.Role, id string) (*model.ArtifactAssessment, error) {
	a, err := s.store.Assessments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.EvaluatorUserID == callerID || callerRole == model.RoleAdmin {
		return a, nil
	}
	study, err := s.store.Studies().GetByID(ctx, a.StudyID)
	if err == nil && study.ResearcherID == callerID {
		return a, nil
	}
	return nil, apperror.Forbidden("you do not have access to this assessment")
}

// UpdateDraft replaces the payload and items of an unsubmitted assessment.
func (s *AssessmentService) UpdateDraft(ctx context.Context, callerID, id string, payload model.JSONMap, items []AssessmentItemInput) (*model.ArtifactAssessment, error) {
	a, err := s.store.Assessments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.EvaluatorUserID != callerID {
		return nil, apperror.Forbidden("this assessment belongs to another evaluator")
	}
	if a.Status != model.AssessmentDraft {
		return nil, apperror.ValidationFailed("status", "submitted assessments are immutable")
	}

	if payload != nil {
		a.Payload = payload
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Assessments().Update(ctx, a); err != nil {
			return fmt.Errorf("updating assessment: %w", err)
		}
		if items == nil {
			return nil
		}
		return tx.Assessments().ReplaceItems(ctx, a.ID, buildItems(a.ID, items))
	})
	if err != nil {
		return nil, err
	}
	return s.store.Assessments().GetByID(ctx, id)
}

// Submit finalizes an assessment. The status flip and the enrollment's
// status/progress update commit in the same transaction; the researcher
// email afterwards is best-effort and can never roll the submission back.
func (s *AssessmentService) Submit(ctx context.Context, callerID, id string) (*model.ArtifactAssessment, error) {
	a, err := s.store.Assessments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.EvaluatorUserID != callerID {
		return nil, apperror.Forbidden("this assessment belongs to another evaluator")
	}
	if a.Status != model.AssessmentDraft {
		return nil, apperror.ValidationFailed("status", "assessment has already been submitted")
	}

	now := time.Now()
	a.Status = model.AssessmentSubmitted
	a.SubmittedAt = &now

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Assessments().Update(ctx, a); err != nil {
			return fmt.Errorf("submitting assessment: %w", err)
		}
		if a.EnrollmentID == "" {
			return nil
		}
		e, err := tx.Enrollments().GetByID(ctx, a.EnrollmentID)
		if err != nil {
			return err
		}
		// One submitted assessment marks the enrollment completed; the
		// aggregator infers the same thing, this just persists it.
		if e.ParticipationStatus != model.ParticipationWithdrawn {
			e.ParticipationStatus = model.ParticipationCompleted
			e.ProgressPercent = 100
		}
		return tx.Enrollments().Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.notifyResearcher(ctx, a)
	return a, nil
}

func (s *AssessmentService) notifyResearcher(ctx context.Context, a *model.ArtifactAssessment) {
	study, err := s.store.Studies().GetByID(ctx, a.StudyID)
	if err != nil {
		s.logger.Error("failed to load study for notification", slog.String("study", a.StudyID), slog.String("error", err.Error()))
		return
	}
	owner, err := s.store.Users().GetByID(ctx, study.ResearcherID)
	if err != nil {
		s.logger.Error("failed to load researcher for notification", slog.String("study", a.StudyID), slog.String("error", err.Error()))
		return
	}
	body := fmt.Sprintf("A participant submitted a %s assessment in study %q.", a.AssessmentType, study.Title)
	if err := s.emailer.Send(ctx, owner.Email, "Artifact assessment submitted", body); err != nil {
		s.logger.Error("failed to send notification email",
			slog.String("to", owner.Email),
			slog.String("error", err.Error()),
		)
	}
}
