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

// ComparisonInput is a participant's head-to-head judgment payload.
type ComparisonInput struct {
	LeftArtifactID  string `json:"leftArtifactId"`
	RightArtifactID string `json:"rightArtifactId"`
	Choice          string `json:"choice"`
	Confidence      int    `json:"confidence"`
	Rationale       string `json:"rationale"`
}

// AdjudicationInput is the reviewer's resolution of one comparison.
type AdjudicationInput struct {
	ReviewStatus string        `json:"reviewStatus"` // agreed | overridden
	Decision     string        `json:"decision"`
	ReviewNotes  string        `json:"reviewNotes"`
	GroundTruth  model.JSONMap `json:"groundTruth"`
}

// ComparisonService owns comparison submissions and their adjudication.
type ComparisonService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewComparisonService(store repository.Store, logger *slog.Logger) *ComparisonService {
	return &ComparisonService{store: store, logger: logger}
}

// Submit records a comparison judgment in a study the evaluator can access.
func (s *ComparisonService) Submit(ctx context.Context, evaluatorUserID, studyID string, in ComparisonInput) (*model.StudyComparison, error) {
	if in.LeftArtifactID == "" || in.RightArtifactID == "" {
		return nil, apperror.ValidationFailed("artifacts", "both artifact ids are required")
	}
	if in.LeftArtifactID == in.RightArtifactID {
		return nil, apperror.ValidationFailed("artifacts", "cannot compare an artifact with itself")
	}
	switch in.Choice {
	case "left", "right", "tie":
	default:
		return nil, apperror.ValidationFailed("choice", "choice must be left, right, or tie")
	}
	if in.Confidence < 0 || in.Confidence > 100 {
		return nil, apperror.ValidationFailed("confidence", "confidence must be between 0 and 100")
	}

	study, err := s.store.Studies().GetByID(ctx, studyID)
	if err != nil {
		return nil, err
	}
	if study.Status != model.StudyActive {
		return nil, apperror.ValidationFailed("study", "comparisons are only accepted for active studies")
	}

	c := &model.StudyComparison{
		ID:              xid.New().String(),
		StudyID:         studyID,
		EvaluatorUserID: evaluatorUserID,
		LeftArtifactID:  in.LeftArtifactID,
		RightArtifactID: in.RightArtifactID,
		Choice:          in.Choice,
		Confidence:      in.Confidence,
		Rationale:       in.Rationale,
		ReviewStatus:    model.ReviewPending,
		SubmittedAt:     time.Now(),
	}
	if err := s.store.Comparisons().Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating comparison: %w", err)
	}

	s.logger.Info("comparison submitted",
		slog.String("id", c.ID),
		slog.String("study", studyID),
		slog.String("choice", c.Choice),
	)
	return c, nil
}

// Queue returns the researcher's pending adjudications, oldest first.
func (s *ComparisonService) Queue(ctx context.Context, researcherID string) ([]model.StudyComparison, error) {
	return s.store.Comparisons().ListPendingByResearcher(ctx, researcherID)
}

// Adjudicate records the reviewer's decision on a pending comparison.
func (s *ComparisonService) Adjudicate(ctx context.Context, callerID string, callerRole model.Role, comparisonID string, in AdjudicationInput) (*model.StudyComparison, error) {
	status := model.ReviewStatus(in.ReviewStatus)
	if status != model.ReviewAgreed && status != model.ReviewOverridden {
		return nil, apperror.ValidationFailed("reviewStatus", "reviewStatus must be agreed or overridden")
	}

	c, err := s.store.Comparisons().GetByID(ctx, comparisonID)
	if err != nil {
		return nil, err
	}
	study, err := s.store.Studies().GetByID(ctx, c.StudyID)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleAdmin && study.ResearcherID != callerID {
		return nil, apperror.Forbidden("only the owning researcher can adjudicate this comparison")
	}
	if c.ReviewStatus != model.ReviewPending {
		return nil, apperror.Conflict("comparison", comparisonID)
	}

	now := time.Now()
	c.ReviewStatus = status
	c.Decision = in.Decision
	c.ReviewNotes = in.ReviewNotes
	if in.GroundTruth != nil {
		c.GroundTruth = in.GroundTruth
	}
	c.ReviewedAt = &now
	if err := s.store.Comparisons().Update(ctx, c); err != nil {
		return nil, fmt.Errorf("adjudicating comparison: %w", err)
	}
	return c, nil
}
