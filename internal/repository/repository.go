// Package repository declares the persistence interfaces the service layer
// programs against. The gormstore package provides the real implementation:
// Postgres in production, an embedded SQLite database in tests.
package repository

import (
	"context"

	"github.com/studyweave/studyweave/internal/model"
)

// ListOptions is shared pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// AssessmentFilter narrows artifact-assessment lists. Zero values mean
// "don't filter on this". EvaluatorUserID is mandatory for participant
// callers; the handler layer enforces that, the repository just applies it.
type AssessmentFilter struct {
	StudyID         string
	StudyArtifactID string
	EvaluatorUserID string
	AssessmentType  string
	Status          string
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*model.User, error)
	GetByResetToken(ctx context.Context, token string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type StudyRepository interface {
	Create(ctx context.Context, study *model.Study) error
	GetByID(ctx context.Context, id string) (*model.Study, error)
	ListByResearcher(ctx context.Context, researcherID string, opts ListOptions) ([]model.Study, error)
	// ListAll is the admin view: every study regardless of owner.
	ListAll(ctx context.Context, opts ListOptions) ([]model.Study, error)
	ListPublic(ctx context.Context, opts ListOptions) ([]model.Study, error)
	Update(ctx context.Context, study *model.Study) error
	Delete(ctx context.Context, id string) error

	AddArtifact(ctx context.Context, sa *model.StudyArtifact) error
	RemoveArtifact(ctx context.Context, id string) error
	GetStudyArtifact(ctx context.Context, id string) (*model.StudyArtifact, error)
	ListArtifacts(ctx context.Context, studyID string) ([]model.StudyArtifact, error)
}

type EnrollmentRepository interface {
	Create(ctx context.Context, e *model.StudyParticipant) error
	GetByID(ctx context.Context, id string) (*model.StudyParticipant, error)
	GetByStudyAndUser(ctx context.Context, studyID, userID string) (*model.StudyParticipant, error)
	// ListByUser returns the user's enrollments with Study, the competency
	// assignment (and its assessment), and all artifact assessments loaded,
	// which is everything the progress aggregator consumes.
	ListByUser(ctx context.Context, userID string) ([]model.StudyParticipant, error)
	ListByStudy(ctx context.Context, studyID string) ([]model.StudyParticipant, error)
	// ListByResearcher joins through studies owned by the researcher, loaded
	// like ListByUser. Feeds the researcher overview and notifications.
	ListByResearcher(ctx context.Context, researcherID string) ([]model.StudyParticipant, error)
	Update(ctx context.Context, e *model.StudyParticipant) error
	Delete(ctx context.Context, id string) error
}

type ArtifactRepository interface {
	Create(ctx context.Context, a *model.Artifact) error
	GetByID(ctx context.Context, id string) (*model.Artifact, error)
	ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]model.Artifact, error)
	Update(ctx context.Context, a *model.Artifact) error
	Delete(ctx context.Context, id string) error

	CreateCollection(ctx context.Context, c *model.ArtifactCollection) error
	GetCollection(ctx context.Context, id string) (*model.ArtifactCollection, error)
	ListCollections(ctx context.Context, ownerID string) ([]model.ArtifactCollection, error)
	DeleteCollection(ctx context.Context, id string) error

	CreateTag(ctx context.Context, t *model.Tag) error
	GetTag(ctx context.Context, id string) (*model.Tag, error)
	ListTags(ctx context.Context, ownerID string) ([]model.Tag, error)
	DeleteTag(ctx context.Context, id string) error
	AttachTag(ctx context.Context, artifactID, tagID string) error
	DetachTag(ctx context.Context, artifactID, tagID string) error
}

type CompetencyRepository interface {
	CreateAssessment(ctx context.Context, a *model.CompetencyAssessment) error
	GetAssessment(ctx context.Context, id string) (*model.CompetencyAssessment, error)
	ListAssessmentsByResearcher(ctx context.Context, researcherID string) ([]model.CompetencyAssessment, error)
	UpdateAssessment(ctx context.Context, a *model.CompetencyAssessment) error
	DeleteAssessment(ctx context.Context, id string) error

	CreateQuestions(ctx context.Context, qs []model.CompetencyQuestion) error
	UpdateQuestion(ctx context.Context, q *model.CompetencyQuestion) error
	DeleteQuestion(ctx context.Context, id string) error

	CreateAssignment(ctx context.Context, a *model.CompetencyAssignment) error
	GetAssignment(ctx context.Context, id string) (*model.CompetencyAssignment, error)
	GetAssignmentByEnrollment(ctx context.Context, enrollmentID string) (*model.CompetencyAssignment, error)
	// ListReviewedByAssessment feeds the report generator: reviewed
	// assignments only, with the user loaded for anonymized labeling.
	ListReviewedByAssessment(ctx context.Context, assessmentID string) ([]model.CompetencyAssignment, error)
	ListAssignmentsByResearcher(ctx context.Context, researcherID string) ([]model.CompetencyAssignment, error)
	UpdateAssignment(ctx context.Context, a *model.CompetencyAssignment) error
}

type AssessmentRepository interface {
	Create(ctx context.Context, a *model.ArtifactAssessment) error
	CreateItems(ctx context.Context, items []model.ArtifactAssessmentItem) error
	GetByID(ctx context.Context, id string) (*model.ArtifactAssessment, error)
	List(ctx context.Context, filter AssessmentFilter, opts ListOptions) ([]model.ArtifactAssessment, error)
	Update(ctx context.Context, a *model.ArtifactAssessment) error
	ReplaceItems(ctx context.Context, assessmentID string, items []model.ArtifactAssessmentItem) error
}

type ComparisonRepository interface {
	Create(ctx context.Context, c *model.StudyComparison) error
	GetByID(ctx context.Context, id string) (*model.StudyComparison, error)
	ListByStudy(ctx context.Context, studyID string) ([]model.StudyComparison, error)
	// ListPendingByResearcher returns submitted-but-unreviewed comparisons
	// across all of the researcher's studies, i.e. the adjudication queue.
	ListPendingByResearcher(ctx context.Context, researcherID string) ([]model.StudyComparison, error)
	Update(ctx context.Context, c *model.StudyComparison) error
}

type ActionLogRepository interface {
	Create(ctx context.Context, entry *model.ActionLog) error
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.ActionLog, error)
}

// Store bundles every repository plus transaction control. Transaction runs
// fn against a Store bound to one database transaction; returning an error
// rolls everything back, returning nil commits. Nested calls reuse the outer
// transaction.
type Store interface {
	Users() UserRepository
	Studies() StudyRepository
	Enrollments() EnrollmentRepository
	Artifacts() ArtifactRepository
	Competency() CompetencyRepository
	Assessments() AssessmentRepository
	Comparisons() ComparisonRepository
	ActionLogs() ActionLogRepository

	Transaction(ctx context.Context, fn func(Store) error) error
}
