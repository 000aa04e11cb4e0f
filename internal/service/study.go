package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

// StudyArtifactInput attaches one artifact when creating or editing a study.
type StudyArtifactInput struct {
	ArtifactID   string `json:"artifactId"`
	DisplayLabel string `json:"displayLabel"`
	Position     int    `json:"position"`
}

// CreateStudyInput is the create-with-children payload: the study row plus
// its artifacts, invited participant emails, and an optional competency
// assessment assigned to every invitee. Everything lands in one transaction.
type CreateStudyInput struct {
	Title             string               `json:"title"`
	Description       string               `json:"description"`
	Criteria          model.JSONMap        `json:"criteria"`
	Metadata          model.JSONMap        `json:"metadata"`
	Artifacts         []StudyArtifactInput `json:"artifacts"`
	ParticipantEmails []string             `json:"participantEmails"`
	CompetencyID      string               `json:"competencyAssessmentId"`
}

// StudyService owns the study lifecycle: creation with children, status
// transitions, enrollment management, and the audit trail for destructive
// actions.
type StudyService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewStudyService(store repository.Store, logger *slog.Logger) *StudyService {
	return &StudyService{store: store, logger: logger}
}

// Create builds the study and all requested children atomically: if any
// artifact reference or participant email is bad, nothing is written.
func (s *StudyService) Create(ctx context.Context, researcherID string, in CreateStudyInput) (*model.Study, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "study title is required")
	}

	study := &model.Study{
		ID:           xid.New().String(),
		ResearcherID: researcherID,
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		Criteria:     in.Criteria,
		Metadata:     in.Metadata,
		Status:       model.StudyDraft,
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Studies().Create(ctx, study); err != nil {
			return fmt.Errorf("creating study: %w", err)
		}

		for _, a := range in.Artifacts {
			if _, err := tx.Artifacts().GetByID(ctx, a.ArtifactID); err != nil {
				return err
			}
			sa := &model.StudyArtifact{
				ID:           xid.New().String(),
				StudyID:      study.ID,
				ArtifactID:   a.ArtifactID,
				DisplayLabel: a.DisplayLabel,
				Position:     a.Position,
			}
			if err := tx.Studies().AddArtifact(ctx, sa); err != nil {
				return fmt.Errorf("attaching artifact: %w", err)
			}
		}

		if in.CompetencyID != "" {
			if _, err := tx.Competency().GetAssessment(ctx, in.CompetencyID); err != nil {
				return err
			}
		}

		for _, email := range in.ParticipantEmails {
			user, err := tx.Users().GetByEmail(ctx, email)
			if err != nil {
				return apperror.ValidationFailed("participantEmails",
					fmt.Sprintf("no account found for %s", email))
			}
			if _, err := s.enroll(ctx, tx, study, user, in.CompetencyID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("study created",
		slog.String("id", study.ID),
		slog.String("researcher", researcherID),
		slog.Int("artifacts", len(in.Artifacts)),
		slog.Int("participants", len(in.ParticipantEmails)),
	)
	return s.store.Studies().GetByID(ctx, study.ID)
}

// enroll creates the enrollment row and, when a competency assessment is
// set, its pending assignment. Runs inside the caller's transaction.
func (s *StudyService) enroll(ctx context.Context, tx repository.Store, study *model.Study, user *model.User, competencyID string) (*model.StudyParticipant, error) {
	if _, err := tx.Enrollments().GetByStudyAndUser(ctx, study.ID, user.ID); err == nil {
		return nil, apperror.Conflict("enrollment", user.Email)
	}

	e := &model.StudyParticipant{
		ID:                  xid.New().String(),
		StudyID:             study.ID,
		UserID:              user.ID,
		ParticipationStatus: model.ParticipationInvited,
		NextMode:            study.DefaultMode(),
	}
	if err := tx.Enrollments().Create(ctx, e); err != nil {
		return nil, fmt.Errorf("creating enrollment: %w", err)
	}

	if competencyID != "" {
		assignment := &model.CompetencyAssignment{
			ID:           xid.New().String(),
			AssessmentID: competencyID,
			StudyID:      study.ID,
			EnrollmentID: e.ID,
			UserID:       user.ID,
			Status:       model.AssignmentPending,
		}
		if err := tx.Competency().CreateAssignment(ctx, assignment); err != nil {
			return nil, fmt.Errorf("creating competency assignment: %w", err)
		}
	}
	return e, nil
}

// Get returns a study the caller is allowed to see: the owning researcher,
// an admin, an enrolled participant, or anyone for a public study.
func (s *StudyService) Get(ctx context.Context, callerID string, callerRole model.Role, id string) (*model.Study, error) {
	study, err := s.store.Studies().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.canRead(ctx, callerID, callerRole, study) {
		return study, nil
	}
	return nil, apperror.Forbidden("you do not have access to this study")
}

func (s *StudyService) canRead(ctx context.Context, callerID string, callerRole model.Role, study *model.Study) bool {
	if callerRole == model.RoleAdmin || study.ResearcherID == callerID || study.IsPublic() {
		return true
	}
	_, err := s.store.Enrollments().GetByStudyAndUser(ctx, study.ID, callerID)
	return err == nil
}

// List returns the researcher's own studies, every study for admins, or
// active public studies for everyone else.
func (s *StudyService) List(ctx context.Context, callerID string, callerRole model.Role, opts repository.ListOptions) ([]model.Study, error) {
	switch callerRole {
	case model.RoleAdmin:
		return s.store.Studies().ListAll(ctx, opts)
	case model.RoleResearcher:
		return s.store.Studies().ListByResearcher(ctx, callerID, opts)
	default:
		return s.store.Studies().ListPublic(ctx, opts)
	}
}

// UpdateStudyInput carries the editable study fields; nil/empty means leave
// unchanged.
type UpdateStudyInput struct {
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Criteria    model.JSONMap `json:"criteria"`
	Metadata    model.JSONMap `json:"metadata"`
}

// Update edits study fields. Only the owner (or an admin) may edit, and
// archived studies are frozen.
func (s *StudyService) Update(ctx context.Context, callerID string, callerRole model.Role, id string, in UpdateStudyInput) (*model.Study, error) {
	study, err := s.requireOwner(ctx, callerID, callerRole, id)
	if err != nil {
		return nil, err
	}
	if study.Status == model.StudyArchived {
		return nil, apperror.Forbidden("archived studies cannot be edited")
	}

	if t := strings.TrimSpace(in.Title); t != "" {
		study.Title = t
	}
	if in.Description != nil {
		study.Description = *in.Description
	}
	if in.Criteria != nil {
		study.Criteria = in.Criteria
	}
	if in.Metadata != nil {
		study.Metadata = in.Metadata
	}
	if err := s.store.Studies().Update(ctx, study); err != nil {
		return nil, fmt.Errorf("updating study: %w", err)
	}
	return study, nil
}

// Transition moves the study along its lifecycle. Archiving writes an audit
// row in the same transaction as the status change.
func (s *StudyService) Transition(ctx context.Context, callerID string, callerRole model.Role, id string, next model.StudyStatus) (*model.Study, error) {
	study, err := s.requireOwner(ctx, callerID, callerRole, id)
	if err != nil {
		return nil, err
	}
	if !study.Status.CanTransitionTo(next) {
		return nil, apperror.ValidationFailed("status",
			fmt.Sprintf("cannot transition study from %s to %s", study.Status, next))
	}

	prev := study.Status
	study.Status = next
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Studies().Update(ctx, study); err != nil {
			return fmt.Errorf("updating study status: %w", err)
		}
		if next == model.StudyArchived {
			return tx.ActionLogs().Create(ctx, &model.ActionLog{
				ID:         xid.New().String(),
				UserID:     callerID,
				Action:     "archive_study",
				EntityType: "study",
				EntityID:   study.ID,
				Detail:     fmt.Sprintf("archived from %s", prev),
			})
		}
		return nil
	})
	if err != nil {
		study.Status = prev
		return nil, err
	}
	return study, nil
}

// Delete removes a study outright. Allowed for drafts only; anything that
// has run is archived instead, keeping submissions referable. The deletion
// is audited in the same transaction.
func (s *StudyService) Delete(ctx context.Context, callerID string, callerRole model.Role, id string) error {
	study, err := s.requireOwner(ctx, callerID, callerRole, id)
	if err != nil {
		return err
	}
	if study.Status != model.StudyDraft {
		return apperror.ValidationFailed("status", "only draft studies can be deleted; archive instead")
	}

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Studies().Delete(ctx, id); err != nil {
			return err
		}
		return tx.ActionLogs().Create(ctx, &model.ActionLog{
			ID:         xid.New().String(),
			UserID:     callerID,
			Action:     "delete_study",
			EntityType: "study",
			EntityID:   id,
			Detail:     study.Title,
		})
	})
}

// AddArtifact attaches an artifact to an existing study.
func (s *StudyService) AddArtifact(ctx context.Context, callerID string, callerRole model.Role, studyID string, in StudyArtifactInput) (*model.StudyArtifact, error) {
	if _, err := s.requireOwner(ctx, callerID, callerRole, studyID); err != nil {
		return nil, err
	}
	if _, err := s.store.Artifacts().GetByID(ctx, in.ArtifactID); err != nil {
		return nil, err
	}
	sa := &model.StudyArtifact{
		ID:           xid.New().String(),
		StudyID:      studyID,
		ArtifactID:   in.ArtifactID,
		DisplayLabel: in.DisplayLabel,
		Position:     in.Position,
	}
	if err := s.store.Studies().AddArtifact(ctx, sa); err != nil {
		return nil, fmt.Errorf("attaching artifact: %w", err)
	}
	return sa, nil
}

// RemoveArtifact detaches a study artifact.
func (s *StudyService) RemoveArtifact(ctx context.Context, callerID string, callerRole model.Role, studyID, studyArtifactID string) error {
	if _, err := s.requireOwner(ctx, callerID, callerRole, studyID); err != nil {
		return err
	}
	sa, err := s.store.Studies().GetStudyArtifact(ctx, studyArtifactID)
	if err != nil {
		return err
	}
	if sa.StudyID != studyID {
		return apperror.NotFound("study artifact", studyArtifactID)
	}
	return s.store.Studies().RemoveArtifact(ctx, studyArtifactID)
}

// Invite enrolls an existing account into the study, optionally assigning
// the competency screening.
func (s *StudyService) Invite(ctx context.Context, callerID string, callerRole model.Role, studyID, email, competencyID string) (*model.StudyParticipant, error) {
	study, err := s.requireOwner(ctx, callerID, callerRole, studyID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.ValidationFailed("email", fmt.Sprintf("no account found for %s", email))
	}

	var enrollment *model.StudyParticipant
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		enrollment, err = s.enroll(ctx, tx, study, user, competencyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

// RemoveParticipant deletes an enrollment from the study.
func (s *StudyService) RemoveParticipant(ctx context.Context, callerID string, callerRole model.Role, studyID, enrollmentID string) error {
	if _, err := s.requireOwner(ctx, callerID, callerRole, studyID); err != nil {
		return err
	}
	e, err := s.store.Enrollments().GetByID(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if e.StudyID != studyID {
		return apperror.NotFound("enrollment", enrollmentID)
	}
	return s.store.Enrollments().Delete(ctx, enrollmentID)
}

// SaveCheckpoint stores the participant's opaque timer checkpoint and next
// assignment pointer. The server never interprets the checkpoint JSON.
func (s *StudyService) SaveCheckpoint(ctx context.Context, userID, studyID string, checkpoint model.JSONMap, nextMode, nextStudyArtifactID string) (*model.StudyParticipant, error) {
	e, err := s.store.Enrollments().GetByStudyAndUser(ctx, studyID, userID)
	if err != nil {
		return nil, err
	}
	if nextMode != "" && !model.ValidMode(nextMode) {
		return nil, apperror.ValidationFailed("nextMode", fmt.Sprintf("unknown mode %q", nextMode))
	}

	if checkpoint != nil {
		e.TimerCheckpoint = checkpoint
	}
	if nextMode != "" {
		e.NextMode = string(model.NormalizeMode(nextMode))
	}
	if nextStudyArtifactID != "" {
		e.NextStudyArtifactID = nextStudyArtifactID
	}
	if e.ParticipationStatus == model.ParticipationInvited {
		e.ParticipationStatus = model.ParticipationInProgress
	}
	if err := s.store.Enrollments().Update(ctx, e); err != nil {
		return nil, fmt.Errorf("saving checkpoint: %w", err)
	}
	return e, nil
}

func (s *StudyService) requireOwner(ctx context.Context, callerID string, callerRole model.Role, studyID string) (*model.Study, error) {
	study, err := s.store.Studies().GetByID(ctx, studyID)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleAdmin && study.ResearcherID != callerID {
		return nil, apperror.Forbidden("only the owning researcher can modify this study")
	}
	return study, nil
}
