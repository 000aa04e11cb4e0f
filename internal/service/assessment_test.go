package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

func newAssessmentFixture(t *testing.T) (*AssessmentService, repository.Store, *captureEmailer, *model.StudyParticipant, *model.StudyArtifact) {
	t.Helper()
	store := newTestStore(t)
	emailer := &captureEmailer{}
	svc := NewAssessmentService(store, emailer, testLogger())

	researcher := seedUser(t, store, model.RoleResearcher)
	participant := seedUser(t, store, model.RoleParticipant)
	study := seedStudy(t, store, researcher.ID, model.StudyActive)
	sa := seedStudyArtifact(t, store, study.ID, researcher.ID)
	enrollment := seedEnrollment(t, store, study.ID, participant.ID, model.ParticipationInProgress)
	return svc, store, emailer, enrollment, sa
}

func TestAssessmentCreate_MissingFieldsWriteNothing(t *testing.T) {
	svc, store, _, enrollment, sa := newAssessmentFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    CreateAssessmentInput
		field string
	}{
		{"missing studyId", CreateAssessmentInput{StudyArtifactID: sa.ID, AssessmentType: "solid"}, "studyId"},
		{"missing studyArtifactId", CreateAssessmentInput{StudyID: sa.StudyID, AssessmentType: "solid"}, "studyArtifactId"},
		{"missing assessmentType", CreateAssessmentInput{StudyID: sa.StudyID, StudyArtifactID: sa.ID}, "assessmentType"},
		{"unknown assessmentType", CreateAssessmentInput{StudyID: sa.StudyID, StudyArtifactID: sa.ID, AssessmentType: "vibes"}, "assessmentType"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, enrollment.UserID, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}

	list, err := store.Assessments().List(ctx, repository.AssessmentFilter{}, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list, "failed creates must leave no partial rows")
}

func TestAssessmentCreate_MismatchedStudyArtifactRollsBack(t *testing.T) {
	svc, store, _, enrollment, sa := newAssessmentFixture(t)
	ctx := context.Background()

	other := seedStudy(t, store, seedUser(t, store, model.RoleResearcher).ID, model.StudyActive)

	_, err := svc.Create(ctx, enrollment.UserID, CreateAssessmentInput{
		StudyID:         other.ID, // artifact belongs to a different study
		StudyArtifactID: sa.ID,
		AssessmentType:  "solid",
		Items:           []AssessmentItemInput{{Label: "finding"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	list, err := store.Assessments().List(ctx, repository.AssessmentFilter{}, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAssessmentCreate_PersistsItemsAndResolvesEnrollment(t *testing.T) {
	svc, _, _, enrollment, sa := newAssessmentFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, enrollment.UserID, CreateAssessmentInput{
		StudyID:         sa.StudyID,
		StudyArtifactID: sa.ID,
		AssessmentType:  "bug_stage", // legacy alias
		Payload:         model.JSONMap{"notes": "initial pass"},
		Items: []AssessmentItemInput{
			{Label: "off-by-one in loop", Verdict: "bug"},
			{Label: "unchecked error", Verdict: "bug", Position: 5},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.ModeStage1, a.AssessmentType, "alias normalizes to stage1")
	assert.Equal(t, model.AssessmentDraft, a.Status)
	assert.Equal(t, enrollment.ID, a.EnrollmentID)
	require.Len(t, a.Items, 2)
	assert.Equal(t, 1, a.Items[0].Position)
	assert.Equal(t, 5, a.Items[1].Position)
}

func TestAssessmentCreate_GuestWithoutEnrollment(t *testing.T) {
	svc, store, _, _, sa := newAssessmentFixture(t)
	ctx := context.Background()

	guest := seedUser(t, store, model.RoleGuest)
	a, err := svc.Create(ctx, guest.ID, CreateAssessmentInput{
		StudyID:         sa.StudyID,
		StudyArtifactID: sa.ID,
		AssessmentType:  "clone",
	})
	require.NoError(t, err)
	assert.Empty(t, a.EnrollmentID)
}

func TestAssessmentSubmit_CompletesEnrollmentAndNotifies(t *testing.T) {
	svc, store, emailer, enrollment, sa := newAssessmentFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, enrollment.UserID, CreateAssessmentInput{
		StudyID:         sa.StudyID,
		StudyArtifactID: sa.ID,
		AssessmentType:  "solid",
	})
	require.NoError(t, err)

	submitted, err := svc.Submit(ctx, enrollment.UserID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssessmentSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	e, err := store.Enrollments().GetByID(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ParticipationCompleted, e.ParticipationStatus)
	assert.Equal(t, 100, e.ProgressPercent)

	mails := emailer.all()
	require.Len(t, mails, 1)
	assert.Contains(t, mails[0].Subject, "submitted")
}

func TestAssessmentSubmit_WithdrawnEnrollmentKeepsStatus(t *testing.T) {
	svc, store, _, enrollment, sa := newAssessmentFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, enrollment.UserID, CreateAssessmentInput{
		StudyID:         sa.StudyID,
		StudyArtifactID: sa.ID,
		AssessmentType:  "solid",
	})
	require.NoError(t, err)

	enrollment.ParticipationStatus = model.ParticipationWithdrawn
	require.NoError(t, store.Enrollments().Update(ctx, enrollment))

	_, err = svc.Submit(ctx, enrollment.UserID, a.ID)
	require.NoError(t, err)

	e, err := store.Enrollments().GetByID(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ParticipationWithdrawn, e.ParticipationStatus)
}

func TestAssessmentSubmit_OnlyOnceAndOnlyByEvaluator(t *testing.T) {
	svc, store, _, enrollment, sa := newAssessmentFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, enrollment.UserID, CreateAssessmentInput{
		StudyID:         sa.StudyID,
		StudyArtifactID: sa.ID,
		AssessmentType:  "snapshot",
	})
	require.NoError(t, err)

	stranger := seedUser(t, store, model.RoleParticipant)
	_, err = svc.Submit(ctx, stranger.ID, a.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Submit(ctx, enrollment.UserID, a.ID)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, enrollment.UserID, a.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAssessmentUpdateDraft_SubmittedIsImmutable(t *testing.T) {
	svc, _, _, enrollment, sa := newAssessmentFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, enrollment.UserID, CreateAssessmentInput{
		StudyID:         sa.StudyID,
		StudyArtifactID: sa.ID,
		AssessmentType:  "custom",
		Items:           []AssessmentItemInput{{Label: "original"}},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateDraft(ctx, enrollment.UserID, a.ID,
		model.JSONMap{"notes": "edited"},
		[]AssessmentItemInput{{Label: "replaced"}, {Label: "added"}})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	assert.Equal(t, "edited", updated.Payload.String("notes", ""))

	_, err = svc.Submit(ctx, enrollment.UserID, a.ID)
	require.NoError(t, err)

	_, err = svc.UpdateDraft(ctx, enrollment.UserID, a.ID, model.JSONMap{"notes": "late"}, nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAssessmentList_ParticipantIsPinnedToOwnRows(t *testing.T) {
	svc, store, _, enrollment, sa := newAssessmentFixture(t)
	ctx := context.Background()

	other := seedUser(t, store, model.RoleParticipant)
	seedEnrollment(t, store, sa.StudyID, other.ID, model.ParticipationInProgress)

	_, err := svc.Create(ctx, enrollment.UserID, CreateAssessmentInput{
		StudyID: sa.StudyID, StudyArtifactID: sa.ID, AssessmentType: "solid",
	})
	require.NoError(t, err)
	theirs, err := svc.Create(ctx, other.ID, CreateAssessmentInput{
		StudyID: sa.StudyID, StudyArtifactID: sa.ID, AssessmentType: "solid",
	})
	require.NoError(t, err)

	// The query asks for the other participant's rows; the scope pin wins.
	list, err := svc.List(ctx, enrollment.UserID, model.RoleParticipant,
		repository.AssessmentFilter{EvaluatorUserID: other.ID}, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, enrollment.UserID, list[0].EvaluatorUserID)
	assert.NotEqual(t, theirs.ID, list[0].ID)
}

func TestAssessmentList_ResearcherNeedsOwnedStudy(t *testing.T) {
	svc, store, _, enrollment, sa := newAssessmentFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, enrollment.UserID, CreateAssessmentInput{
		StudyID: sa.StudyID, StudyArtifactID: sa.ID, AssessmentType: "solid",
	})
	require.NoError(t, err)

	study, err := store.Studies().GetByID(ctx, sa.StudyID)
	require.NoError(t, err)

	_, err = svc.List(ctx, study.ResearcherID, model.RoleResearcher,
		repository.AssessmentFilter{}, repository.ListOptions{})
	assert.ErrorIs(t, err, apperror.ErrValidation, "studyId is mandatory for researchers")

	rival := seedUser(t, store, model.RoleResearcher)
	_, err = svc.List(ctx, rival.ID, model.RoleResearcher,
		repository.AssessmentFilter{StudyID: sa.StudyID}, repository.ListOptions{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	list, err := svc.List(ctx, study.ResearcherID, model.RoleResearcher,
		repository.AssessmentFilter{StudyID: sa.StudyID}, repository.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
