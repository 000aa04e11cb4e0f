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

func newStudyFixture(t *testing.T) (*StudyService, repository.Store, *model.User) {
	t.Helper()
	store := newTestStore(t)
	svc := NewStudyService(store, testLogger())
	researcher := seedUser(t, store, model.RoleResearcher)
	return svc, store, researcher
}

func TestStudyList_ScopedByRole(t *testing.T) {
	svc, store, researcher := newStudyFixture(t)
	ctx := context.Background()

	mine := seedStudy(t, store, researcher.ID, model.StudyActive)
	other := seedUser(t, store, model.RoleResearcher)
	theirs := seedStudy(t, store, other.ID, model.StudyDraft)

	// Researchers see only their own studies.
	list, err := svc.List(ctx, researcher.ID, model.RoleResearcher, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	// Admins see every study regardless of owner.
	admin := seedUser(t, store, model.RoleAdmin)
	list, err = svc.List(ctx, admin.ID, model.RoleAdmin, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{mine.ID, theirs.ID}, ids)

	// Participants fall back to the public listing; neither study is public.
	participant := seedUser(t, store, model.RoleParticipant)
	list, err = svc.List(ctx, participant.ID, model.RoleParticipant, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStudyCreate_WithChildren(t *testing.T) {
	svc, store, researcher := newStudyFixture(t)
	ctx := context.Background()

	participant := seedUser(t, store, model.RoleParticipant)
	artifact := &model.Artifact{ID: "art1", OwnerID: researcher.ID, Title: "sample"}
	require.NoError(t, store.Artifacts().Create(ctx, artifact))

	comp := &model.CompetencyAssessment{ID: "comp1", ResearcherID: researcher.ID, Title: "Screen"}
	require.NoError(t, store.Competency().CreateAssessment(ctx, comp))

	study, err := svc.Create(ctx, researcher.ID, CreateStudyInput{
		Title:             "Maintainability study",
		Artifacts:         []StudyArtifactInput{{ArtifactID: artifact.ID, DisplayLabel: "Sample A", Position: 1}},
		ParticipantEmails: []string{participant.Email},
		CompetencyID:      comp.ID,
		Metadata:          model.JSONMap{model.MetaDefaultArtifactMode: "solid"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StudyDraft, study.Status)
	require.Len(t, study.Artifacts, 1)

	enrollments, err := store.Enrollments().ListByStudy(ctx, study.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, model.ParticipationInvited, enrollments[0].ParticipationStatus)
	assert.Equal(t, "solid", enrollments[0].NextMode)

	assignment, err := store.Competency().GetAssignmentByEnrollment(ctx, enrollments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentPending, assignment.Status)
}

func TestStudyCreate_UnknownParticipantRollsBack(t *testing.T) {
	svc, store, researcher := newStudyFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, researcher.ID, CreateStudyInput{
		Title:             "Doomed study",
		ParticipantEmails: []string{"nobody@example.test"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	studies, err := store.Studies().ListByResearcher(ctx, researcher.ID, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, studies, "the study row must not survive the failed enrollment")
}

func TestStudyTransitions(t *testing.T) {
	svc, store, researcher := newStudyFixture(t)
	ctx := context.Background()
	study := seedStudy(t, store, researcher.ID, model.StudyDraft)

	_, err := svc.Transition(ctx, researcher.ID, model.RoleResearcher, study.ID, model.StudyCompleted)
	assert.ErrorIs(t, err, apperror.ErrValidation, "draft cannot jump to completed")

	active, err := svc.Transition(ctx, researcher.ID, model.RoleResearcher, study.ID, model.StudyActive)
	require.NoError(t, err)
	assert.Equal(t, model.StudyActive, active.Status)

	archived, err := svc.Transition(ctx, researcher.ID, model.RoleResearcher, study.ID, model.StudyArchived)
	require.NoError(t, err)
	assert.Equal(t, model.StudyArchived, archived.Status)

	// Archiving leaves an audit row.
	logs, err := store.ActionLogs().ListByUser(ctx, researcher.ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "archive_study", logs[0].Action)

	_, err = svc.Transition(ctx, researcher.ID, model.RoleResearcher, study.ID, model.StudyArchived)
	assert.ErrorIs(t, err, apperror.ErrValidation, "archive is terminal")
}

func TestStudyUpdate_ArchivedIsFrozen(t *testing.T) {
	svc, store, researcher := newStudyFixture(t)
	ctx := context.Background()
	study := seedStudy(t, store, researcher.ID, model.StudyArchived)

	_, err := svc.Update(ctx, researcher.ID, model.RoleResearcher, study.ID, UpdateStudyInput{Title: "New name"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestStudyDelete_DraftsOnly(t *testing.T) {
	svc, store, researcher := newStudyFixture(t)
	ctx := context.Background()

	active := seedStudy(t, store, researcher.ID, model.StudyActive)
	err := svc.Delete(ctx, researcher.ID, model.RoleResearcher, active.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	draft := seedStudy(t, store, researcher.ID, model.StudyDraft)
	require.NoError(t, svc.Delete(ctx, researcher.ID, model.RoleResearcher, draft.ID))

	_, err = store.Studies().GetByID(ctx, draft.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStudyOwnershipChecks(t *testing.T) {
	svc, store, researcher := newStudyFixture(t)
	ctx := context.Background()
	study := seedStudy(t, store, researcher.ID, model.StudyDraft)

	rival := seedUser(t, store, model.RoleResearcher)
	_, err := svc.Update(ctx, rival.ID, model.RoleResearcher, study.ID, UpdateStudyInput{Title: "Hijacked"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	// Admins bypass ownership.
	admin := seedUser(t, store, model.RoleAdmin)
	_, err = svc.Update(ctx, admin.ID, model.RoleAdmin, study.ID, UpdateStudyInput{Title: "Renamed by admin"})
	require.NoError(t, err)
}

func TestStudyGet_Visibility(t *testing.T) {
	svc, store, researcher := newStudyFixture(t)
	ctx := context.Background()

	private := seedStudy(t, store, researcher.ID, model.StudyActive)
	outsider := seedUser(t, store, model.RoleParticipant)

	_, err := svc.Get(ctx, outsider.ID, model.RoleParticipant, private.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	// Enrolling grants access.
	seedEnrollment(t, store, private.ID, outsider.ID, model.ParticipationInvited)
	_, err = svc.Get(ctx, outsider.ID, model.RoleParticipant, private.ID)
	require.NoError(t, err)

	// Public studies are readable by anyone.
	public := &model.Study{
		ID:           "pub1",
		ResearcherID: researcher.ID,
		Title:        "Open study",
		Status:       model.StudyActive,
		Metadata:     model.JSONMap{model.MetaIsPublic: true},
	}
	require.NoError(t, store.Studies().Create(ctx, public))
	stranger := seedUser(t, store, model.RoleGuest)
	_, err = svc.Get(ctx, stranger.ID, model.RoleGuest, public.ID)
	require.NoError(t, err)
}

func TestSaveCheckpoint(t *testing.T) {
	svc, store, researcher := newStudyFixture(t)
	ctx := context.Background()

	study := seedStudy(t, store, researcher.ID, model.StudyActive)
	participant := seedUser(t, store, model.RoleParticipant)
	e := seedEnrollment(t, store, study.ID, participant.ID, model.ParticipationInvited)

	_, err := svc.SaveCheckpoint(ctx, participant.ID, study.ID, nil, "made-up-mode", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	updated, err := svc.SaveCheckpoint(ctx, participant.ID, study.ID,
		model.JSONMap{"elapsedSeconds": 90, "phase": "reading"}, "bug_stage", "sa1")
	require.NoError(t, err)

	assert.Equal(t, "stage1", updated.NextMode, "legacy alias normalized on write")
	assert.Equal(t, "sa1", updated.NextStudyArtifactID)
	assert.Equal(t, model.ParticipationInProgress, updated.ParticipationStatus)

	// The checkpoint JSON round-trips untouched.
	got, err := store.Enrollments().GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "reading", got.TimerCheckpoint.String("phase", ""))
}
