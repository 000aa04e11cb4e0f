package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/model"
)

func TestResearcherOverview_RollupAgreesWithParticipantView(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	researcher := seedUser(t, store, model.RoleResearcher)
	study := seedStudy(t, store, researcher.ID, model.StudyActive)
	sa := seedStudyArtifact(t, store, study.ID, researcher.ID)

	done := seedUser(t, store, model.RoleParticipant)
	working := seedUser(t, store, model.RoleParticipant)
	gone := seedUser(t, store, model.RoleParticipant)

	// "done" has a stale in_progress flag but a submitted assessment.
	doneEnrollment := seedEnrollment(t, store, study.ID, done.ID, model.ParticipationInProgress)
	seedEnrollment(t, store, study.ID, working.ID, model.ParticipationInProgress)
	seedEnrollment(t, store, study.ID, gone.ID, model.ParticipationWithdrawn)

	assessments := NewAssessmentService(store, &captureEmailer{}, testLogger())
	a, err := assessments.Create(ctx, done.ID, CreateAssessmentInput{
		StudyID: study.ID, StudyArtifactID: sa.ID, AssessmentType: "solid",
	})
	require.NoError(t, err)
	_, err = assessments.Submit(ctx, done.ID, a.ID)
	require.NoError(t, err)

	overview, err := NewResearcherService(store).Overview(ctx, researcher.ID)
	require.NoError(t, err)
	require.Len(t, overview, 1)

	row := overview[0]
	assert.Equal(t, 3, row.Enrolled)
	assert.Equal(t, 1, row.Completed)
	assert.Equal(t, 1, row.InProgress)
	assert.Equal(t, 1, row.Withdrawn)

	// The participant dashboard reports the same completion for the same
	// enrollment.
	details, err := NewParticipantService(store).Assignments(ctx, done.ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, doneEnrollment.ID, details[0].EnrollmentID)
	assert.Equal(t, model.ParticipationCompleted, details[0].ParticipationStatus)
	assert.Equal(t, 100, details[0].ProgressPercent)
}

func TestResearcherParticipants_OwnershipEnforced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	svc := NewResearcherService(store)

	researcher := seedUser(t, store, model.RoleResearcher)
	study := seedStudy(t, store, researcher.ID, model.StudyActive)
	participant := seedUser(t, store, model.RoleParticipant)
	seedEnrollment(t, store, study.ID, participant.ID, model.ParticipationInvited)

	rival := seedUser(t, store, model.RoleResearcher)
	_, err := svc.Participants(ctx, rival.ID, model.RoleResearcher, study.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	rows, err := svc.Participants(ctx, researcher.ID, model.RoleResearcher, study.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].User)
	assert.Equal(t, participant.ID, rows[0].User.ID)
}

func TestResearcherNotifications_EndToEnd(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	researcher := seedUser(t, store, model.RoleResearcher)
	study := seedStudy(t, store, researcher.ID, model.StudyActive)
	sa := seedStudyArtifact(t, store, study.ID, researcher.ID)
	participant := seedUser(t, store, model.RoleParticipant)
	seedEnrollment(t, store, study.ID, participant.ID, model.ParticipationInProgress)

	assessments := NewAssessmentService(store, &captureEmailer{}, testLogger())
	a, err := assessments.Create(ctx, participant.ID, CreateAssessmentInput{
		StudyID: study.ID, StudyArtifactID: sa.ID, AssessmentType: "clone",
	})
	require.NoError(t, err)
	_, err = assessments.Submit(ctx, participant.ID, a.ID)
	require.NoError(t, err)

	notices, err := NewResearcherService(store).Notifications(ctx, researcher.ID)
	require.NoError(t, err)

	// One artifact notice plus one completed-study notice, no duplicates.
	kinds := map[string]int{}
	for _, n := range notices {
		kinds[n.Type]++
	}
	assert.Equal(t, 1, kinds[NoticeArtifact])
	assert.Equal(t, 1, kinds[NoticeStudy])
	assert.Len(t, notices, 2)
}
