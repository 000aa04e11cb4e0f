package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyweave/studyweave/internal/model"
)

func TestBuildNotifications_DeduplicatesAcrossSources(t *testing.T) {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	submitted := now.Add(-time.Hour)

	assignment := model.CompetencyAssignment{
		ID:          "ca1",
		StudyID:     "s1",
		Status:      model.AssignmentSubmitted,
		SubmittedAt: &submitted,
	}

	// The same assignment arrives nested inside the enrollment and again in
	// the standalone list; the dedup key must collapse the two.
	enrollments := []model.StudyParticipant{{
		ID:                   "e1",
		StudyID:              "s1",
		User:                 &model.User{Name: "Ada"},
		CompetencyAssignment: &assignment,
	}}

	notices := BuildNotifications(enrollments, []model.CompetencyAssignment{assignment}, nil, now)

	require.Len(t, notices, 1)
	assert.Equal(t, NoticeCompetency, notices[0].Type)
	assert.Equal(t, "ca1", notices[0].EntityID)
	assert.Equal(t, "submitted", notices[0].Status)
	assert.True(t, notices[0].Timestamp.Equal(submitted))
}

func TestBuildNotifications_SubmittedAndReviewedAreDistinctNotices(t *testing.T) {
	now := time.Now()
	submitted := now.Add(-2 * time.Hour)
	reviewed := now.Add(-time.Hour)

	assignments := []model.CompetencyAssignment{
		{ID: "ca1", StudyID: "s1", Status: model.AssignmentSubmitted, SubmittedAt: &submitted},
		{ID: "ca1", StudyID: "s1", Status: model.AssignmentReviewed, SubmittedAt: &submitted, ReviewedAt: &reviewed},
	}

	notices := BuildNotifications(nil, assignments, nil, now)

	// Same entity, different status: two notices, reviewed first (newer).
	require.Len(t, notices, 2)
	assert.Equal(t, "reviewed", notices[0].Status)
	assert.Equal(t, "submitted", notices[1].Status)
}

func TestBuildNotifications_TimestampFallbackChain(t *testing.T) {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	updated := now.Add(-3 * time.Hour)
	submitted := now.Add(-2 * time.Hour)
	reviewed := now.Add(-1 * time.Hour)

	tests := []struct {
		name string
		a    model.CompetencyAssignment
		want time.Time
	}{
		{
			name: "reviewed wins",
			a: model.CompetencyAssignment{
				ID: "a", Status: model.AssignmentReviewed,
				SubmittedAt: &submitted, ReviewedAt: &reviewed,
				UpdatedAt: updated,
			},
			want: reviewed,
		},
		{
			name: "submitted next",
			a: model.CompetencyAssignment{
				ID: "b", Status: model.AssignmentSubmitted,
				SubmittedAt: &submitted, UpdatedAt: updated,
			},
			want: submitted,
		},
		{
			name: "updated next",
			a: model.CompetencyAssignment{
				ID: "c", Status: model.AssignmentSubmitted,
				UpdatedAt: updated,
			},
			want: updated,
		},
		{
			name: "now as last resort",
			a:    model.CompetencyAssignment{ID: "d", Status: model.AssignmentSubmitted},
			want: now,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notices := BuildNotifications(nil, []model.CompetencyAssignment{tt.a}, nil, now)
			require.Len(t, notices, 1)
			assert.True(t, notices[0].Timestamp.Equal(tt.want))
		})
	}
}

func TestBuildNotifications_SortedNewestFirstWithStableTies(t *testing.T) {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	older := now.Add(-time.Hour)

	assessments := []model.ArtifactAssessment{
		{ID: "z", StudyID: "s1", AssessmentType: "solid", Status: model.AssessmentSubmitted, SubmittedAt: &older},
		{ID: "a", StudyID: "s1", AssessmentType: "clone", Status: model.AssessmentSubmitted, SubmittedAt: &older},
		{ID: "m", StudyID: "s1", AssessmentType: "stage1", Status: model.AssessmentSubmitted, SubmittedAt: &now},
	}

	notices := BuildNotifications(nil, nil, assessments, now)

	require.Len(t, notices, 3)
	assert.Equal(t, "m", notices[0].EntityID)
	// Equal timestamps order by key, so the output is deterministic.
	assert.Equal(t, "a", notices[1].EntityID)
	assert.Equal(t, "z", notices[2].EntityID)
}

func TestBuildNotifications_IgnoresDraftsAndPendingWork(t *testing.T) {
	now := time.Now()

	enrollments := []model.StudyParticipant{{
		ID:      "e1",
		StudyID: "s1",
		CompetencyAssignment: &model.CompetencyAssignment{
			ID: "ca1", Status: model.AssignmentInProgress,
		},
		ArtifactAssessments: []model.ArtifactAssessment{
			{ID: "aa1", Status: model.AssessmentDraft, AssessmentType: "solid"},
		},
	}}
	assessments := []model.ArtifactAssessment{
		{ID: "aa1", StudyID: "s1", AssessmentType: "solid", Status: model.AssessmentDraft},
	}

	notices := BuildNotifications(enrollments, nil, assessments, now)
	assert.Empty(t, notices)
}

func TestBuildNotifications_CompletedEnrollmentUsesBestSubmissionTime(t *testing.T) {
	now := time.Now()
	first := now.Add(-3 * time.Hour)
	second := now.Add(-1 * time.Hour)

	enrollments := []model.StudyParticipant{{
		ID:                  "e1",
		StudyID:             "s1",
		ParticipationStatus: model.ParticipationInProgress, // stale flag
		User:                &model.User{Name: "Grace"},
		ArtifactAssessments: []model.ArtifactAssessment{
			submittedAssessment("solid", first),
			submittedAssessment("clone", second),
		},
	}}

	notices := BuildNotifications(enrollments, nil, nil, now)

	require.Len(t, notices, 1)
	assert.Equal(t, NoticeStudy, notices[0].Type)
	assert.Equal(t, "completed", notices[0].Status)
	assert.Equal(t, "Grace", notices[0].ParticipantName)
	assert.True(t, notices[0].Timestamp.Equal(second))
}
