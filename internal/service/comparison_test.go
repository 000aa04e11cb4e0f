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

func newComparisonFixture(t *testing.T) (*ComparisonService, repository.Store, *model.Study, *model.User) {
	t.Helper()
	store := newTestStore(t)
	svc := NewComparisonService(store, testLogger())
	researcher := seedUser(t, store, model.RoleResearcher)
	study := seedStudy(t, store, researcher.ID, model.StudyActive)
	evaluator := seedUser(t, store, model.RoleParticipant)
	return svc, store, study, evaluator
}

func validComparison() ComparisonInput {
	return ComparisonInput{
		LeftArtifactID:  "artL",
		RightArtifactID: "artR",
		Choice:          "left",
		Confidence:      80,
		Rationale:       "clearer naming throughout",
	}
}

func TestComparisonSubmit_Validation(t *testing.T) {
	svc, _, study, evaluator := newComparisonFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*ComparisonInput)
	}{
		{"missing left", func(in *ComparisonInput) { in.LeftArtifactID = "" }},
		{"self comparison", func(in *ComparisonInput) { in.RightArtifactID = in.LeftArtifactID }},
		{"bad choice", func(in *ComparisonInput) { in.Choice = "both" }},
		{"confidence too high", func(in *ComparisonInput) { in.Confidence = 101 }},
		{"confidence negative", func(in *ComparisonInput) { in.Confidence = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validComparison()
			tt.mutate(&in)
			_, err := svc.Submit(ctx, evaluator.ID, study.ID, in)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestComparisonSubmit_ActiveStudiesOnly(t *testing.T) {
	svc, store, _, evaluator := newComparisonFixture(t)
	ctx := context.Background()

	researcher := seedUser(t, store, model.RoleResearcher)
	draft := seedStudy(t, store, researcher.ID, model.StudyDraft)

	_, err := svc.Submit(ctx, evaluator.ID, draft.ID, validComparison())
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAdjudicationFlow(t *testing.T) {
	svc, store, study, evaluator := newComparisonFixture(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, evaluator.ID, study.ID, validComparison())
	require.NoError(t, err)
	assert.Equal(t, model.ReviewPending, c.ReviewStatus)

	queue, err := svc.Queue(ctx, study.ResearcherID)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	rival := seedUser(t, store, model.RoleResearcher)
	_, err = svc.Adjudicate(ctx, rival.ID, model.RoleResearcher, c.ID, AdjudicationInput{ReviewStatus: "agreed"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Adjudicate(ctx, study.ResearcherID, model.RoleResearcher, c.ID, AdjudicationInput{ReviewStatus: "undecided"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	done, err := svc.Adjudicate(ctx, study.ResearcherID, model.RoleResearcher, c.ID, AdjudicationInput{
		ReviewStatus: "overridden",
		Decision:     "right",
		ReviewNotes:  "ground truth favors the right artifact",
		GroundTruth:  model.JSONMap{"winner": "right"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReviewOverridden, done.ReviewStatus)
	require.NotNil(t, done.ReviewedAt)

	// Adjudicated comparisons leave the queue and cannot be re-adjudicated.
	queue, err = svc.Queue(ctx, study.ResearcherID)
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = svc.Adjudicate(ctx, study.ResearcherID, model.RoleResearcher, c.ID, AdjudicationInput{ReviewStatus: "agreed"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}
