package service

import (
	"context"
	"fmt"

	"github.com/studyweave/studyweave/internal/repository"
)

// ParticipantService serves the participant dashboard: every enrollment the
// caller holds, folded through the progress aggregator.
type ParticipantService struct {
	store repository.Store
}

func NewParticipantService(store repository.Store) *ParticipantService {
	return &ParticipantService{store: store}
}

// Assignments returns one ParticipantDetail per enrollment, newest study
// first (the repository orders them).
func (s *ParticipantService) Assignments(ctx context.Context, userID string) ([]ParticipantDetail, error) {
	enrollments, err := s.store.Enrollments().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading enrollments: %w", err)
	}

	details := make([]ParticipantDetail, 0, len(enrollments))
	for i := range enrollments {
		details = append(details, FormatParticipantDetail(&enrollments[i]))
	}
	return details, nil
}
