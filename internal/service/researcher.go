package service

import (
	"context"
	"fmt"
	"time"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

// StudyOverview is one row of the researcher dashboard: a study with its
// enrollment rollup.
type StudyOverview struct {
	Study           model.Study `json:"study"`
	Enrolled        int         `json:"enrolled"`
	Completed       int         `json:"completed"`
	InProgress      int         `json:"inProgress"`
	Withdrawn       int         `json:"withdrawn"`
	AverageProgress int         `json:"averageProgress"`
}

// ResearcherService aggregates cross-study views for researchers: the
// overview rollup, per-participant progress detail, and the notification
// feed.
type ResearcherService struct {
	store repository.Store
}

func NewResearcherService(store repository.Store) *ResearcherService {
	return &ResearcherService{store: store}
}

// Overview returns all of the researcher's studies with enrollment rollups.
// The rollup reuses the same completion inference as the participant view,
// so both dashboards always agree on who finished.
func (s *ResearcherService) Overview(ctx context.Context, researcherID string) ([]StudyOverview, error) {
	studies, err := s.store.Studies().ListByResearcher(ctx, researcherID, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("loading studies: %w", err)
	}
	enrollments, err := s.store.Enrollments().ListByResearcher(ctx, researcherID)
	if err != nil {
		return nil, fmt.Errorf("loading enrollments: %w", err)
	}

	byStudy := make(map[string][]ParticipantDetail)
	for i := range enrollments {
		d := FormatParticipantDetail(&enrollments[i])
		byStudy[d.StudyID] = append(byStudy[d.StudyID], d)
	}

	overview := make([]StudyOverview, 0, len(studies))
	for _, study := range studies {
		row := StudyOverview{Study: study}
		total := 0
		for _, d := range byStudy[study.ID] {
			row.Enrolled++
			total += d.ProgressPercent
			switch d.ParticipationStatus {
			case model.ParticipationCompleted:
				row.Completed++
			case model.ParticipationWithdrawn:
				row.Withdrawn++
			default:
				row.InProgress++
			}
		}
		if row.Enrolled > 0 {
			row.AverageProgress = total / row.Enrolled
		}
		overview = append(overview, row)
	}
	return overview, nil
}

// Participants returns the per-participant detail for one owned study.
type ParticipantRow struct {
	User   *model.User       `json:"user"`
	Detail ParticipantDetail `json:"detail"`
}

func (s *ResearcherService) Participants(ctx context.Context, researcherID string, callerRole model.Role, studyID string) ([]ParticipantRow, error) {
	study, err := s.store.Studies().GetByID(ctx, studyID)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleAdmin && study.ResearcherID != researcherID {
		return nil, apperror.Forbidden("you do not own this study")
	}

	enrollments, err := s.store.Enrollments().ListByStudy(ctx, studyID)
	if err != nil {
		return nil, fmt.Errorf("loading enrollments: %w", err)
	}
	rows := make([]ParticipantRow, 0, len(enrollments))
	for i := range enrollments {
		rows = append(rows, ParticipantRow{
			User:   enrollments[i].User,
			Detail: FormatParticipantDetail(&enrollments[i]),
		})
	}
	return rows, nil
}

// Notifications recomputes the researcher's notice feed from current rows.
func (s *ResearcherService) Notifications(ctx context.Context, researcherID string) ([]Notification, error) {
	enrollments, err := s.store.Enrollments().ListByResearcher(ctx, researcherID)
	if err != nil {
		return nil, fmt.Errorf("loading enrollments: %w", err)
	}
	assignments, err := s.store.Competency().ListAssignmentsByResearcher(ctx, researcherID)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}

	// Assessments ride along inside the enrollments; collect them so
	// unenrolled (guest) submissions in owned studies are not missed.
	var assessments []model.ArtifactAssessment
	studies, err := s.store.Studies().ListByResearcher(ctx, researcherID, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("loading studies: %w", err)
	}
	for _, study := range studies {
		list, err := s.store.Assessments().List(ctx, repository.AssessmentFilter{
			StudyID: study.ID,
			Status:  string(model.AssessmentSubmitted),
		}, repository.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("loading assessments: %w", err)
		}
		assessments = append(assessments, list...)
	}

	return BuildNotifications(enrollments, assignments, assessments, time.Now()), nil
}

// ActionLog returns the researcher's audit trail, newest first.
func (s *ResearcherService) ActionLog(ctx context.Context, userID string, opts repository.ListOptions) ([]model.ActionLog, error) {
	return s.store.ActionLogs().ListByUser(ctx, userID, opts)
}
