package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/studyweave/studyweave/internal/model"
)

type enrollmentRepo struct {
	db *gorm.DB
}

// withDetail loads everything the progress aggregator consumes: the study,
// the competency assignment with its assessment, and all artifact
// assessments with their items.
func (r *enrollmentRepo) withDetail(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Study").
		Preload("CompetencyAssignment").
		Preload("CompetencyAssignment.Assessment").
		Preload("ArtifactAssessments").
		Preload("ArtifactAssessments.Items")
}

func (r *enrollmentRepo) Create(ctx context.Context, e *model.StudyParticipant) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id string) (*model.StudyParticipant, error) {
	var e model.StudyParticipant
	if err := r.withDetail(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "enrollment", id)
	}
	return &e, nil
}

func (r *enrollmentRepo) GetByStudyAndUser(ctx context.Context, studyID, userID string) (*model.StudyParticipant, error) {
	var e model.StudyParticipant
	err := r.withDetail(ctx).First(&e, "study_id = ? AND user_id = ?", studyID, userID).Error
	if err != nil {
		return nil, notFound(err, "enrollment", studyID+"/"+userID)
	}
	return &e, nil
}

func (r *enrollmentRepo) ListByUser(ctx context.Context, userID string) ([]model.StudyParticipant, error) {
	var es []model.StudyParticipant
	err := r.withDetail(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&es).Error
	return es, err
}

func (r *enrollmentRepo) ListByStudy(ctx context.Context, studyID string) ([]model.StudyParticipant, error) {
	var es []model.StudyParticipant
	err := r.withDetail(ctx).
		Preload("User").
		Where("study_id = ?", studyID).
		Order("created_at ASC").
		Find(&es).Error
	return es, err
}

func (r *enrollmentRepo) ListByResearcher(ctx context.Context, researcherID string) ([]model.StudyParticipant, error) {
	var es []model.StudyParticipant
	err := r.withDetail(ctx).
		Preload("User").
		Joins("JOIN studies ON studies.id = study_participants.study_id").
		Where("studies.researcher_id = ?", researcherID).
		Order("study_participants.created_at ASC").
		Find(&es).Error
	return es, err
}

func (r *enrollmentRepo) Update(ctx context.Context, e *model.StudyParticipant) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *enrollmentRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.StudyParticipant{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "enrollment", id)
	}
	return nil
}
