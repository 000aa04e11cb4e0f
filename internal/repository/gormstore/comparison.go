package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

type comparisonRepo struct {
	db *gorm.DB
}

func (r *comparisonRepo) Create(ctx context.Context, c *model.StudyComparison) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *comparisonRepo) GetByID(ctx context.Context, id string) (*model.StudyComparison, error) {
	var c model.StudyComparison
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "comparison", id)
	}
	return &c, nil
}

func (r *comparisonRepo) ListByStudy(ctx context.Context, studyID string) ([]model.StudyComparison, error) {
	var cs []model.StudyComparison
	err := r.db.WithContext(ctx).
		Where("study_id = ?", studyID).
		Order("submitted_at DESC").
		Find(&cs).Error
	return cs, err
}

func (r *comparisonRepo) ListPendingByResearcher(ctx context.Context, researcherID string) ([]model.StudyComparison, error) {
	var cs []model.StudyComparison
	err := r.db.WithContext(ctx).
		Joins("JOIN studies ON studies.id = study_comparisons.study_id").
		Where("studies.researcher_id = ? AND study_comparisons.review_status = ?", researcherID, model.ReviewPending).
		Order("study_comparisons.submitted_at ASC").
		Find(&cs).Error
	return cs, err
}

func (r *comparisonRepo) Update(ctx context.Context, c *model.StudyComparison) error {
	return r.db.WithContext(ctx).Save(c).Error
}

type actionLogRepo struct {
	db *gorm.DB
}

func (r *actionLogRepo) Create(ctx context.Context, entry *model.ActionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *actionLogRepo) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.ActionLog, error) {
	var entries []model.ActionLog
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	err := paginate(q, opts).Find(&entries).Error
	return entries, err
}
