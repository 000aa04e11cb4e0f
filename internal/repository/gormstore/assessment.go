package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

type assessmentRepo struct {
	db *gorm.DB
}

func (r *assessmentRepo) Create(ctx context.Context, a *model.ArtifactAssessment) error {
	return r.db.WithContext(ctx).Omit("Items").Create(a).Error
}

func (r *assessmentRepo) CreateItems(ctx context.Context, items []model.ArtifactAssessmentItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *assessmentRepo) GetByID(ctx context.Context, id string) (*model.ArtifactAssessment, error) {
	var a model.ArtifactAssessment
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("StudyArtifact").
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "artifact assessment", id)
	}
	return &a, nil
}

func (r *assessmentRepo) List(ctx context.Context, filter repository.AssessmentFilter, opts repository.ListOptions) ([]model.ArtifactAssessment, error) {
	q := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC")

	if filter.StudyID != "" {
		q = q.Where("study_id = ?", filter.StudyID)
	}
	if filter.StudyArtifactID != "" {
		q = q.Where("study_artifact_id = ?", filter.StudyArtifactID)
	}
	if filter.EvaluatorUserID != "" {
		q = q.Where("evaluator_user_id = ?", filter.EvaluatorUserID)
	}
	if filter.AssessmentType != "" {
		q = q.Where("assessment_type = ?", filter.AssessmentType)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var as []model.ArtifactAssessment
	err := paginate(q, opts).Find(&as).Error
	return as, err
}

func (r *assessmentRepo) Update(ctx context.Context, a *model.ArtifactAssessment) error {
	return r.db.WithContext(ctx).Omit("Items").Save(a).Error
}

// ReplaceItems swaps the full item set of a draft. Runs in its own
// transaction unless already inside one.
func (r *assessmentRepo) ReplaceItems(ctx context.Context, assessmentID string, items []model.ArtifactAssessmentItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.ArtifactAssessmentItem{}, "assessment_id = ?", assessmentID).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}
