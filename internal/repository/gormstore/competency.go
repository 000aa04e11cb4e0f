package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/studyweave/studyweave/internal/model"
)

type competencyRepo struct {
	db *gorm.DB
}

func (r *competencyRepo) CreateAssessment(ctx context.Context, a *model.CompetencyAssessment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *competencyRepo) GetAssessment(ctx context.Context, id string) (*model.CompetencyAssessment, error) {
	var a model.CompetencyAssessment
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "assessment", id)
	}
	return &a, nil
}

func (r *competencyRepo) ListAssessmentsByResearcher(ctx context.Context, researcherID string) ([]model.CompetencyAssessment, error) {
	var as []model.CompetencyAssessment
	err := r.db.WithContext(ctx).
		Where("researcher_id = ?", researcherID).
		Order("created_at DESC").
		Find(&as).Error
	return as, err
}

func (r *competencyRepo) UpdateAssessment(ctx context.Context, a *model.CompetencyAssessment) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *competencyRepo) DeleteAssessment(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.CompetencyQuestion{}, "assessment_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.CompetencyAssessment{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(gorm.ErrRecordNotFound, "assessment", id)
		}
		return nil
	})
}

func (r *competencyRepo) CreateQuestions(ctx context.Context, qs []model.CompetencyQuestion) error {
	if len(qs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&qs).Error
}

func (r *competencyRepo) UpdateQuestion(ctx context.Context, q *model.CompetencyQuestion) error {
	return r.db.WithContext(ctx).Save(q).Error
}

func (r *competencyRepo) DeleteQuestion(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.CompetencyQuestion{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "question", id)
	}
	return nil
}

func (r *competencyRepo) CreateAssignment(ctx context.Context, a *model.CompetencyAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *competencyRepo) GetAssignment(ctx context.Context, id string) (*model.CompetencyAssignment, error) {
	var a model.CompetencyAssignment
	err := r.db.WithContext(ctx).
		Preload("Assessment").
		Preload("Assessment.Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "assignment", id)
	}
	return &a, nil
}

func (r *competencyRepo) GetAssignmentByEnrollment(ctx context.Context, enrollmentID string) (*model.CompetencyAssignment, error) {
	var a model.CompetencyAssignment
	err := r.db.WithContext(ctx).
		Preload("Assessment").
		First(&a, "enrollment_id = ?", enrollmentID).Error
	if err != nil {
		return nil, notFound(err, "assignment", enrollmentID)
	}
	return &a, nil
}

func (r *competencyRepo) ListReviewedByAssessment(ctx context.Context, assessmentID string) ([]model.CompetencyAssignment, error) {
	var as []model.CompetencyAssignment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("assessment_id = ? AND status = ?", assessmentID, model.AssignmentReviewed).
		Order("reviewed_at ASC").
		Find(&as).Error
	return as, err
}

func (r *competencyRepo) ListAssignmentsByResearcher(ctx context.Context, researcherID string) ([]model.CompetencyAssignment, error) {
	var as []model.CompetencyAssignment
	err := r.db.WithContext(ctx).
		Preload("Assessment").
		Preload("User").
		Joins("JOIN studies ON studies.id = competency_assignments.study_id").
		Where("studies.researcher_id = ?", researcherID).
		Order("competency_assignments.updated_at DESC").
		Find(&as).Error
	return as, err
}

func (r *competencyRepo) UpdateAssignment(ctx context.Context, a *model.CompetencyAssignment) error {
	return r.db.WithContext(ctx).Save(a).Error
}
