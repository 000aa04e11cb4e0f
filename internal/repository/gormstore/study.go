package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

type studyRepo struct {
	db *gorm.DB
}

func (r *studyRepo) Create(ctx context.Context, study *model.Study) error {
	return r.db.WithContext(ctx).Create(study).Error
}

func (r *studyRepo) GetByID(ctx context.Context, id string) (*model.Study, error) {
	var study model.Study
	err := r.db.WithContext(ctx).
		Preload("Artifacts", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Artifacts.Artifact").
		First(&study, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "study", id)
	}
	return &study, nil
}

func (r *studyRepo) ListByResearcher(ctx context.Context, researcherID string, opts repository.ListOptions) ([]model.Study, error) {
	var studies []model.Study
	q := r.db.WithContext(ctx).Where("researcher_id = ?", researcherID).Order("created_at DESC")
	err := paginate(q, opts).Find(&studies).Error
	return studies, err
}

func (r *studyRepo) ListAll(ctx context.Context, opts repository.ListOptions) ([]model.Study, error) {
	var studies []model.Study
	q := r.db.WithContext(ctx).Order("created_at DESC")
	err := paginate(q, opts).Find(&studies).Error
	return studies, err
}

func (r *studyRepo) ListPublic(ctx context.Context, opts repository.ListOptions) ([]model.Study, error) {
	var studies []model.Study
	// Metadata is jsonb in Postgres and TEXT in SQLite tests, so the public
	// flag is filtered in Go rather than with a dialect-specific operator.
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StudyActive).
		Order("created_at DESC").
		Find(&studies).Error
	if err != nil {
		return nil, err
	}
	public := studies[:0]
	for _, s := range studies {
		if s.IsPublic() {
			public = append(public, s)
		}
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(public) {
			return []model.Study{}, nil
		}
		public = public[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(public) {
		public = public[:opts.Limit]
	}
	return public, nil
}

func (r *studyRepo) Update(ctx context.Context, study *model.Study) error {
	return r.db.WithContext(ctx).Save(study).Error
}

func (r *studyRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.Study{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "study", id)
	}
	return nil
}

func (r *studyRepo) AddArtifact(ctx context.Context, sa *model.StudyArtifact) error {
	return r.db.WithContext(ctx).Create(sa).Error
}

func (r *studyRepo) RemoveArtifact(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.StudyArtifact{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "study artifact", id)
	}
	return nil
}

func (r *studyRepo) GetStudyArtifact(ctx context.Context, id string) (*model.StudyArtifact, error) {
	var sa model.StudyArtifact
	err := r.db.WithContext(ctx).Preload("Artifact").First(&sa, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "study artifact", id)
	}
	return &sa, nil
}

func (r *studyRepo) ListArtifacts(ctx context.Context, studyID string) ([]model.StudyArtifact, error) {
	var sas []model.StudyArtifact
	err := r.db.WithContext(ctx).
		Preload("Artifact").
		Where("study_id = ?", studyID).
		Order("position ASC").
		Find(&sas).Error
	return sas, err
}

// paginate applies ListOptions to a query; zero values mean no limit.
func paginate(q *gorm.DB, opts repository.ListOptions) *gorm.DB {
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	return q
}
