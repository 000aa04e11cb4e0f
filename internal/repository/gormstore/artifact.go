package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

type artifactRepo struct {
	db *gorm.DB
}

func (r *artifactRepo) Create(ctx context.Context, a *model.Artifact) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *artifactRepo) GetByID(ctx context.Context, id string) (*model.Artifact, error) {
	var a model.Artifact
	if err := r.db.WithContext(ctx).Preload("Tags").First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "artifact", id)
	}
	return &a, nil
}

func (r *artifactRepo) ListByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Artifact, error) {
	var as []model.Artifact
	q := r.db.WithContext(ctx).
		Preload("Tags").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC")
	err := paginate(q, opts).Find(&as).Error
	return as, err
}

func (r *artifactRepo) Update(ctx context.Context, a *model.Artifact) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *artifactRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.Artifact{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "artifact", id)
	}
	return nil
}

func (r *artifactRepo) CreateCollection(ctx context.Context, c *model.ArtifactCollection) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *artifactRepo) GetCollection(ctx context.Context, id string) (*model.ArtifactCollection, error) {
	var c model.ArtifactCollection
	err := r.db.WithContext(ctx).Preload("Artifacts").First(&c, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "collection", id)
	}
	return &c, nil
}

func (r *artifactRepo) ListCollections(ctx context.Context, ownerID string) ([]model.ArtifactCollection, error) {
	var cs []model.ArtifactCollection
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&cs).Error
	return cs, err
}

func (r *artifactRepo) DeleteCollection(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.ArtifactCollection{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "collection", id)
	}
	return nil
}

func (r *artifactRepo) CreateTag(ctx context.Context, t *model.Tag) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *artifactRepo) GetTag(ctx context.Context, id string) (*model.Tag, error) {
	var t model.Tag
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "tag", id)
	}
	return &t, nil
}

func (r *artifactRepo) ListTags(ctx context.Context, ownerID string) ([]model.Tag, error) {
	var ts []model.Tag
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&ts).Error
	return ts, err
}

func (r *artifactRepo) DeleteTag(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.Tag{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "tag", id)
	}
	return nil
}

func (r *artifactRepo) AttachTag(ctx context.Context, artifactID, tagID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Artifact{ID: artifactID}).
		Association("Tags").
		Append(&model.Tag{ID: tagID})
}

func (r *artifactRepo) DetachTag(ctx context.Context, artifactID, tagID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Artifact{ID: artifactID}).
		Association("Tags").
		Delete(&model.Tag{ID: tagID})
}
