package gormstore

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/studyweave/studyweave/internal/model"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(email)).Error
	if err != nil {
		return nil, notFound(err, "user", email)
	}
	return &user, nil
}

func (r *userRepo) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "git_hub_id = ?", githubID).Error
	if err != nil {
		return nil, notFound(err, "user", "github")
	}
	return &user, nil
}

func (r *userRepo) GetByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "verification_token = ?", token).Error
	if err != nil {
		return nil, notFound(err, "user", "verification token")
	}
	return &user, nil
}

func (r *userRepo) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "reset_token = ?", token).Error
	if err != nil {
		return nil, notFound(err, "user", "reset token")
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}
