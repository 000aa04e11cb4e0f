// Package gormstore implements the repository interfaces on GORM. Production
// opens Postgres; tests hand in a SQLite-backed *gorm.DB and get identical
// behaviour, since nothing here uses Postgres-only SQL.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

// Store implements repository.Store over one *gorm.DB. The zero value is not
// usable; construct with Open or New.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres, configures the pool, and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: opening postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gormstore: acquiring pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return New(db)
}

// New wraps an already-open *gorm.DB and migrates the schema. Tests use this
// with a SQLite dialector.
func New(db *gorm.DB) (*Store, error) {
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Study{},
		&model.StudyArtifact{},
		&model.StudyParticipant{},
		&model.Artifact{},
		&model.ArtifactCollection{},
		&model.Tag{},
		&model.CompetencyAssessment{},
		&model.CompetencyQuestion{},
		&model.CompetencyAssignment{},
		&model.ArtifactAssessment{},
		&model.ArtifactAssessmentItem{},
		&model.StudyComparison{},
		&model.ActionLog{},
	)
	if err != nil {
		return fmt.Errorf("gormstore: migrating schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Users() repository.UserRepository               { return &userRepo{db: s.db} }
func (s *Store) Studies() repository.StudyRepository            { return &studyRepo{db: s.db} }
func (s *Store) Enrollments() repository.EnrollmentRepository   { return &enrollmentRepo{db: s.db} }
func (s *Store) Artifacts() repository.ArtifactRepository       { return &artifactRepo{db: s.db} }
func (s *Store) Competency() repository.CompetencyRepository    { return &competencyRepo{db: s.db} }
func (s *Store) Assessments() repository.AssessmentRepository   { return &assessmentRepo{db: s.db} }
func (s *Store) Comparisons() repository.ComparisonRepository   { return &comparisonRepo{db: s.db} }
func (s *Store) ActionLogs() repository.ActionLogRepository     { return &actionLogRepo{db: s.db} }

// Transaction runs fn against a Store bound to a single database
// transaction. GORM reuses the surrounding transaction when Transaction is
// called on a transactional handle, so nesting is safe.
func (s *Store) Transaction(ctx context.Context, fn func(repository.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// notFound converts gorm's sentinel into the domain error so services and
// handlers never import gorm.
func notFound(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource, id)
	}
	return err
}
