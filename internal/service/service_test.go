package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/xid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
	"github.com/studyweave/studyweave/internal/repository/gormstore"
)

// newTestStore opens a throwaway SQLite database with the full schema. Each
// test gets its own file under t.TempDir, cleaned up automatically.
func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store, err := gormstore.New(db)
	require.NoError(t, err)
	return store
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureEmailer records outgoing mail instead of sending it.
type captureEmailer struct {
	mu   sync.Mutex
	sent []capturedMail
}

type capturedMail struct {
	To      string
	Subject string
	Body    string
}

func (c *captureEmailer) Send(_ context.Context, to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, capturedMail{To: to, Subject: subject, Body: body})
	return nil
}

func (c *captureEmailer) all() []capturedMail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedMail(nil), c.sent...)
}

func seedUser(t *testing.T, store repository.Store, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		ID:    xid.New().String(),
		Name:  "Test " + string(role),
		Email: xid.New().String() + "@example.test",
		Role:  role,
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func seedStudy(t *testing.T, store repository.Store, researcherID string, status model.StudyStatus) *model.Study {
	t.Helper()
	s := &model.Study{
		ID:           xid.New().String(),
		ResearcherID: researcherID,
		Title:        "Code readability study",
		Status:       status,
	}
	require.NoError(t, store.Studies().Create(context.Background(), s))
	return s
}

func seedStudyArtifact(t *testing.T, store repository.Store, studyID, ownerID string) *model.StudyArtifact {
	t.Helper()
	ctx := context.Background()
	artifact := &model.Artifact{
		ID:       xid.New().String(),
		OwnerID:  ownerID,
		Title:    "sample.go",
		Kind:     "code",
		MimeType: "text/plain",
	}
	require.NoError(t, store.Artifacts().Create(ctx, artifact))

	sa := &model.StudyArtifact{
		ID:         xid.New().String(),
		StudyID:    studyID,
		ArtifactID: artifact.ID,
		Position:   1,
	}
	require.NoError(t, store.Studies().AddArtifact(ctx, sa))
	return sa
}

func seedEnrollment(t *testing.T, store repository.Store, studyID, userID string, status model.ParticipationStatus) *model.StudyParticipant {
	t.Helper()
	e := &model.StudyParticipant{
		ID:                  xid.New().String(),
		StudyID:             studyID,
		UserID:              userID,
		ParticipationStatus: status,
	}
	require.NoError(t, store.Enrollments().Create(context.Background(), e))
	return e
}
