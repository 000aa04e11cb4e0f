package service

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

func newArtifactFixture(t *testing.T) (*ArtifactService, repository.Store, *model.User) {
	t.Helper()
	store := newTestStore(t)
	svc := NewArtifactService(store, t.TempDir(), testLogger())
	owner := seedUser(t, store, model.RoleResearcher)
	return svc, store, owner
}

func textUpload(title, content string) Upload {
	return Upload{
		Title:    title,
		Kind:     "code",
		FileName: "sample.txt",
		MimeType: "text/plain",
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	}
}

func TestArtifactCreate_StoresFileAndRow(t *testing.T) {
	svc, _, owner := newArtifactFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, owner.ID, textUpload("Sample", "package main"))
	require.NoError(t, err)
	assert.Equal(t, owner.ID, a.OwnerID)
	assert.FileExists(t, a.StoragePath)

	artifact, rc, err := svc.Open(ctx, a.ID)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "text/plain", artifact.MimeType)

	buf := make([]byte, 64)
	n, _ := rc.Read(buf)
	assert.Equal(t, "package main", string(buf[:n]))
}

func TestArtifactCreate_Validation(t *testing.T) {
	svc, _, owner := newArtifactFixture(t)
	ctx := context.Background()

	up := textUpload("", "x")
	_, err := svc.Create(ctx, owner.ID, up)
	assert.ErrorIs(t, err, apperror.ErrValidation, "title required")

	up = textUpload("T", "x")
	up.MimeType = "application/zip"
	_, err = svc.Create(ctx, owner.ID, up)
	assert.ErrorIs(t, err, apperror.ErrValidation, "mime whitelist")

	up = textUpload("T", "")
	_, err = svc.Create(ctx, owner.ID, up)
	assert.ErrorIs(t, err, apperror.ErrValidation, "empty file")

	up = textUpload("T", "x")
	up.Size = MaxUploadBytes + 1
	_, err = svc.Create(ctx, owner.ID, up)
	assert.ErrorIs(t, err, apperror.ErrValidation, "size cap")
}

func TestArtifactReplace_SwapsFileKeepsID(t *testing.T) {
	svc, _, owner := newArtifactFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, owner.ID, textUpload("Sample", "v1"))
	require.NoError(t, err)
	oldPath := a.StoragePath

	replaced, err := svc.Replace(ctx, owner.ID, model.RoleResearcher, a.ID, textUpload("Sample", "v2 content"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, replaced.ID)
	assert.NotEqual(t, oldPath, replaced.StoragePath)
	assert.FileExists(t, replaced.StoragePath)
	assert.NoFileExists(t, oldPath)
}

func TestArtifactDelete_OwnerOnlyAndUnlinks(t *testing.T) {
	svc, store, owner := newArtifactFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, owner.ID, textUpload("Sample", "bytes"))
	require.NoError(t, err)

	stranger := seedUser(t, store, model.RoleResearcher)
	err = svc.Delete(ctx, stranger.ID, model.RoleResearcher, a.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, owner.ID, model.RoleResearcher, a.ID))
	_, statErr := os.Stat(a.StoragePath)
	assert.True(t, os.IsNotExist(statErr))
	_, err = store.Artifacts().GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTagsAndCollections(t *testing.T) {
	svc, _, owner := newArtifactFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, owner.ID, textUpload("Sample", "bytes"))
	require.NoError(t, err)

	tag, err := svc.CreateTag(ctx, owner.ID, "go", "#00ADD8")
	require.NoError(t, err)

	_, err = svc.CreateTag(ctx, owner.ID, "  ", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	require.NoError(t, svc.Tag(ctx, owner.ID, model.RoleResearcher, a.ID, tag.ID, true))
	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "go", got.Tags[0].Name)

	require.NoError(t, svc.Tag(ctx, owner.ID, model.RoleResearcher, a.ID, tag.ID, false))
	got, err = svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)

	c, err := svc.CreateCollection(ctx, owner.ID, "AI generated", "outputs from the generator run")
	require.NoError(t, err)
	list, err := svc.ListCollections(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}

func TestTagOwnership(t *testing.T) {
	svc, store, owner := newArtifactFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, owner.ID, textUpload("Sample", "bytes"))
	require.NoError(t, err)
	tag, err := svc.CreateTag(ctx, owner.ID, "important", "#FF0000")
	require.NoError(t, err)

	stranger := seedUser(t, store, model.RoleResearcher)

	// A researcher cannot delete another researcher's tag.
	err = svc.DeleteTag(ctx, stranger.ID, model.RoleResearcher, tag.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	tags, err := svc.ListTags(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)

	// Nor attach it to their own artifact.
	theirs, err := svc.Create(ctx, stranger.ID, textUpload("Theirs", "bytes"))
	require.NoError(t, err)
	err = svc.Tag(ctx, stranger.ID, model.RoleResearcher, theirs.ID, tag.ID, true)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	// Attaching a tag that does not exist is a not-found, not a 500.
	err = svc.Tag(ctx, owner.ID, model.RoleResearcher, a.ID, "no-such-tag", true)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// Admins bypass the gate; the owner can delete their own tag.
	admin := seedUser(t, store, model.RoleAdmin)
	require.NoError(t, svc.Tag(ctx, admin.ID, model.RoleAdmin, a.ID, tag.ID, true))
	require.NoError(t, svc.DeleteTag(ctx, owner.ID, model.RoleResearcher, tag.ID))
	tags, err = svc.ListTags(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}
