package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository"
)

// MaxUploadBytes caps artifact uploads at 10MB.
const MaxUploadBytes = 10 << 20

// allowedMimeTypes is the upload whitelist. Anything else is rejected with a
// validation error before any bytes hit disk.
var allowedMimeTypes = map[string]bool{
	"text/plain":      true,
	"image/png":       true,
	"application/pdf": true,
}

// Upload carries one incoming file. Size must be the real content length;
// the handler enforces it with http.MaxBytesReader before the service sees
// the stream.
type Upload struct {
	Title    string
	Kind     string
	FileName string
	MimeType string
	Size     int64
	Content  io.Reader
}

// ArtifactService manages uploaded files and their metadata rows, plus
// collections and tags.
type ArtifactService struct {
	store     repository.Store
	uploadDir string
	logger    *slog.Logger
}

func NewArtifactService(store repository.Store, uploadDir string, logger *slog.Logger) *ArtifactService {
	return &ArtifactService{store: store, uploadDir: uploadDir, logger: logger}
}

func (s *ArtifactService) validateUpload(up Upload) error {
	if strings.TrimSpace(up.Title) == "" {
		return apperror.ValidationFailed("title", "artifact title is required")
	}
	if !allowedMimeTypes[up.MimeType] {
		return apperror.ValidationFailed("file",
			fmt.Sprintf("unsupported file type %q (allowed: text/plain, image/png, application/pdf)", up.MimeType))
	}
	if up.Size <= 0 {
		return apperror.ValidationFailed("file", "uploaded file is empty")
	}
	if up.Size > MaxUploadBytes {
		return apperror.ValidationFailed("file", "uploaded file exceeds the 10MB limit")
	}
	return nil
}

// store writes the upload to disk under a fresh name and returns the path.
func (s *ArtifactService) storeFile(id string, up Upload) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, id+filepath.Ext(up.FileName))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(up.Content, MaxUploadBytes+1)); err != nil {
		s.removeFile(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return path, nil
}

// removeFile is the best-effort cleanup for orphaned upload files; unlink
// errors are logged and swallowed.
func (s *ArtifactService) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove upload file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// Create validates and stores a new artifact. If the metadata insert fails
// after the file was written, the file is unlinked best-effort.
func (s *ArtifactService) Create(ctx context.Context, ownerID string, up Upload) (*model.Artifact, error) {
	if err := s.validateUpload(up); err != nil {
		return nil, err
	}

	id := xid.New().String()
	path, err := s.storeFile(id, up)
	if err != nil {
		return nil, err
	}

	artifact := &model.Artifact{
		ID:          id,
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(up.Title),
		Kind:        up.Kind,
		FileName:    up.FileName,
		StoragePath: path,
		MimeType:    up.MimeType,
		SizeBytes:   up.Size,
	}
	if err := s.store.Artifacts().Create(ctx, artifact); err != nil {
		s.removeFile(path)
		return nil, fmt.Errorf("creating artifact: %w", err)
	}

	s.logger.Info("artifact uploaded",
		slog.String("id", artifact.ID),
		slog.String("mime", artifact.MimeType),
		slog.Int64("bytes", artifact.SizeBytes),
	)
	return artifact, nil
}

// Replace swaps the stored file of an existing artifact, keeping its ID and
// study attachments. The old file is removed only after the new row state
// has been written.
func (s *ArtifactService) Replace(ctx context.Context, callerID string, callerRole model.Role, id string, up Upload) (*model.Artifact, error) {
	artifact, err := s.requireOwned(ctx, callerID, callerRole, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateUpload(up); err != nil {
		return nil, err
	}

	newPath, err := s.storeFile(xid.New().String(), up)
	if err != nil {
		return nil, err
	}

	oldPath := artifact.StoragePath
	artifact.FileName = up.FileName
	artifact.StoragePath = newPath
	artifact.MimeType = up.MimeType
	artifact.SizeBytes = up.Size
	if err := s.store.Artifacts().Update(ctx, artifact); err != nil {
		s.removeFile(newPath)
		return nil, fmt.Errorf("replacing artifact: %w", err)
	}
	s.removeFile(oldPath)
	return artifact, nil
}

// Get returns artifact metadata.
func (s *ArtifactService) Get(ctx context.Context, id string) (*model.Artifact, error) {
	return s.store.Artifacts().GetByID(ctx, id)
}

// Open returns the artifact plus a reader over its stored bytes for content
// streaming. The caller must close the reader.
func (s *ArtifactService) Open(ctx context.Context, id string) (*model.Artifact, io.ReadCloser, error) {
	artifact, err := s.store.Artifacts().GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(artifact.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening artifact file: %w", err)
	}
	return artifact, f, nil
}

// List returns the caller's artifacts.
func (s *ArtifactService) List(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Artifact, error) {
	return s.store.Artifacts().ListByOwner(ctx, ownerID, opts)
}

// Delete removes the metadata row and unlinks the file best-effort.
func (s *ArtifactService) Delete(ctx context.Context, callerID string, callerRole model.Role, id string) error {
	artifact, err := s.requireOwned(ctx, callerID, callerRole, id)
	if err != nil {
		return err
	}
	if err := s.store.Artifacts().Delete(ctx, id); err != nil {
		return err
	}
	s.removeFile(artifact.StoragePath)
	return nil
}

// CreateCollection creates an artifact collection.
func (s *ArtifactService) CreateCollection(ctx context.Context, ownerID, name, description string) (*model.ArtifactCollection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperror.ValidationFailed("name", "collection name is required")
	}
	c := &model.ArtifactCollection{
		ID:          xid.New().String(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(name),
		Description: description,
	}
	if err := s.store.Artifacts().CreateCollection(ctx, c); err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	return c, nil
}

func (s *ArtifactService) GetCollection(ctx context.Context, id string) (*model.ArtifactCollection, error) {
	return s.store.Artifacts().GetCollection(ctx, id)
}

func (s *ArtifactService) ListCollections(ctx context.Context, ownerID string) ([]model.ArtifactCollection, error) {
	return s.store.Artifacts().ListCollections(ctx, ownerID)
}

func (s *ArtifactService) DeleteCollection(ctx context.Context, callerID string, callerRole model.Role, id string) error {
	c, err := s.store.Artifacts().GetCollection(ctx, id)
	if err != nil {
		return err
	}
	if callerRole != model.RoleAdmin && c.OwnerID != callerID {
		return apperror.Forbidden("only the owner can delete this collection")
	}
	return s.store.Artifacts().DeleteCollection(ctx, id)
}

// CreateTag creates a tag owned by the caller. Names are unique per owner.
func (s *ArtifactService) CreateTag(ctx context.Context, ownerID, name, color string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "tag name is required")
	}
	t := &model.Tag{
		ID:      xid.New().String(),
		OwnerID: ownerID,
		Name:    name,
		Color:   color,
	}
	if err := s.store.Artifacts().CreateTag(ctx, t); err != nil {
		return nil, fmt.Errorf("creating tag: %w", err)
	}
	return t, nil
}

func (s *ArtifactService) ListTags(ctx context.Context, ownerID string) ([]model.Tag, error) {
	return s.store.Artifacts().ListTags(ctx, ownerID)
}

func (s *ArtifactService) DeleteTag(ctx context.Context, callerID string, callerRole model.Role, id string) error {
	if _, err := s.requireOwnedTag(ctx, callerID, callerRole, id); err != nil {
		return err
	}
	return s.store.Artifacts().DeleteTag(ctx, id)
}

// Tag attaches or detaches a tag on an owned artifact. Both the artifact and
// the tag must belong to the caller.
func (s *ArtifactService) Tag(ctx context.Context, callerID string, callerRole model.Role, artifactID, tagID string, attach bool) error {
	if _, err := s.requireOwned(ctx, callerID, callerRole, artifactID); err != nil {
		return err
	}
	if _, err := s.requireOwnedTag(ctx, callerID, callerRole, tagID); err != nil {
		return err
	}
	if attach {
		return s.store.Artifacts().AttachTag(ctx, artifactID, tagID)
	}
	return s.store.Artifacts().DetachTag(ctx, artifactID, tagID)
}

func (s *ArtifactService) requireOwned(ctx context.Context, callerID string, callerRole model.Role, id string) (*model.Artifact, error) {
	artifact, err := s.store.Artifacts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleAdmin && artifact.OwnerID != callerID {
		return nil, apperror.Forbidden("only the owner can modify this artifact")
	}
	return artifact, nil
}

func (s *ArtifactService) requireOwnedTag(ctx context.Context, callerID string, callerRole model.Role, id string) (*model.Tag, error) {
	tag, err := s.store.Artifacts().GetTag(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleAdmin && tag.OwnerID != callerID {
		return nil, apperror.Forbidden("only the owner can use this tag")
	}
	return tag, nil
}
