package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/auth"
	"github.com/studyweave/studyweave/internal/service"
)

// ArtifactHandler serves /api/artifacts plus collections and tags.
type ArtifactHandler struct {
	svc *service.ArtifactService
}

func NewArtifactHandler(svc *service.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{svc: svc}
}

// parseUpload extracts the multipart file plus metadata fields. The request
// body is capped before parsing so oversized uploads fail fast.
func parseUpload(w http.ResponseWriter, r *http.Request) (service.Upload, io.Closer, error) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadBytes+4096)
	if err := r.ParseMultipartForm(service.MaxUploadBytes); err != nil {
		return service.Upload{}, nil, apperror.ValidationFailed("file", "invalid or oversized multipart upload")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return service.Upload{}, nil, apperror.ValidationFailed("file", "a file field is required")
	}

	return service.Upload{
		Title:    r.FormValue("title"),
		Kind:     r.FormValue("kind"),
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  file,
	}, file, nil
}

// HandleUpload stores a new artifact.
// POST /api/artifacts (multipart: file, title, kind)
func (h *ArtifactHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	up, closer, err := parseUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer closer.Close()

	artifact, err := h.svc.Create(r.Context(), id.UserID, up)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, artifact)
}

// HandleReplace swaps the stored file of an existing artifact.
// PUT /api/artifacts/{id} (multipart: file)
func (h *ArtifactHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	up, closer, err := parseUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer closer.Close()

	if up.Title == "" {
		up.Title = up.FileName // title is not editable on replace
	}
	artifact, err := h.svc.Replace(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id"), up)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// HandleList returns the caller's artifacts.
// GET /api/artifacts
func (h *ArtifactHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	artifacts, err := h.svc.List(r.Context(), id.UserID, listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

// HandleGet returns artifact metadata.
// GET /api/artifacts/{id}
func (h *ArtifactHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// HandleContent streams the stored file bytes.
// GET /api/artifacts/{id}/content
func (h *ArtifactHandler) HandleContent(w http.ResponseWriter, r *http.Request) {
	artifact, f, err := h.svc.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", artifact.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(artifact.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", artifact.FileName))
	io.Copy(w, f)
}

// HandleDelete removes an artifact and its file.
// DELETE /api/artifacts/{id}
func (h *ArtifactHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if err := h.svc.Delete(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateCollection creates a named artifact collection.
// POST /api/artifact-collections {"name","description"}
func (h *ArtifactHandler) HandleCreateCollection(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.svc.CreateCollection(r.Context(), id.UserID, body.Name, body.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleListCollections lists the caller's collections.
// GET /api/artifact-collections
func (h *ArtifactHandler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	cs, err := h.svc.ListCollections(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// HandleGetCollection returns one collection.
// GET /api/artifact-collections/{id}
func (h *ArtifactHandler) HandleGetCollection(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCollection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleDeleteCollection removes a collection.
// DELETE /api/artifact-collections/{id}
func (h *ArtifactHandler) HandleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if err := h.svc.DeleteCollection(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateTag creates a tag.
// POST /api/tags {"name","color"}
func (h *ArtifactHandler) HandleCreateTag(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	t, err := h.svc.CreateTag(r.Context(), id.UserID, body.Name, body.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// HandleListTags lists the caller's tags.
// GET /api/tags
func (h *ArtifactHandler) HandleListTags(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	tags, err := h.svc.ListTags(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HandleDeleteTag removes a tag.
// DELETE /api/tags/{id}
func (h *ArtifactHandler) HandleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if err := h.svc.DeleteTag(r.Context(), id.UserID, id.Role, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTagArtifact attaches a tag to an artifact.
// PUT /api/artifacts/{id}/tags/{tagID}
func (h *ArtifactHandler) HandleTagArtifact(w http.ResponseWriter, r *http.Request) {
	h.tag(w, r, true)
}

// HandleUntagArtifact detaches a tag from an artifact.
// DELETE /api/artifacts/{id}/tags/{tagID}
func (h *ArtifactHandler) HandleUntagArtifact(w http.ResponseWriter, r *http.Request) {
	h.tag(w, r, false)
}

func (h *ArtifactHandler) tag(w http.ResponseWriter, r *http.Request, attach bool) {
	id, _ := auth.IdentityFromContext(r.Context())
	err := h.svc.Tag(r.Context(), id.UserID, id.Role,
		chi.URLParam(r, "id"), chi.URLParam(r, "tagID"), attach)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
