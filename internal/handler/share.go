package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/dshare/dshare/internal/ctxkeys"
	"github.com/dshare/dshare/internal/service"
)

type shareHandler struct {
	shareService *service.ShareService
	maxBytes     func(authenticated bool) int64
}

func NewShareHandler(shareService *service.ShareService, maxBytes func(authenticated bool) int64) *shareHandler {
	return &shareHandler{
		shareService: shareService,
		maxBytes:     maxBytes,
	}
}

// Current returns the caller's slot: kind ("file", "text" or "empty")
// plus the artifact metadata.
func (h *shareHandler) Current(w http.ResponseWriter, r *http.Request) {
	scope := ctxkeys.Scope(r.Context())

	share, err := h.shareService.Current(scope)
	if err != nil {
		respondError(w, err)
		return
	}

	switch {
	case share.HasFile():
		respondOK(w, map[string]any{
			"kind":       "file",
			"filename":   *share.FileName,
			"updated_at": share.UpdatedAt,
		})
	case share.HasText():
		respondOK(w, map[string]any{
			"kind":       "text",
			"text":       *share.Text,
			"updated_at": share.UpdatedAt,
		})
	default:
		respondOK(w, map[string]any{
			"kind": "empty",
		})
	}
}

// PublishText replaces the slot's artifact with a text snippet.
func (h *shareHandler) PublishText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	scope := ctxkeys.Scope(r.Context())
	err := h.shareService.PublishText(scope, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyText) {
			respondFail(w, http.StatusBadRequest, "text must not be empty")
			return
		}
		respondError(w, err)
		return
	}

	respondOK(w, nil)
}

// PublishFile is the one-shot path for files small enough to arrive in
// a single multipart request. Larger files go through /upload.
func (h *shareHandler) PublishFile(w http.ResponseWriter, r *http.Request) {
	scope := ctxkeys.Scope(r.Context())
	limit := h.maxBytes(!scope.IsPublic())

	r.Body = http.MaxBytesReader(w, r.Body, limit+4096)
	err := r.ParseMultipartForm(1 << 20)
	if err != nil {
		respondFail(w, http.StatusRequestEntityTooLarge, "file exceeds the size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondFail(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondFail(w, http.StatusBadRequest, "filename is required")
		return
	}
	if header.Size > limit {
		respondFail(w, http.StatusRequestEntityTooLarge, "file exceeds the size limit")
		return
	}

	err = h.shareService.PublishFile(scope, filepath.Base(header.Filename), file)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, map[string]any{
		"filename": filepath.Base(header.Filename),
	})
}

// Download serves the slot's shared file. S3-backed storage hands out a
// presigned URL via redirect; local storage streams the bytes.
func (h *shareHandler) Download(w http.ResponseWriter, r *http.Request) {
	scope := ctxkeys.Scope(r.Context())

	url, err := h.shareService.FileURL(scope)
	if err != nil {
		if errors.Is(err, service.ErrNoSharedFile) {
			respondFail(w, http.StatusNotFound, "no file is currently shared")
			return
		}
		respondError(w, err)
		return
	}

	if url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	rc, filename, err := h.shareService.OpenFile(scope)
	if err != nil {
		if errors.Is(err, service.ErrNoSharedFile) {
			respondFail(w, http.StatusNotFound, "no file is currently shared")
			return
		}
		respondError(w, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))

	_, err = io.Copy(w, rc)
	if err != nil {
		slog.Warn("download interrupted", "error", err, "scope", scope.Key())
	}
}

// Clear empties the caller's slot.
func (h *shareHandler) Clear(w http.ResponseWriter, r *http.Request) {
	scope := ctxkeys.Scope(r.Context())

	err := h.shareService.Clear(scope)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, nil)
}
