package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dshare/dshare/internal/ctxkeys"
	"github.com/dshare/dshare/internal/service"
)

type uploadHandler struct {
	uploadService *service.UploadService
}

func NewUploadHandler(uploadService *service.UploadService) *uploadHandler {
	return &uploadHandler{uploadService: uploadService}
}

// Start opens a new upload session or resumes one the client names.
// The response always carries the authoritative received-chunk list so
// the client knows exactly what still needs sending.
func (h *uploadHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		TotalSize   int64  `json:"total_size"`
		ChunkSize   int64  `json:"chunk_size"`
		SessionID   string `json:"session_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	// Base("") is ".", which would defeat the required-filename check
	filename := req.Filename
	if filename != "" {
		filename = filepath.Base(filename)
	}

	scope := ctxkeys.Scope(r.Context())
	result, err := h.uploadService.Start(scope, service.StartRequest{
		Filename:    filename,
		ContentType: req.ContentType,
		TotalSize:   req.TotalSize,
		ChunkSize:   req.ChunkSize,
		SessionID:   req.SessionID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFilenameRequired):
			respondFail(w, http.StatusBadRequest, "filename is required")
		case errors.Is(err, service.ErrInvalidTotalSize):
			respondFail(w, http.StatusBadRequest, "total size must be positive")
		case errors.Is(err, service.ErrUploadTooLarge):
			respondFail(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
		default:
			respondError(w, err)
		}
		return
	}

	respondOK(w, map[string]any{
		"session_id":      result.SessionID,
		"chunk_size":      result.ChunkSize,
		"total_chunks":    result.TotalChunks,
		"received_chunks": result.ReceivedChunks,
		"resumed":         result.Resumed,
	})
}

// PutChunk receives one chunk's bytes, either as a multipart "chunk"
// field or as a raw request body.
func (h *uploadHandler) PutChunk(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		respondFail(w, http.StatusBadRequest, "invalid chunk index")
		return
	}

	body, err := chunkBody(r)
	if err != nil {
		respondFail(w, http.StatusBadRequest, "chunk body is required")
		return
	}
	defer body.Close()

	scope := ctxkeys.Scope(r.Context())
	result, err := h.uploadService.PutChunk(scope, sessionID, index, body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			respondFail(w, http.StatusNotFound, "upload session not found")
		case errors.Is(err, service.ErrNotSessionOwner):
			respondFail(w, http.StatusForbidden, "upload session belongs to another scope")
		case errors.Is(err, service.ErrChunkIndexOutOfRange):
			respondFail(w, http.StatusBadRequest, "chunk index out of range")
		case errors.Is(err, service.ErrChunkTooLarge):
			respondFail(w, http.StatusRequestEntityTooLarge, "chunk exceeds the session chunk size")
		default:
			respondError(w, err)
		}
		return
	}

	respondOK(w, map[string]any{
		"received": result.ReceivedCount,
		"total":    result.TotalChunks,
		"complete": result.Complete,
	})
}

// Complete assembles the chunks and publishes the file to the caller's
// share slot. A still-incomplete session gets a 409 naming exactly the
// missing chunk indices.
func (h *uploadHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	scope := ctxkeys.Scope(r.Context())
	err := h.uploadService.Complete(scope, sessionID)
	if err != nil {
		var incomplete *service.IncompleteUploadError
		switch {
		case errors.As(err, &incomplete):
			respondJSON(w, http.StatusConflict, map[string]any{
				"status":         "fail",
				"message":        "upload incomplete",
				"missing_chunks": incomplete.Missing,
			})
		case errors.Is(err, service.ErrSessionNotFound):
			respondFail(w, http.StatusNotFound, "upload session not found")
		case errors.Is(err, service.ErrNotSessionOwner):
			respondFail(w, http.StatusForbidden, "upload session belongs to another scope")
		case errors.Is(err, service.ErrSizeMismatch):
			respondFail(w, http.StatusConflict, "assembled size does not match the declared total")
		default:
			respondError(w, err)
		}
		return
	}

	respondOK(w, nil)
}

func chunkBody(r *http.Request) (io.ReadCloser, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("chunk")
		if err != nil {
			return nil, err
		}
		return file, nil
	}
	return r.Body, nil
}
