package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/multiserve/multiserve/internal/api/shared"
	"github.com/multiserve/multiserve/internal/service/background"
)

// BackgroundHandler handles the image background removal endpoint.
type BackgroundHandler struct {
	runner        Submitter
	svc           *background.Service
	maxUploadSize int64
}

// NewBackgroundHandler creates a new BackgroundHandler. maxUploadSize bounds
// the multipart body before any of it is buffered.
func NewBackgroundHandler(runner Submitter, svc *background.Service, maxUploadSize int64) *BackgroundHandler {
	return &BackgroundHandler{runner: runner, svc: svc, maxUploadSize: maxUploadSize}
}

// RemoveBackground handles POST /api/remove-background requests. The image
// arrives as the "file" part of a multipart form.
func (h *BackgroundHandler) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	file, _, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "Expected a multipart upload with a \"file\" field")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	// MIME and size gates run before the job is created.
	j, err := h.svc.Job(data)
	if err != nil {
		HandleJobError(w, r, err)
		return
	}

	res, err := h.runner.Submit(r.Context(), j)
	if err != nil {
		HandleJobError(w, r, err)
		return
	}

	serveArtifact(w, r, res)
}
