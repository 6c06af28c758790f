package api

import (
	"net/http"

	"github.com/multiserve/multiserve/internal/api/shared"
	"github.com/multiserve/multiserve/internal/service/download"
)

// DownloadHandler handles the video download endpoint.
type DownloadHandler struct {
	runner Submitter
	svc    *download.Service
}

// NewDownloadHandler creates a new DownloadHandler.
func NewDownloadHandler(runner Submitter, svc *download.Service) *DownloadHandler {
	return &DownloadHandler{runner: runner, svc: svc}
}

// DownloadVideo handles POST /api/download-video requests.
func (h *DownloadHandler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	var req DownloadVideoRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: url is required")
		return
	}

	// URL and policy checks happen before anything is submitted.
	j, err := h.svc.Job(req.URL, req.Quality)
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

// SupportedSites handles GET /api/supported-sites requests.
func (h *DownloadHandler) SupportedSites(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"sites": download.SupportedSites(),
	})
}
