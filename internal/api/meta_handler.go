package api

import (
	"net/http"

	"github.com/multiserve/multiserve/internal/api/shared"
)

// MetaHandler serves the health probe and the service banner.
type MetaHandler struct {
	service string
	version string
}

// NewMetaHandler creates a new MetaHandler.
func NewMetaHandler(service, version string) *MetaHandler {
	return &MetaHandler{service: service, version: version}
}

// Health handles GET /health requests.
func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.service,
		Version: h.version,
	})
}

// Root handles GET / requests with a short operation listing.
func (h *MetaHandler) Root(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"message": h.service + " is running",
		"services": []string{
			"Video Download: POST /api/download-video",
			"QR Code Generation: POST /api/generate-qr",
			"Text to Speech: POST /api/text-to-speech",
			"Background Removal: POST /api/remove-background",
		},
	})
}
