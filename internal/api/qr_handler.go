package api

import (
	"net/http"
	"strings"

	"github.com/multiserve/multiserve/internal/api/shared"
	"github.com/multiserve/multiserve/internal/service/qr"
)

// QRHandler handles the QR code generation endpoint.
type QRHandler struct {
	runner Submitter
	svc    *qr.Service
}

// NewQRHandler creates a new QRHandler.
func NewQRHandler(runner Submitter, svc *qr.Service) *QRHandler {
	return &QRHandler{runner: runner, svc: svc}
}

// GenerateQR handles POST /api/generate-qr requests.
func (h *QRHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	var req GenerateQRRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: text is required and limited to 2000 characters")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: text must not be blank")
		return
	}

	res, err := h.runner.Submit(r.Context(), h.svc.Job(req.Text, req.Size, req.Border))
	if err != nil {
		HandleJobError(w, r, err)
		return
	}

	serveArtifact(w, r, res)
}
