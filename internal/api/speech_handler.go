package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/multiserve/multiserve/internal/api/shared"
	"github.com/multiserve/multiserve/internal/service/speech"
)

// SpeechHandler handles the text-to-speech endpoint.
type SpeechHandler struct {
	runner Submitter
	svc    *speech.Service
}

// NewSpeechHandler creates a new SpeechHandler.
func NewSpeechHandler(runner Submitter, svc *speech.Service) *SpeechHandler {
	return &SpeechHandler{runner: runner, svc: svc}
}

// TextToSpeech handles POST /api/text-to-speech requests.
func (h *SpeechHandler) TextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req TextToSpeechRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: text is required and limited to 5000 characters")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: text must not be blank")
		return
	}

	res, err := h.runner.Submit(r.Context(), h.svc.Job(req.Text, req.Language, req.Slow))
	if err != nil {
		HandleJobError(w, r, err)
		return
	}

	serveArtifact(w, r, res)
}

// Languages handles GET /api/languages requests.
func (h *SpeechHandler) Languages(w http.ResponseWriter, r *http.Request) {
	langs := speech.Languages()
	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"default":   "en",
		"languages": langs,
	})
}
