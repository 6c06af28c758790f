package api

// Request structures for the job-backed endpoints.

// DownloadVideoRequest defines the payload for POST /api/download-video.
type DownloadVideoRequest struct {
	URL     string `json:"url"               validate:"required"`
	Quality string `json:"quality,omitempty"`
}

// GenerateQRRequest defines the payload for POST /api/generate-qr.
// Size and Border are clamped, not rejected, when out of range.
type GenerateQRRequest struct {
	Text   string `json:"text"             validate:"required,max=2000"`
	Size   int    `json:"size,omitempty"`
	Border int    `json:"border,omitempty"`
}

// TextToSpeechRequest defines the payload for POST /api/text-to-speech.
// An unrecognized language falls back to "en".
type TextToSpeechRequest struct {
	Text     string `json:"text"               validate:"required,max=5000"`
	Language string `json:"language,omitempty"`
	Slow     bool   `json:"slow,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
