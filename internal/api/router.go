package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/multiserve/multiserve/internal/api/middleware"
)

// RouterConfig carries the handler set and cross-cutting options for the
// HTTP surface.
type RouterConfig struct {
	Download   *DownloadHandler
	QR         *QRHandler
	Speech     *SpeechHandler
	Background *BackgroundHandler
	Meta       *MetaHandler

	// AllowedOrigins configures CORS; ["*"] allows any origin.
	AllowedOrigins []string
}

// NewRouter assembles the chi router with the full endpoint surface.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Trace)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/", cfg.Meta.Root)
	r.Get("/health", cfg.Meta.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/download-video", cfg.Download.DownloadVideo)
		r.Post("/generate-qr", cfg.QR.GenerateQR)
		r.Post("/text-to-speech", cfg.Speech.TextToSpeech)
		r.Post("/remove-background", cfg.Background.RemoveBackground)

		r.Get("/supported-sites", cfg.Download.SupportedSites)
		r.Get("/languages", cfg.Speech.Languages)
	})

	return r
}
