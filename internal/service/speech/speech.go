// Package speech implements the text-to-speech work function. Synthesis is
// delegated to the Google Translate TTS endpoint, fetched chunk by chunk and
// concatenated into a single MP3, which matches how the gTTS tooling this
// service replaces drives the same endpoint.
package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/multiserve/multiserve/internal/job"
)

const (
	// maxChunkRunes is the longest text fragment the endpoint accepts per
	// request; longer inputs are split on sentence and space boundaries.
	maxChunkRunes = 200

	defaultEndpoint = "https://translate.google.com/translate_tts"

	// OutputFilename is the suggested name for synthesized audio.
	OutputFilename = "speech.mp3"
)

// languages is the fixed allow-list for the language field, also served by
// GET /api/languages.
var languages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"ru": "Russian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"hi": "Hindi",
	"ar": "Arabic",
	"tr": "Turkish",
	"pl": "Polish",
}

// Language describes one entry of the languages metadata endpoint.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages returns the allow-list in unspecified order; handlers sort it
// before serving.
func Languages() []Language {
	out := make([]Language, 0, len(languages))
	for code, name := range languages {
		out = append(out, Language{Code: code, Name: name})
	}
	return out
}

// Normalize returns the language code to synthesize with: a trimmed,
// lowercased member of the allow-list, or "en" on any mismatch.
func Normalize(lang string) string {
	code := strings.ToLower(strings.TrimSpace(lang))
	if _, ok := languages[code]; ok {
		return code
	}
	return "en"
}

// Config holds limits for the speech operation.
type Config struct {
	Deadline       time.Duration
	MaxOutputBytes int64

	// Endpoint overrides the synthesis endpoint, used by tests.
	Endpoint string
}

// Service builds text-to-speech jobs for the runner.
type Service struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Service {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Job returns a runner job that synthesizes text into an MP3 in its
// workspace.
func (s *Service) Job(text, lang string, slow bool) job.Job {
	return job.New("tts", s.cfg.Deadline, s.cfg.MaxOutputBytes,
		s.work(text, Normalize(lang), slow))
}

func (s *Service) work(text, lang string, slow bool) job.WorkFunc {
	return func(ctx context.Context, ws *job.Workspace) (*job.Artifact, error) {
		path, err := ws.Path(OutputFilename)
		if err != nil {
			return nil, err
		}

		out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := out.Close(); cerr != nil {
				s.logger.Error("failed to close speech output", "error", cerr)
			}
		}()

		chunks := SplitText(text, maxChunkRunes)
		for i, chunk := range chunks {
			// MP3 frames are self-delimiting, so per-chunk responses can
			// be appended directly.
			if err := s.fetchChunk(ctx, out, chunk, lang, slow, i, len(chunks)); err != nil {
				return nil, err
			}
		}

		return &job.Artifact{
			Path:        path,
			ContentType: "audio/mpeg",
			Filename:    OutputFilename,
		}, nil
	}
}

func (s *Service) fetchChunk(ctx context.Context, out io.Writer, chunk, lang string, slow bool, idx, total int) error {
	speed := "1"
	if slow {
		speed = "0.3"
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", chunk)
	q.Set("ttsspeed", speed)
	q.Set("idx", fmt.Sprint(idx))
	q.Set("total", fmt.Sprint(total))
	q.Set("textlen", fmt.Sprint(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build synthesis request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("synthesis request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("synthesis endpoint returned status %d", resp.StatusCode)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write audio chunk: %w", err)
	}
	return nil
}

// SplitText breaks text into fragments of at most maxRunes runes, preferring
// sentence boundaries and falling back to spaces, then to a hard cut for
// unbroken runs.
func SplitText(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= maxRunes {
			chunks = append(chunks, strings.TrimSpace(string(runes)))
			break
		}

		cut := lastBoundary(runes[:maxRunes])
		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = runes[cut:]
	}
	return chunks
}

// lastBoundary finds the best split point in window: after the last sentence
// terminator if any, else after the last space, else the window end.
func lastBoundary(window []rune) int {
	lastSpace := -1
	lastSentence := -1
	for i, r := range window {
		switch r {
		case '.', '!', '?', '\n', ';':
			lastSentence = i
		case ' ', '\t':
			lastSpace = i
		}
	}
	if lastSentence >= 0 {
		return lastSentence + 1
	}
	if lastSpace >= 0 {
		return lastSpace + 1
	}
	return len(window)
}
