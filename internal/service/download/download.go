// Package download implements the video download work function on top of
// yt-dlp, plus the policy checks and metadata for the download endpoint.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/multiserve/multiserve/internal/job"
)

// Config holds limits and policy for the download operation.
type Config struct {
	// Deadline is the per-job wall-clock limit.
	Deadline time.Duration

	// MaxOutputBytes is the ceiling on the downloaded file's size.
	MaxOutputBytes int64

	// BlockedHosts lists hostnames (and their subdomains) that may not be
	// used as download sources.
	BlockedHosts []string

	// Executable optionally pins the yt-dlp binary to use. If empty,
	// go-ytdlp resolves it from PATH.
	Executable string
}

// Service builds download jobs for the runner.
type Service struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// qualityFormats maps the request-level quality labels onto yt-dlp format
// selectors. Unknown labels fall back to "best" rather than being passed
// through, so clients cannot smuggle arbitrary selector syntax.
var qualityFormats = map[string]string{
	"":      "best",
	"best":  "best",
	"worst": "worst",
	"audio": "bestaudio/best",
	"1080p": "best[height<=1080]",
	"720p":  "best[height<=720]",
	"480p":  "best[height<=480]",
	"360p":  "best[height<=360]",
}

// FormatFor resolves a quality label to a yt-dlp format selector.
func FormatFor(quality string) string {
	if f, ok := qualityFormats[strings.ToLower(strings.TrimSpace(quality))]; ok {
		return f
	}
	return "best"
}

// CheckURL validates the source URL before a job is created: it must be an
// absolute HTTP(S) URL and its host must not be policy-blocked.
func (s *Service) CheckURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute URL", job.ErrInvalidInput)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url scheme must be http or https", job.ErrInvalidInput)
	}

	host := strings.ToLower(u.Hostname())
	for _, blocked := range s.cfg.BlockedHosts {
		blocked = strings.ToLower(blocked)
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return fmt.Errorf("%w: downloads from %s are not allowed", job.ErrPolicyBlocked, host)
		}
	}
	return nil
}

// Job validates the request and returns a runner job that downloads the
// video into its workspace.
func (s *Service) Job(rawURL, quality string) (job.Job, error) {
	if err := s.CheckURL(rawURL); err != nil {
		return job.Job{}, err
	}

	format := FormatFor(quality)
	s.logger.Debug("building download job", "format", format)

	return job.New("download", s.cfg.Deadline, s.cfg.MaxOutputBytes, s.work(rawURL, format)), nil
}

func (s *Service) work(rawURL, format string) job.WorkFunc {
	return func(ctx context.Context, ws *job.Workspace) (*job.Artifact, error) {
		dir, err := ws.Dir()
		if err != nil {
			return nil, err
		}

		dl := ytdlp.New().
			NoPlaylist().
			RestrictFilenames().
			Format(format).
			Output(filepath.Join(dir, "%(title).100s.%(ext)s"))
		if s.cfg.Executable != "" {
			dl.SetExecutable(s.cfg.Executable)
		}

		if _, err := dl.Run(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("yt-dlp: %w", err)
		}

		path, err := producedFile(dir)
		if err != nil {
			return nil, err
		}

		return &job.Artifact{
			Path:        path,
			ContentType: "application/octet-stream",
			Filename:    filepath.Base(path),
		}, nil
	}
}

// producedFile returns the largest regular file in dir. yt-dlp may leave
// fragments or subtitle sidecars next to the merged output, so "largest"
// picks the actual video.
func producedFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read workspace: %w", err)
	}

	var best string
	var bestSize int64 = -1
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, entry.Name())
			bestSize = info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("extractor produced no output file")
	}
	return best, nil
}

// Site describes one entry of the supported-sites metadata endpoint.
type Site struct {
	Name    string `json:"name"`
	Example string `json:"example"`
}

// SupportedSites returns the descriptive metadata served by
// GET /api/supported-sites. The real extractor supports far more; these are
// the ones the service advertises.
func SupportedSites() []Site {
	return []Site{
		{Name: "YouTube", Example: "https://www.youtube.com/watch?v=..."},
		{Name: "Vimeo", Example: "https://vimeo.com/..."},
		{Name: "Dailymotion", Example: "https://www.dailymotion.com/video/..."},
		{Name: "Twitch", Example: "https://www.twitch.tv/videos/..."},
		{Name: "SoundCloud", Example: "https://soundcloud.com/..."},
	}
}
