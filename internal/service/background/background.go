// Package background implements the image background removal work function.
// The model inference itself is delegated to the rembg CLI; this package
// gates the upload by sniffed MIME type and size and manages the workspace
// the subprocess runs in.
package background

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/multiserve/multiserve/internal/job"
)

// OutputFilename is the suggested name for processed images.
const OutputFilename = "no_bg_image.png"

// allowedTypes is the fixed MIME allow-list for uploads. Membership is
// decided by sniffing content, never by trusting the declared header.
var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/tiff": ".tiff",
	"image/bmp":  ".bmp",
}

// Config holds limits for the background removal operation.
type Config struct {
	Deadline       time.Duration
	MaxInputBytes  int64
	MaxOutputBytes int64

	// Executable is the rembg binary to invoke. Defaults to "rembg".
	Executable string
}

// Service builds background removal jobs for the runner.
type Service struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Service {
	if cfg.Executable == "" {
		cfg.Executable = "rembg"
	}
	return &Service{cfg: cfg, logger: logger}
}

// CheckInput validates upload content before a job is created and returns
// the sniffed MIME type on success.
func (s *Service) CheckInput(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: uploaded file is empty", job.ErrInvalidInput)
	}
	if s.cfg.MaxInputBytes > 0 && int64(len(data)) > s.cfg.MaxInputBytes {
		return "", fmt.Errorf("%w: uploaded file is %d bytes, limit is %d",
			job.ErrResourceExceeded, len(data), s.cfg.MaxInputBytes)
	}

	mime := mimetype.Detect(data)
	for allowed := range allowedTypes {
		if mime.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: %s uploads are not allowed, only images", job.ErrPolicyBlocked, mime.String())
}

// Job validates the upload and returns a runner job that strips its
// background.
func (s *Service) Job(data []byte) (job.Job, error) {
	detected, err := s.CheckInput(data)
	if err != nil {
		return job.Job{}, err
	}

	ext := allowedTypes[detected]

	return job.New("remove-background", s.cfg.Deadline, s.cfg.MaxOutputBytes,
		func(ctx context.Context, ws *job.Workspace) (*job.Artifact, error) {
			in, err := ws.Path("input" + ext)
			if err != nil {
				return nil, err
			}
			if err := os.WriteFile(in, data, 0o600); err != nil {
				return nil, fmt.Errorf("failed to stage input: %w", err)
			}

			out, err := ws.Path(OutputFilename)
			if err != nil {
				return nil, err
			}

			cmd := exec.CommandContext(ctx, s.cfg.Executable, "i", in, out)
			var stderr bytes.Buffer
			cmd.Stderr = &stderr

			if err := cmd.Run(); err != nil {
				return nil, fmt.Errorf("rembg: %w: %s", err, firstLine(stderr.String()))
			}
			if _, err := os.Stat(out); err != nil {
				return nil, fmt.Errorf("rembg produced no output: %w", err)
			}

			return &job.Artifact{
				Path:        out,
				ContentType: "image/png",
				Filename:    OutputFilename,
			}, nil
		}), nil
}

// firstLine trims subprocess stderr down to something safe to wrap into an
// error message.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
