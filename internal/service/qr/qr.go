// Package qr implements the QR code work function: black-on-white PNG
// rendering with a clamped module size and quiet-zone border.
package qr

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/multiserve/multiserve/internal/job"
)

// Clamping bounds for the rendering knobs.
const (
	MinModuleSize = 5
	MaxModuleSize = 20
	MinBorder     = 1
	MaxBorder     = 10

	DefaultModuleSize = 10
	DefaultBorder     = 4

	// OutputFilename is the suggested name for rendered codes.
	OutputFilename = "qrcode.png"
)

// Config holds limits for the QR operation.
type Config struct {
	Deadline       time.Duration
	MaxOutputBytes int64
}

// Service builds QR rendering jobs for the runner.
type Service struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// Clamp bounds v to [lo, hi], substituting def when v is zero (field left
// unset by the client).
func Clamp(v, def, lo, hi int) int {
	if v == 0 {
		v = def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Job returns a runner job that renders text as a PNG QR code. moduleSize is
// the pixel width of one module, border the quiet zone width in modules;
// both are clamped to their documented ranges.
func (s *Service) Job(text string, moduleSize, border int) job.Job {
	moduleSize = Clamp(moduleSize, DefaultModuleSize, MinModuleSize, MaxModuleSize)
	border = Clamp(border, DefaultBorder, MinBorder, MaxBorder)

	return job.New("qr", s.cfg.Deadline, s.cfg.MaxOutputBytes, func(ctx context.Context, ws *job.Workspace) (*job.Artifact, error) {
		img, err := Render(text, moduleSize, border)
		if err != nil {
			return nil, err
		}

		path, err := ws.Path(OutputFilename)
		if err != nil {
			return nil, err
		}
		out, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		if err := png.Encode(out, img); err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
		if err := out.Close(); err != nil {
			return nil, fmt.Errorf("failed to flush output file: %w", err)
		}

		return &job.Artifact{
			Path:        path,
			ContentType: "image/png",
			Filename:    OutputFilename,
		}, nil
	})
}

// Render encodes text at low error correction and composites the module
// bitmap onto a white canvas with the requested quiet zone. The encoder's
// own border is disabled so the border knob controls the full quiet zone.
func Render(text string, moduleSize, border int) (image.Image, error) {
	code, err := qrcode.New(text, qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	code.DisableBorder = true

	// Negative size scales the image to that many pixels per module.
	modules := code.Image(-moduleSize)

	pad := border * moduleSize
	bounds := modules.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx()+2*pad, bounds.Dy()+2*pad))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, bounds.Add(image.Pt(pad, pad)), modules, bounds.Min, draw.Src)

	return canvas, nil
}
