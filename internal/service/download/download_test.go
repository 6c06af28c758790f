package download

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiserve/multiserve/internal/job"
)

func testService(blocked ...string) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{
		Deadline:       time.Minute,
		MaxOutputBytes: 100 << 20,
		BlockedHosts:   blocked,
	}, logger)
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		quality string
		want    string
	}{
		{"", "best"},
		{"best", "best"},
		{"Best", "best"},
		{"worst", "worst"},
		{"720p", "best[height<=720]"},
		{"audio", "bestaudio/best"},
		{"bv*+ba", "best"}, // raw selector syntax is not passed through
		{"4320p", "best"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFor(tt.quality), "quality %q", tt.quality)
	}
}

func TestCheckURL(t *testing.T) {
	t.Parallel()

	s := testService("blocked.example.com")

	t.Run("valid https url", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, s.CheckURL("https://www.youtube.com/watch?v=abc"))
	})

	t.Run("relative url", func(t *testing.T) {
		t.Parallel()
		err := s.CheckURL("/watch?v=abc")
		assert.ErrorIs(t, err, job.ErrInvalidInput)
	})

	t.Run("non-http scheme", func(t *testing.T) {
		t.Parallel()
		err := s.CheckURL("ftp://example.com/video")
		assert.ErrorIs(t, err, job.ErrInvalidInput)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		err := s.CheckURL("   ")
		assert.ErrorIs(t, err, job.ErrInvalidInput)
	})

	t.Run("blocked host", func(t *testing.T) {
		t.Parallel()
		err := s.CheckURL("https://blocked.example.com/v/1")
		assert.ErrorIs(t, err, job.ErrPolicyBlocked)
	})

	t.Run("blocked subdomain", func(t *testing.T) {
		t.Parallel()
		err := s.CheckURL("https://cdn.blocked.example.com/v/1")
		assert.ErrorIs(t, err, job.ErrPolicyBlocked)
	})

	t.Run("unrelated host sharing a suffix", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, s.CheckURL("https://notblocked.example.com/v/1"))
	})
}

func TestJob_PolicyFailsBeforeSubmission(t *testing.T) {
	t.Parallel()

	s := testService("blocked.example.com")

	_, err := s.Job("https://blocked.example.com/v/1", "best")
	require.Error(t, err)
	assert.ErrorIs(t, err, job.ErrPolicyBlocked)
}

func TestJob_CarriesConfiguredLimits(t *testing.T) {
	t.Parallel()

	s := testService()

	j, err := s.Job("https://www.youtube.com/watch?v=abc", "720p")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, j.Deadline)
	assert.Equal(t, int64(100<<20), j.MaxOutputBytes)
	assert.Equal(t, "download", j.Op)
	assert.NotNil(t, j.Work)
}

func TestProducedFile(t *testing.T) {
	t.Parallel()

	t.Run("picks the largest file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "video.mp4"), make([]byte, 100), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "video.en.vtt"), make([]byte, 10), 0o600))

		path, err := producedFile(dir)
		require.NoError(t, err)
		assert.Equal(t, "video.mp4", filepath.Base(path))
	})

	t.Run("empty workspace", func(t *testing.T) {
		t.Parallel()
		_, err := producedFile(t.TempDir())
		assert.Error(t, err)
	})
}

func TestSupportedSites(t *testing.T) {
	t.Parallel()

	sites := SupportedSites()
	require.NotEmpty(t, sites)
	for _, site := range sites {
		assert.NotEmpty(t, site.Name)
		assert.NotEmpty(t, site.Example)
	}
}
