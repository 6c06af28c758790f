package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// newTestRunner creates a runner rooted in a per-test scratch dir with a
// fast janitor so reclamation can be observed without long sleeps.
func newTestRunner(t *testing.T, workers int) *Runner {
	t.Helper()

	r, err := NewRunner(RunnerConfig{
		Workers:       workers,
		ScratchDir:    t.TempDir(),
		ArtifactTTL:   100 * time.Millisecond,
		SweepInterval: 20 * time.Millisecond,
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(r.Close)

	return r
}

// writeArtifact is a work function body that writes n bytes into the
// workspace and returns the resulting artifact.
func writeArtifact(ws *Workspace, name string, n int) (*Artifact, error) {
	path, err := ws.Path(name)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, make([]byte, n), 0o600); err != nil {
		return nil, err
	}
	return &Artifact{Path: path, ContentType: "application/octet-stream", Filename: name}, nil
}

func scratchEntries(t *testing.T, r *Runner) int {
	t.Helper()
	entries, err := os.ReadDir(r.cfg.ScratchDir)
	require.NoError(t, err)
	return len(entries)
}

func TestRunner_SuccessfulJob(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 2)

	j := New("test", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		return writeArtifact(ws, "out.bin", 10)
	})

	res, err := r.Submit(context.Background(), j)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, int64(10), res.Size)
	assert.Equal(t, "out.bin", res.Filename)
	assert.FileExists(t, res.Path)

	// The artifact survives until the caller invokes the deferred cleanup.
	res.Cleanup()
	assert.NoFileExists(t, res.Path)
	assert.Zero(t, scratchEntries(t, r))
}

func TestRunner_CleanupIsIdempotent(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 1)

	j := New("test", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		return writeArtifact(ws, "out.bin", 10)
	})

	res, err := r.Submit(context.Background(), j)
	require.NoError(t, err)

	res.Cleanup()
	assert.NotPanics(t, res.Cleanup)
	assert.NotPanics(t, res.Cleanup)
	assert.Zero(t, scratchEntries(t, r))
}

func TestRunner_Timeout(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 1)

	// The work function ignores cancellation, standing in for a blocking
	// library call that cannot be preempted.
	j := New("test", 50*time.Millisecond, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		if _, err := ws.Dir(); err != nil {
			return nil, err
		}
		time.Sleep(400 * time.Millisecond)
		return writeArtifact(ws, "late.bin", 10)
	})

	start := time.Now()
	res, err := r.Submit(context.Background(), j)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, 300*time.Millisecond,
		"Submit should return close to the deadline, not wait for the work function")

	// The workspace is reclaimed asynchronously once the late call returns.
	assert.Eventually(t, func() bool {
		return scratchEntries(t, r) == 0
	}, 2*time.Second, 20*time.Millisecond, "workspace should be reclaimed after the late return")
}

func TestRunner_OutputOverCeiling(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 1)

	j := New("test", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		return writeArtifact(ws, "big.bin", 2048)
	})

	res, err := r.Submit(context.Background(), j)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrResourceExceeded)
	assert.Zero(t, scratchEntries(t, r), "no partial output may remain")
}

func TestRunner_PoolSerializesJobs(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 1)

	firstRunning := make(chan struct{})
	releaseFirst := make(chan struct{})
	secondStarted := make(chan struct{})

	go func() {
		j := New("first", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
			close(firstRunning)
			<-releaseFirst
			return writeArtifact(ws, "first.bin", 1)
		})
		res, err := r.Submit(context.Background(), j)
		if err == nil {
			res.Cleanup()
		}
	}()

	<-firstRunning

	go func() {
		j := New("second", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
			close(secondStarted)
			return writeArtifact(ws, "second.bin", 1)
		})
		res, err := r.Submit(context.Background(), j)
		if err == nil {
			res.Cleanup()
		}
	}()

	// With a single slot the second work function must not start while the
	// first still holds it.
	select {
	case <-secondStarted:
		t.Fatal("second job started while the first held the only worker slot")
	case <-time.After(150 * time.Millisecond):
	}

	close(releaseFirst)

	select {
	case <-secondStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("second job never started after the slot was released")
	}
}

func TestRunner_UpstreamFailureClassification(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 1)

	j := New("test", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		if _, err := ws.Dir(); err != nil {
			return nil, err
		}
		return nil, errors.New("video is unavailable")
	})

	res, err := r.Submit(context.Background(), j)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Zero(t, scratchEntries(t, r))
}

func TestRunner_JanitorReclaimsUnconsumedArtifact(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 1)

	j := New("test", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		return writeArtifact(ws, "out.bin", 10)
	})

	res, err := r.Submit(context.Background(), j)
	require.NoError(t, err)
	require.FileExists(t, res.Path)

	// The caller never invokes Cleanup; the janitor must reclaim the
	// artifact after the TTL.
	assert.Eventually(t, func() bool {
		return scratchEntries(t, r) == 0
	}, 2*time.Second, 20*time.Millisecond)

	// A late Cleanup call after reclamation stays harmless.
	assert.NotPanics(t, res.Cleanup)
}

func TestRunner_WorkFunctionPanic(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 1)

	j := New("test", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		if _, err := ws.Dir(); err != nil {
			return nil, err
		}
		panic("boom")
	})

	res, err := r.Submit(context.Background(), j)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Zero(t, scratchEntries(t, r))

	// The slot must survive the panic: a follow-up job still runs.
	ok := New("test", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		return writeArtifact(ws, "ok.bin", 1)
	})
	res, err = r.Submit(context.Background(), ok)
	require.NoError(t, err)
	res.Cleanup()
}

func TestRunner_CallerCancellation(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 1)

	ctx, cancel := context.WithCancel(context.Background())

	j := New("test", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		if _, err := ws.Dir(); err != nil {
			return nil, err
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res, err := r.Submit(ctx, j)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrCanceled)

	assert.Eventually(t, func() bool {
		return scratchEntries(t, r) == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRunner_RejectsInvalidLimits(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 1)

	work := func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		return writeArtifact(ws, "out.bin", 1)
	}

	t.Run("zero deadline", func(t *testing.T) {
		t.Parallel()
		_, err := r.Submit(context.Background(), Job{Work: work, MaxOutputBytes: 1})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("zero size ceiling", func(t *testing.T) {
		t.Parallel()
		_, err := r.Submit(context.Background(), Job{Work: work, Deadline: time.Second})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("nil work function", func(t *testing.T) {
		t.Parallel()
		_, err := r.Submit(context.Background(), Job{Deadline: time.Second, MaxOutputBytes: 1})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestRunner_SlotReleasedAfterFailure(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, 1)

	fail := New("test", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		return nil, errors.New("network error")
	})
	_, err := r.Submit(context.Background(), fail)
	require.Error(t, err)

	ok := New("test", time.Second, 1024, func(ctx context.Context, ws *Workspace) (*Artifact, error) {
		return writeArtifact(ws, "ok.bin", 1)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		res, err := r.Submit(context.Background(), ok)
		assert.NoError(t, err)
		if err == nil {
			res.Cleanup()
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("slot was not released after the failing job")
	}
}
