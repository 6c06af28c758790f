package job

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunnerConfig holds configuration for the job runner.
type RunnerConfig struct {
	// Workers is the number of concurrent worker slots. Jobs beyond this
	// count wait for a slot before their work function starts.
	Workers int

	// ScratchDir is the root under which per-job workspaces are created.
	// If empty, a directory under the system temp dir is used.
	ScratchDir string

	// ArtifactTTL is how long a successful artifact may sit unconsumed
	// before the janitor reclaims it.
	ArtifactTTL time.Duration

	// SweepInterval is how often the janitor checks for expired artifacts.
	SweepInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults for a
// constrained host.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:       2,
		ScratchDir:    filepath.Join(os.TempDir(), "multiserve"),
		ArtifactTTL:   10 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// pendingArtifact tracks a successful result whose deferred cleanup has not
// run yet, so the janitor can reclaim it if the caller never does.
type pendingArtifact struct {
	cleanup func()
	expires time.Time
}

// Runner executes blocking work functions on a fixed pool of worker slots,
// enforcing each job's deadline and output size ceiling and guaranteeing
// deterministic reclamation of job workspaces.
type Runner struct {
	cfg    RunnerConfig
	slots  chan struct{}
	logger *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingArtifact

	done chan struct{}
	wg   sync.WaitGroup
}

// NewRunner creates a runner, materializes its scratch root, and starts the
// janitor goroutine. Call Close to stop it.
func NewRunner(cfg RunnerConfig, logger *slog.Logger) (*Runner, error) {
	def := DefaultRunnerConfig()
	if cfg.Workers <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", cfg.Workers,
			"default_count", def.Workers)
		cfg.Workers = def.Workers
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = def.ScratchDir
	}
	if cfg.ArtifactTTL <= 0 {
		cfg.ArtifactTTL = def.ArtifactTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}

	if err := os.MkdirAll(cfg.ScratchDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}

	r := &Runner{
		cfg:     cfg,
		slots:   make(chan struct{}, cfg.Workers),
		logger:  logger,
		pending: make(map[uuid.UUID]*pendingArtifact),
		done:    make(chan struct{}),
	}

	r.wg.Add(1)
	go r.janitor()

	return r, nil
}

// Submit executes the job's work function on a worker slot and blocks the
// calling goroutine until a classified outcome is available. Only the
// calling goroutine suspends; other requests proceed independently.
//
// The deadline is advisory to the work function (a blocking library call
// may not support preemption) but authoritative for the caller: once it
// elapses Submit returns ErrTimeout immediately and the workspace is
// reclaimed in the background when the underlying call eventually returns.
// The worker slot is likewise held until the call actually finishes, so a
// timed-out job cannot be used to oversubscribe the pool.
func (r *Runner) Submit(ctx context.Context, j Job) (*Result, error) {
	if j.Work == nil {
		return nil, fmt.Errorf("%w: job has no work function", ErrInvalidInput)
	}
	if j.Deadline <= 0 {
		return nil, fmt.Errorf("%w: deadline must be positive", ErrInvalidInput)
	}
	if j.MaxOutputBytes <= 0 {
		return nil, fmt.Errorf("%w: output size ceiling must be positive", ErrInvalidInput)
	}

	logger := r.logger.With("job_id", j.ID, "op", j.Op)

	// Acquire a worker slot. This is the only cross-job synchronization
	// point; workspaces are partitioned per job by construction.
	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, Classify(ctx.Err())
	}

	ws := NewWorkspace(r.cfg.ScratchDir, j.ID)

	runCtx, cancel := context.WithTimeout(ctx, j.Deadline)

	type outcome struct {
		art *Artifact
		err error
	}
	doneCh := make(chan outcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				doneCh <- outcome{err: fmt.Errorf("%w: work function panic: %v", ErrInternal, p)}
			}
		}()
		art, err := j.Work(runCtx, ws)
		doneCh <- outcome{art: art, err: err}
	}()

	select {
	case out := <-doneCh:
		cancel()
		r.releaseSlot()
		return r.finish(j, logger, ws, out.art, out.err)

	case <-runCtx.Done():
		// The caller gets its outcome now; the workspace and the slot are
		// reclaimed in the background once the work function returns.
		go func() {
			defer cancel()
			<-doneCh
			if err := ws.Remove(); err != nil {
				logger.Error("failed to remove workspace after late return", "error", err)
			}
			r.releaseSlot()
			logger.Debug("late work function returned, workspace reclaimed")
		}()

		if err := ctx.Err(); err != nil {
			logger.Info("job abandoned by caller", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrCanceled, err)
		}
		logger.Warn("job exceeded deadline", "deadline", j.Deadline)
		return nil, fmt.Errorf("%w: job exceeded %s deadline", ErrTimeout, j.Deadline)
	}
}

// finish validates a completed job's outcome: failures and oversized output
// lose their workspace before Submit returns, successes are registered with
// the janitor and handed to the caller with a deferred cleanup callback.
func (r *Runner) finish(j Job, logger *slog.Logger, ws *Workspace, art *Artifact, workErr error) (*Result, error) {
	if workErr != nil {
		r.removeWorkspace(logger, ws)
		classified := Classify(workErr)
		logger.Warn("job failed", "error", classified)
		return nil, classified
	}

	if art == nil || art.Path == "" {
		r.removeWorkspace(logger, ws)
		return nil, fmt.Errorf("%w: work function returned no artifact", ErrInternal)
	}

	info, err := os.Stat(art.Path)
	if err != nil {
		r.removeWorkspace(logger, ws)
		return nil, fmt.Errorf("%w: artifact not readable: %v", ErrInternal, err)
	}

	// Size is enforced post-hoc against the actual bytes on disk; any
	// upstream metadata checks are optimizations only.
	if info.Size() > j.MaxOutputBytes {
		r.removeWorkspace(logger, ws)
		logger.Warn("job output over size ceiling",
			"size", info.Size(),
			"ceiling", j.MaxOutputBytes)
		return nil, fmt.Errorf("%w: output is %d bytes, limit is %d",
			ErrResourceExceeded, info.Size(), j.MaxOutputBytes)
	}
	art.Size = info.Size()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			r.unregister(j.ID)
			if err := ws.Remove(); err != nil {
				logger.Error("failed to remove workspace", "error", err)
			}
		})
	}
	r.register(j.ID, cleanup)

	logger.Info("job completed", "size", art.Size, "filename", art.Filename)

	return &Result{Artifact: *art, Cleanup: cleanup}, nil
}

func (r *Runner) releaseSlot() {
	<-r.slots
}

func (r *Runner) removeWorkspace(logger *slog.Logger, ws *Workspace) {
	if err := ws.Remove(); err != nil {
		logger.Error("failed to remove workspace", "error", err)
	}
}

func (r *Runner) register(id uuid.UUID, cleanup func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[id] = &pendingArtifact{
		cleanup: cleanup,
		expires: time.Now().Add(r.cfg.ArtifactTTL),
	}
}

func (r *Runner) unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

// janitor periodically reclaims successful artifacts whose cleanup callback
// was never invoked, so an abandoned response cannot leak scratch space.
func (r *Runner) janitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			r.sweep(now)
		}
	}
}

// sweep runs one janitor pass. Cleanup callbacks are invoked outside the
// lock; the sync.Once inside each makes racing with the caller harmless.
func (r *Runner) sweep(now time.Time) {
	r.mu.Lock()
	var expired []func()
	for id, pa := range r.pending {
		if now.After(pa.expires) {
			expired = append(expired, pa.cleanup)
			r.logger.Info("reclaiming unconsumed artifact", "job_id", id)
		}
	}
	r.mu.Unlock()

	for _, cleanup := range expired {
		cleanup()
	}
}

// Close stops the janitor, reclaims any artifacts still pending, and removes
// the scratch root. Jobs still executing keep their goroutines until their
// work functions return; their workspaces live under the scratch root and
// are deleted with it.
func (r *Runner) Close() {
	close(r.done)
	r.wg.Wait()

	r.mu.Lock()
	cleanups := make([]func(), 0, len(r.pending))
	for _, pa := range r.pending {
		cleanups = append(cleanups, pa.cleanup)
	}
	r.mu.Unlock()

	for _, cleanup := range cleanups {
		cleanup()
	}

	if err := os.RemoveAll(r.cfg.ScratchDir); err != nil {
		r.logger.Error("failed to remove scratch dir", "error", err)
	}
}
