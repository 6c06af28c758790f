package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WorkFunc is the unit of blocking work a job performs. It receives a
// job-scoped workspace for any on-disk output and should honor ctx
// cancellation where the underlying library allows it. The returned artifact
// must point at a file inside the workspace.
type WorkFunc func(ctx context.Context, ws *Workspace) (*Artifact, error)

// Job is one bounded unit of blocking work. Jobs are created per request,
// submitted once, and discarded after their result is consumed; they are
// never retried or rescheduled.
type Job struct {
	// ID uniquely identifies the job and names its workspace directory.
	ID uuid.UUID

	// Op is a short operation label used in logs (e.g. "download", "tts").
	Op string

	// Deadline is the maximum wall-clock duration the caller will wait.
	// Must be positive.
	Deadline time.Duration

	// MaxOutputBytes is the ceiling on the produced artifact's size,
	// enforced after the work function returns. Must be positive.
	MaxOutputBytes int64

	// Work performs the actual blocking call.
	Work WorkFunc
}

// New creates a job with a fresh identifier.
func New(op string, deadline time.Duration, maxOutputBytes int64, work WorkFunc) Job {
	return Job{
		ID:             uuid.New(),
		Op:             op,
		Deadline:       deadline,
		MaxOutputBytes: maxOutputBytes,
		Work:           work,
	}
}

// Artifact describes the file a successful work function produced.
type Artifact struct {
	// Path is the absolute location of the produced file, inside the
	// job's workspace.
	Path string

	// ContentType is the MIME type to serve the file with.
	ContentType string

	// Filename is the suggested download filename.
	Filename string

	// Size is the file's length in bytes, filled in by the runner after
	// the size ceiling has been checked.
	Size int64
}

// Result is the successful outcome of a job. Ownership of the artifact
// transfers to the caller, who must invoke Cleanup exactly once after the
// file has been fully consumed, on every exit path. Calling Cleanup more
// than once is harmless.
type Result struct {
	Artifact

	// Cleanup releases the artifact's workspace. Idempotent.
	Cleanup func()
}
