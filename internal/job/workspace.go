package job

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workspace is a job-scoped temporary directory under the runner's scratch
// root. The directory is created lazily on first use, is owned exclusively
// by one job, and is removed exactly once no matter how many parties race
// to reclaim it.
type Workspace struct {
	path string

	mu      sync.Mutex
	created bool
	removed bool
}

// NewWorkspace creates a workspace handle under scratchRoot for the given
// job ID. Nothing touches the filesystem until Dir or Path is called.
func NewWorkspace(scratchRoot string, id uuid.UUID) *Workspace {
	return &Workspace{
		path: filepath.Join(scratchRoot, "job-"+id.String()),
	}
}

// Dir returns the workspace directory, creating it on first call.
// Returns an error if the workspace has already been removed.
func (w *Workspace) Dir() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.removed {
		return "", fmt.Errorf("workspace %s already removed", w.path)
	}
	if !w.created {
		if err := os.MkdirAll(w.path, 0o700); err != nil {
			return "", fmt.Errorf("failed to create workspace: %w", err)
		}
		w.created = true
	}
	return w.path, nil
}

// Path returns the location of name inside the workspace, creating the
// directory if needed.
func (w *Workspace) Path(name string) (string, error) {
	dir, err := w.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Remove deletes the workspace directory and everything in it. Safe to call
// multiple times and safe to call on a workspace that was never materialized
// on disk; only the first call after creation touches the filesystem.
func (w *Workspace) Remove() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.removed {
		return nil
	}
	w.removed = true
	if !w.created {
		return nil
	}
	if err := os.RemoveAll(w.path); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	return nil
}

// Exists reports whether the workspace directory is currently present on
// disk. Used by tests to assert the cleanup guarantees.
func (w *Workspace) Exists() bool {
	_, err := os.Stat(w.path)
	return err == nil
}
