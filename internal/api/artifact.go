package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/multiserve/multiserve/internal/api/shared"
	"github.com/multiserve/multiserve/internal/job"
)

// Submitter abstracts the bounded job runner for handlers and tests.
type Submitter interface {
	Submit(ctx context.Context, j job.Job) (*job.Result, error)
}

// serveArtifact streams a successful job result to the client as a file
// download. The result's deferred cleanup runs on every exit path, including
// a mid-stream client disconnect.
func serveArtifact(w http.ResponseWriter, r *http.Request, res *job.Result) {
	defer res.Cleanup()

	f, err := os.Open(res.Path)
	if err != nil {
		slog.Error("failed to open artifact for streaming",
			"trace_id", shared.GetTraceID(r.Context()),
			"error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	defer func() {
		_ = f.Close()
	}()

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		// Headers are already out; all we can do is log the broken stream.
		slog.Debug("artifact stream interrupted",
			"trace_id", shared.GetTraceID(r.Context()),
			"error", err)
	}
}
