// Package upload implements the 'upload' action: publishing one artifact to
// a pre-signed URL with an HTTP PUT.
package upload

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/ctxlog"
)

// Module implements the action.Module interface for this package.
type Module struct{}

// Register registers the handler with the action registry.
func (m *Module) Register(r *action.Registry) {
	r.Register(&handler{client: &http.Client{}})
}

type handler struct {
	// client is shared across executions to reuse TCP connections.
	client *http.Client
}

func (h *handler) Kind() action.Kind { return action.Upload }

func (h *handler) Run(ctx context.Context, env *action.BuildEnv, spec action.Spec) (action.Result, error) {
	in := spec.Upload
	logger := ctxlog.FromContext(ctx)

	source := env.InOut(env.ExpandVersion(in.Source))
	file, err := os.Open(source)
	if err != nil {
		return action.Result{}, fmt.Errorf("upload: opening source file '%s': %w", source, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return action.Result{}, fmt.Errorf("upload: stat '%s': %w", source, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, in.URL, file)
	if err != nil {
		return action.Result{}, fmt.Errorf("upload: creating request: %w", err)
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(source))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading artifact.", "source", source, "size", stat.Size(), "contentType", contentType)

	resp, err := h.client.Do(req)
	if err != nil {
		return action.Result{}, fmt.Errorf("upload: executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return action.Result{}, fmt.Errorf("upload failed with status: %s", resp.Status)
	}

	logger.Info("Upload complete.", "status", resp.Status)
	return action.Result{Output: in.URL}, nil
}
