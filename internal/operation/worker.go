package operation

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tomasbasham/webcapd/internal/browser"
	"github.com/tomasbasham/webcapd/internal/storage"
	"github.com/tomasbasham/webcapd/internal/task"
)

// Capturer is the subset of capture.Capturer (and capture.MirroringCapturer)
// that a one-shot operation needs. Defined locally to avoid operation
// depending on the worker package for its Capturer interface.
type Capturer interface {
	Capture(ctx context.Context, sess browser.Session, t task.CaptureTask, workerID string) task.CaptureResult
}

// RunOptions configures a single debug capture run, the kind issued by the
// `webcapd capture` CLI command rather than the dispatch pool: one endpoint,
// one URL, tracked through the pending → running → complete | failed
// lifecycle so the CLI can report it the same way the HTTP status endpoint
// would for a pooled task.
type RunOptions struct {
	Endpoint       string
	URL            string
	CaptureOptions task.CaptureOptions

	OperationID string
	Store       Store
	Gateway     browser.Gateway
	Capturer    Capturer

	// Uploader is optional; when nil artefacts are left on disk and no
	// Artefacts are attached to the operation.
	Uploader storage.Uploader
}

// Run connects to opts.Endpoint, performs one capture, optionally mirrors
// the resulting artefacts through opts.Uploader, and transitions the
// operation through running → complete | failed. Run is synchronous; the
// caller decides whether to invoke it in a goroutine.
func Run(ctx context.Context, opts RunOptions) {
	if err := opts.Store.MarkRunning(opts.OperationID); err != nil {
		return
	}

	sess, err := opts.Gateway.Connect(ctx, opts.Endpoint, 0)
	if err != nil {
		_ = opts.Store.MarkFailed(opts.OperationID, fmt.Errorf("connect: %w", err))
		return
	}
	defer sess.Close()

	t := task.CaptureTask{
		ID:             opts.OperationID,
		URL:            opts.URL,
		CaptureOptions: opts.CaptureOptions,
	}

	result := opts.Capturer.Capture(ctx, sess, t, "debug")
	if result.Status != task.StatusSuccess {
		msg := "capture failed"
		if result.ErrorDetails != nil {
			msg = result.ErrorDetails.Message
		}
		_ = opts.Store.MarkFailed(opts.OperationID, fmt.Errorf("%s", msg))
		return
	}

	var artefacts []Artefact
	if opts.Uploader != nil {
		artefacts, err = uploadArtefacts(ctx, opts.OperationID, result, opts.Uploader)
		if err != nil {
			_ = opts.Store.MarkFailed(opts.OperationID, fmt.Errorf("upload: %w", err))
			return
		}
	}

	ttfb := time.Duration(result.CaptureProcessingTimeMs) * time.Millisecond
	_ = opts.Store.MarkComplete(opts.OperationID, ttfb, result.Status == task.StatusTimeout, artefacts)
}

// uploadArtefacts reads whichever artefact paths result populated from disk
// and mirrors each through uploader, returning the Artefact records ready to
// attach to the operation.
func uploadArtefacts(ctx context.Context, operationID string, result task.CaptureResult, uploader storage.Uploader) ([]Artefact, error) {
	var artefacts []Artefact

	paths := map[string]struct {
		path        string
		contentType string
	}{
		"png":  {result.PNGPath, "image/png"},
		"jpeg": {result.JPEGPath, "image/jpeg"},
		"html": {result.HTMLPath, "text/html"},
	}

	for name, p := range paths {
		if p.path == "" {
			continue
		}

		f, err := os.Open(p.path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		uploaded, err := uploader.Upload(ctx, &storage.UploadRequest{
			ObjectName:  objectPath(operationID, name),
			Content:     f,
			ContentType: p.contentType,
		})
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		artefacts = append(artefacts, Artefact{
			Name:      name,
			SignedURL: uploaded.SignedURL,
			ExpiresAt: uploaded.ExpiresAt,
		})
	}

	return artefacts, nil
}

func objectPath(operationID, name string) string {
	date := time.Now().UTC().Format("2006/01/02")
	ext := "bin"
	switch name {
	case "png":
		ext = "png"
	case "jpeg":
		ext = "jpg"
	case "html":
		ext = "html"
	}
	return fmt.Sprintf("operations/%s/%s/%s.%s", date, operationID, name, ext)
}
