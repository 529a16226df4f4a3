package capture

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomasbasham/webcapd/internal/browser"
	"github.com/tomasbasham/webcapd/internal/storage"
	"github.com/tomasbasham/webcapd/internal/task"
)

// Uploader is the subset of storage.Uploader a MirroringCapturer depends
// on.
type Uploader interface {
	Upload(ctx context.Context, req *storage.UploadRequest) (*storage.UploadResult, error)
}

// MirroringCapturer wraps a Capturer to additionally push successfully
// written artefacts to a secondary Uploader (local disk or GCS), attaching
// the resulting signed URLs to the result. Mirroring is best-effort: a
// failed upload only leaves that extension's entry out of the returned
// result; it never fails the capture itself.
type MirroringCapturer struct {
	*Capturer
	Uploader Uploader
}

// NewMirroring wraps c with an Uploader. A nil uploader makes Capture
// behave exactly like the wrapped Capturer.
func NewMirroring(c *Capturer, uploader Uploader) *MirroringCapturer {
	return &MirroringCapturer{Capturer: c, Uploader: uploader}
}

// Capture runs the wrapped PageCapturer algorithm, then mirrors any
// artefacts it wrote on success.
func (m *MirroringCapturer) Capture(ctx context.Context, sess browser.Session, t task.CaptureTask, workerID string) task.CaptureResult {
	result := m.Capturer.Capture(ctx, sess, t, workerID)
	if m.Uploader == nil || result.Status != task.StatusSuccess {
		return result
	}

	mirrored := map[string]string{}
	for ext, path := range map[string]string{"png": result.PNGPath, "jpeg": result.JPEGPath, "html": result.HTMLPath} {
		if path == "" {
			continue
		}
		if url, ok := m.mirrorOne(ctx, path); ok {
			mirrored[ext] = url
		}
	}
	if len(mirrored) > 0 {
		result.MirroredArtefacts = mirrored
	}
	return result
}

func (m *MirroringCapturer) mirrorOne(ctx context.Context, path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	res, err := m.Uploader.Upload(ctx, &storage.UploadRequest{
		ObjectName:  filepath.Base(path),
		Content:     f,
		ContentType: contentTypeFor(path),
	})
	if err != nil {
		return "", false
	}
	return res.SignedURL, true
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpeg", ".jpg":
		return "image/jpeg"
	case ".html":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
