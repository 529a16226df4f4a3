package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/tomasbasham/webcapd/internal/browser"
	"github.com/tomasbasham/webcapd/internal/storage"
	"github.com/tomasbasham/webcapd/internal/task"
)

type fakeUploader struct {
	failExt string
}

func (u *fakeUploader) Upload(ctx context.Context, req *storage.UploadRequest) (*storage.UploadResult, error) {
	if u.failExt != "" && len(req.ObjectName) > 0 && req.ObjectName[len(req.ObjectName)-len(u.failExt):] == u.failExt {
		return nil, errors.New("upload failed")
	}
	return &storage.UploadResult{ObjectName: req.ObjectName, SignedURL: "https://mirror.example/" + req.ObjectName}, nil
}

func TestMirroringCapturerAttachesSignedURLs(t *testing.T) {
	c := testCapturer(t)
	m := NewMirroring(c, &fakeUploader{})

	sess := browser.NewFakeSession()
	sess.Pages = []*browser.FakePage{{NavStatus: 200, ScreenshotData: []byte("img"), HTMLData: "<html></html>"}}

	result := m.Capture(context.Background(), sess, testTask(task.CaptureOptions{PNG: true, HTML: true}), "worker-1")

	if result.Status != task.StatusSuccess {
		t.Fatalf("want success, got %s", result.Status)
	}
	if result.MirroredArtefacts["png"] == "" || result.MirroredArtefacts["html"] == "" {
		t.Fatalf("want mirrored urls for png and html, got %+v", result.MirroredArtefacts)
	}
}

func TestMirroringCapturerSkippedOnFailure(t *testing.T) {
	c := testCapturer(t)
	m := NewMirroring(c, &fakeUploader{})

	sess := browser.NewFakeSession()
	sess.Pages = []*browser.FakePage{{NavStatus: 500}}

	result := m.Capture(context.Background(), sess, testTask(task.CaptureOptions{PNG: true}), "worker-1")

	if result.Status == task.StatusSuccess {
		t.Fatalf("expected non-success")
	}
	if result.MirroredArtefacts != nil {
		t.Fatalf("expected no mirroring attempted on failure")
	}
}

func TestMirroringCapturerUploadFailureIsBestEffort(t *testing.T) {
	c := testCapturer(t)
	m := NewMirroring(c, &fakeUploader{failExt: ".png"})

	sess := browser.NewFakeSession()
	sess.Pages = []*browser.FakePage{{NavStatus: 200, ScreenshotData: []byte("img"), HTMLData: "<html></html>"}}

	result := m.Capture(context.Background(), sess, testTask(task.CaptureOptions{PNG: true, HTML: true}), "worker-1")

	if result.Status != task.StatusSuccess {
		t.Fatalf("want success regardless of mirror failure, got %s", result.Status)
	}
	if _, ok := result.MirroredArtefacts["png"]; ok {
		t.Fatalf("expected png mirror to be absent after upload failure")
	}
	if result.MirroredArtefacts["html"] == "" {
		t.Fatalf("expected html mirror to still succeed")
	}
}

func TestNilUploaderIsPassthrough(t *testing.T) {
	c := testCapturer(t)
	m := NewMirroring(c, nil)

	sess := browser.NewFakeSession()
	sess.Pages = []*browser.FakePage{{NavStatus: 200, ScreenshotData: []byte("img")}}

	result := m.Capture(context.Background(), sess, testTask(task.CaptureOptions{PNG: true}), "worker-1")

	if result.MirroredArtefacts != nil {
		t.Fatalf("expected no mirroring with nil uploader")
	}
}
