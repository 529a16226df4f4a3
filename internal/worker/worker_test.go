package worker

import (
	"context"
	"testing"

	"github.com/tomasbasham/webcapd/internal/browser"
	"github.com/tomasbasham/webcapd/internal/task"
	"github.com/tomasbasham/webcapd/internal/workerstate"
)

type stubCapturer struct {
	result task.CaptureResult
}

func (s *stubCapturer) Capture(ctx context.Context, sess browser.Session, t task.CaptureTask, workerID string) task.CaptureResult {
	r := s.result
	r.Task = t
	r.WorkerID = workerID
	return r
}

func TestConnectSuccessTransitionsToIdle(t *testing.T) {
	gw := browser.NewFakeGateway()
	w := New("worker-1", "ws://endpoint", gw, &stubCapturer{}, 0, nil)

	if ok := w.Connect(context.Background()); !ok {
		t.Fatal("expected Connect to succeed")
	}
	if w.State() != workerstate.Idle {
		t.Fatalf("want idle, got %s", w.State())
	}
	if !w.Healthy() {
		t.Fatal("expected healthy after connect")
	}
}

func TestConnectFailureTransitionsToError(t *testing.T) {
	gw := browser.NewFakeGateway()
	gw.FailEndpoints["ws://bad"] = true
	w := New("worker-1", "ws://bad", gw, &stubCapturer{}, 0, nil)

	if ok := w.Connect(context.Background()); ok {
		t.Fatal("expected Connect to fail")
	}
	if w.State() != workerstate.Error {
		t.Fatalf("want error, got %s", w.State())
	}
	info := w.Info()
	if info.ErrorCount != 0 {
		t.Fatalf("connect failure must not touch errorCount, got %d", info.ErrorCount)
	}
	if len(info.ErrorHistory) != 1 {
		t.Fatalf("want 1 history entry, got %d", len(info.ErrorHistory))
	}
	if info.ErrorHistory[0].Task != nil {
		t.Fatalf("connect failure history entry must have no task attached")
	}
}

func TestProcessWhenNotHealthyReturnsSyntheticFailure(t *testing.T) {
	w := New("worker-1", "ws://endpoint", browser.NewFakeGateway(), &stubCapturer{}, 0, nil)
	// never connected: state is stopped

	result := w.Process(context.Background(), task.CaptureTask{ID: "t1"})

	if result.Status != task.StatusFailed {
		t.Fatalf("want failed, got %s", result.Status)
	}
	if result.CaptureProcessingTimeMs != 0 {
		t.Fatalf("want 0ms, got %d", result.CaptureProcessingTimeMs)
	}
	info := w.Info()
	if info.ProcessedCount != 0 || info.ErrorCount != 0 {
		t.Fatalf("must not touch counters, got %+v", info)
	}
}

func TestProcessSuccessIncrementsProcessedAndReturnsIdle(t *testing.T) {
	gw := browser.NewFakeGateway()
	w := New("worker-1", "ws://endpoint", gw, &stubCapturer{result: task.CaptureResult{Status: task.StatusSuccess}}, 0, nil)
	w.Connect(context.Background())

	result := w.Process(context.Background(), task.CaptureTask{ID: "t1"})

	if result.Status != task.StatusSuccess {
		t.Fatalf("want success, got %s", result.Status)
	}
	info := w.Info()
	if info.ProcessedCount != 1 {
		t.Fatalf("want processedCount 1, got %d", info.ProcessedCount)
	}
	if info.ErrorCount != 0 {
		t.Fatalf("want errorCount 0, got %d", info.ErrorCount)
	}
	if w.State() != workerstate.Idle {
		t.Fatalf("want idle, got %s", w.State())
	}
}

func TestProcessFailureRecordsErrorAndReturnsIdle(t *testing.T) {
	gw := browser.NewFakeGateway()
	ed := task.NewHTTPError(500, "Internal Server Error")
	w := New("worker-1", "ws://endpoint", gw, &stubCapturer{result: task.CaptureResult{
		Status:       task.StatusHTTPError,
		ErrorDetails: &ed,
	}}, 0, nil)
	w.Connect(context.Background())

	result := w.Process(context.Background(), task.CaptureTask{ID: "t1", URL: "https://example.com"})

	if result.Status != task.StatusHTTPError {
		t.Fatalf("want httpError, got %s", result.Status)
	}
	info := w.Info()
	if info.ErrorCount != 1 {
		t.Fatalf("want errorCount 1, got %d", info.ErrorCount)
	}
	if len(info.ErrorHistory) != 1 || info.ErrorHistory[0].Task == nil {
		t.Fatalf("want 1 history entry with task ref, got %+v", info.ErrorHistory)
	}
	if w.State() != workerstate.Idle {
		t.Fatalf("http error should not disconnect worker, want idle got %s", w.State())
	}
}

func TestProcessDisconnectedFailureTransitionsToError(t *testing.T) {
	gw := browser.NewFakeGateway()
	ed := task.NewConnectionError("session closed unexpectedly")
	w := New("worker-1", "ws://endpoint", gw, &stubCapturer{result: task.CaptureResult{
		Status:       task.StatusFailed,
		ErrorDetails: &ed,
	}}, 0, nil)
	w.Connect(context.Background())

	w.Process(context.Background(), task.CaptureTask{ID: "t1"})

	if w.State() != workerstate.Error {
		t.Fatalf("want error after disconnect-like failure, got %s", w.State())
	}
	if w.Healthy() {
		t.Fatal("expected unhealthy after disconnect-like failure")
	}
}

func TestErrorHistoryBoundedAtTenNewestFirst(t *testing.T) {
	gw := browser.NewFakeGateway()
	ed := task.NewInternalError("boom")
	w := New("worker-1", "ws://endpoint", gw, &stubCapturer{result: task.CaptureResult{
		Status:       task.StatusFailed,
		ErrorDetails: &ed,
	}}, 0, nil)
	w.Connect(context.Background())

	ids := "abcdefghijklmno"
	for i := 0; i < 15; i++ {
		w.Process(context.Background(), task.CaptureTask{ID: ids[i : i+1]})
	}

	info := w.Info()
	if len(info.ErrorHistory) != maxErrorHistory {
		t.Fatalf("want %d entries, got %d", maxErrorHistory, len(info.ErrorHistory))
	}
	if got := info.ErrorHistory[0].Task.TaskID; got != "o" {
		t.Fatalf("want newest entry (task o) first, got %q", got)
	}
	if got := info.ErrorHistory[maxErrorHistory-1].Task.TaskID; got != "f" {
		t.Fatalf("want oldest kept entry (task f) last, got %q", got)
	}
	if info.ErrorCount != 15 {
		t.Fatalf("want errorCount 15 (unbounded counter), got %d", info.ErrorCount)
	}
}

func TestInfoErrorHistoryIsDefensiveCopy(t *testing.T) {
	gw := browser.NewFakeGateway()
	ed := task.NewInternalError("boom")
	w := New("worker-1", "ws://endpoint", gw, &stubCapturer{result: task.CaptureResult{
		Status:       task.StatusFailed,
		ErrorDetails: &ed,
	}}, 0, nil)
	w.Connect(context.Background())
	w.Process(context.Background(), task.CaptureTask{ID: "t1"})

	info := w.Info()
	info.ErrorHistory[0].ErrorDetails.Message = "mutated"

	info2 := w.Info()
	if info2.ErrorHistory[0].ErrorDetails.Message == "mutated" {
		t.Fatalf("expected internal state unaffected by external mutation")
	}
}

func TestDisconnectIsBestEffortAndStops(t *testing.T) {
	gw := browser.NewFakeGateway()
	w := New("worker-1", "ws://endpoint", gw, &stubCapturer{}, 0, nil)
	w.Connect(context.Background())

	w.Disconnect()

	if w.State() != workerstate.Stopped {
		t.Fatalf("want stopped, got %s", w.State())
	}
}
