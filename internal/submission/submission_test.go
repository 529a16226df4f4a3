package submission

import (
	"testing"

	"github.com/tomasbasham/webcapd/internal/task"
)

type stubPool struct {
	running        bool
	healthyWorkers int
	enqueueErr     error
	enqueued       []task.CaptureTask
}

func (p *stubPool) Enqueue(t task.CaptureTask) error {
	if p.enqueueErr != nil {
		return p.enqueueErr
	}
	p.enqueued = append(p.enqueued, t)
	return nil
}
func (p *stubPool) Running() bool           { return p.running }
func (p *stubPool) HealthyWorkerCount() int { return p.healthyWorkers }

func readyPool() *stubPool {
	return &stubPool{running: true, healthyWorkers: 1}
}

func TestSubmitRejectsEmptyURL(t *testing.T) {
	f := New(readyPool())
	ack, err := f.Submit(Request{CaptureOptions: task.CaptureOptions{PNG: true}})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if ack.Accepted {
		t.Fatal("expected rejection")
	}
	if ack.Error != "url is required" {
		t.Fatalf("want url required message, got %q", ack.Error)
	}
	if ack.TaskID != "" {
		t.Fatalf("want empty taskId on rejection, got %q", ack.TaskID)
	}
}

func TestSubmitDropsBlankLabelsAndValidatesRest(t *testing.T) {
	f := New(readyPool())
	ack, err := f.Submit(Request{
		URL:            "https://example.com",
		Labels:         []string{"  ", "ok-label", "bad/label"},
		CaptureOptions: task.CaptureOptions{PNG: true},
	})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if ack.Accepted {
		t.Fatal("expected rejection due to invalid label")
	}
}

func TestSubmitValidatesCorrelationID(t *testing.T) {
	f := New(readyPool())
	ack, err := f.Submit(Request{
		URL:            "https://example.com",
		CorrelationID:  "has whitespace",
		CaptureOptions: task.CaptureOptions{PNG: true},
	})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if ack.Accepted {
		t.Fatal("expected rejection due to invalid correlationId")
	}
}

func TestSubmitRejectsNoCaptureOptions(t *testing.T) {
	f := New(readyPool())
	ack, err := f.Submit(Request{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if ack.Accepted {
		t.Fatal("expected rejection due to no capture options")
	}
}

func TestSubmitReturnsUnavailableWhenPoolNotRunning(t *testing.T) {
	f := New(&stubPool{running: false, healthyWorkers: 0})
	_, err := f.Submit(Request{URL: "https://example.com", CaptureOptions: task.CaptureOptions{PNG: true}})
	if err != ErrUnavailable {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

func TestSubmitReturnsUnavailableWhenZeroHealthyWorkers(t *testing.T) {
	f := New(&stubPool{running: true, healthyWorkers: 0})
	_, err := f.Submit(Request{URL: "https://example.com", CaptureOptions: task.CaptureOptions{PNG: true}})
	if err != ErrUnavailable {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

func TestSubmitSurfacesEnqueueRejectionInBand(t *testing.T) {
	pool := readyPool()
	pool.enqueueErr = errInline{"URL already in queue: https://example.com"}
	f := New(pool)

	ack, err := f.Submit(Request{URL: "https://example.com", CaptureOptions: task.CaptureOptions{PNG: true}})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if ack.Accepted {
		t.Fatal("expected in-band rejection")
	}
	if ack.Error != "URL already in queue: https://example.com" {
		t.Fatalf("want verbatim enqueue error, got %q", ack.Error)
	}
}

func TestSubmitSuccessAssignsUUIDAndEnqueues(t *testing.T) {
	pool := readyPool()
	f := New(pool)

	ack, err := f.Submit(Request{
		URL:            "https://example.com",
		CorrelationID:  "corr-1",
		CaptureOptions: task.CaptureOptions{PNG: true},
	})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if !ack.Accepted {
		t.Fatalf("expected acceptance, got error %q", ack.Error)
	}
	if ack.TaskID == "" {
		t.Fatal("expected non-empty taskId")
	}
	if ack.CorrelationID != "corr-1" {
		t.Fatalf("want corr-1, got %q", ack.CorrelationID)
	}
	if len(pool.enqueued) != 1 || pool.enqueued[0].ID != ack.TaskID {
		t.Fatalf("expected enqueued task to match acknowledged taskId")
	}
}

type errInline struct{ msg string }

func (e errInline) Error() string { return e.msg }
