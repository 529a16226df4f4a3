// Package worker implements Worker: the owner of one browser Session that
// executes one capture at a time, per spec.md §4.3.
package worker

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tomasbasham/webcapd/internal/browser"
	"github.com/tomasbasham/webcapd/internal/task"
	"github.com/tomasbasham/webcapd/internal/workerstate"
)

// maxErrorHistory bounds the newest-first error history per spec.md §4.3.
const maxErrorHistory = 10

// Capturer is the subset of capture.Capturer Worker depends on.
type Capturer interface {
	Capture(ctx context.Context, sess browser.Session, t task.CaptureTask, workerID string) task.CaptureResult
}

// Info is a defensive-copy snapshot of one Worker's externally visible
// state, per spec.md §3's WorkerInfo.
type Info struct {
	ID              string
	BrowserEndpoint string
	Status          workerstate.State
	ProcessedCount  int
	ErrorCount      int
	ErrorHistory    []task.ErrorRecord
}

// Worker owns exactly one Session for its entire lifetime and drives
// Capturer against it, one capture at a time.
type Worker struct {
	id              string
	browserEndpoint string
	gateway         browser.Gateway
	capturer        Capturer
	slowMo          time.Duration
	log             *logrus.Logger

	mu             sync.Mutex
	state          *workerstate.Manager
	session        browser.Session
	processedCount int
	errorCount     int
	errorHistory   []task.ErrorRecord
}

// New constructs a Worker bound to one configured browser endpoint. It
// starts in the stopped state; Connect must be called before Process. A nil
// log discards everything, so callers that don't care about worker-level
// logging (e.g. tests) can omit it.
func New(id, browserEndpoint string, gateway browser.Gateway, capturer Capturer, slowMo time.Duration, log *logrus.Logger) *Worker {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Worker{
		id:              id,
		browserEndpoint: browserEndpoint,
		gateway:         gateway,
		capturer:        capturer,
		slowMo:          slowMo,
		log:             log,
		state:           workerstate.New(),
	}
}

// ID returns this worker's identifier.
func (w *Worker) ID() string { return w.id }

// Connect attempts to open a Session via the Gateway. On success the worker
// transitions stopped→idle and returns true; on failure it transitions
// stopped→error, records the failure to history with no task attached, and
// returns false.
func (w *Worker) Connect(ctx context.Context) bool {
	sess, err := w.gateway.Connect(ctx, w.browserEndpoint, w.slowMo)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		ed := task.NewConnectionError(err.Error())
		w.recordError(ed, nil)
		_ = w.state.Transition(workerstate.Error)
		return false
	}

	w.session = sess
	_ = w.state.Transition(workerstate.Idle)
	return true
}

// Disconnect best-effort closes the Session (errors swallowed) and
// transitions to stopped.
func (w *Worker) Disconnect() {
	w.mu.Lock()
	sess := w.session
	w.session = nil
	w.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}

	w.mu.Lock()
	_ = w.state.Transition(workerstate.Stopped)
	w.mu.Unlock()
}

// Process runs one capture attempt. If the worker is not healthy or has no
// session, it returns a synthetic failed result without touching counters
// or state, per spec.md §4.3.
func (w *Worker) Process(ctx context.Context, t task.CaptureTask) task.CaptureResult {
	w.mu.Lock()
	if !w.state.Healthy() || w.session == nil {
		w.mu.Unlock()
		ed := task.NewInternalError("worker not healthy or has no session")
		return task.CaptureResult{
			Task:                    t,
			Status:                  task.StatusFailed,
			ErrorDetails:            &ed,
			CaptureProcessingTimeMs: 0,
			Timestamp:               time.Now().UTC(),
			WorkerID:                w.id,
		}
	}
	sess := w.session
	_ = w.state.Transition(workerstate.Busy)
	w.mu.Unlock()

	result := w.capturer.Capture(ctx, sess, t, w.id)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.processedCount++
	if result.Status != task.StatusSuccess {
		w.errorCount++
		ed := task.ErrorDetails{}
		if result.ErrorDetails != nil {
			ed = *result.ErrorDetails
		}
		ref := task.RefOf(t)
		w.recordError(ed, &ref)
		w.logTerminalFailure(t, ed)
	}

	if result.ErrorDetails != nil && isDisconnected(result.ErrorDetails.Message) {
		_ = w.state.Transition(workerstate.Error)
	} else {
		_ = w.state.Transition(workerstate.Idle)
	}

	return result
}

// logTerminalFailure logs a non-success CaptureResult per spec.md §7: warn
// for every terminal failure, escalated to error when the classifier gave up
// and called it internal.
func (w *Worker) logTerminalFailure(t task.CaptureTask, ed task.ErrorDetails) {
	fields := logrus.Fields{
		"task_id":    t.ID,
		"url":        t.URL,
		"worker_id":  w.id,
		"error_type": ed.Type,
	}
	if ed.Type == task.ErrorTypeInternal {
		w.log.WithFields(fields).Error(ed.Message)
		return
	}
	w.log.WithFields(fields).Warn(ed.Message)
}

// recordError prepends an ErrorRecord to history, dropping the oldest entry
// past maxErrorHistory. Caller must hold w.mu.
func (w *Worker) recordError(ed task.ErrorDetails, ref *task.Ref) {
	rec := task.ErrorRecord{
		ErrorDetails: ed,
		Timestamp:    time.Now().UTC(),
		Task:         ref,
	}
	w.errorHistory = append([]task.ErrorRecord{rec}, w.errorHistory...)
	if len(w.errorHistory) > maxErrorHistory {
		w.errorHistory = w.errorHistory[:maxErrorHistory]
	}
}

// isDisconnected applies the Worker-level (not ErrorClassifier-level)
// substring rule from spec.md §4.3 for deciding busy→error vs busy→idle.
func isDisconnected(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "disconnect") || strings.Contains(lower, "closed")
}

// Healthy reports whether this worker's state is idle or busy.
func (w *Worker) Healthy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Healthy()
}

// State returns the current lifecycle state.
func (w *Worker) State() workerstate.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.State()
}

// Info returns a self-consistent, defensive-copy snapshot of this worker's
// externally visible state.
func (w *Worker) Info() Info {
	w.mu.Lock()
	defer w.mu.Unlock()

	history := make([]task.ErrorRecord, len(w.errorHistory))
	copy(history, w.errorHistory)

	return Info{
		ID:              w.id,
		BrowserEndpoint: w.browserEndpoint,
		Status:          w.state.State(),
		ProcessedCount:  w.processedCount,
		ErrorCount:      w.errorCount,
		ErrorHistory:    history,
	}
}
