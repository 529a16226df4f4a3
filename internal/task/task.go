// Package task defines the domain model shared across the dispatch
// subsystem: the capture task itself, its options, its eventual result, and
// the tagged error representation that flows between them. Nothing in this
// package depends on the queue, worker, or pool packages — they depend on
// it.
package task

import "fmt"

// CaptureOptions selects which artefacts a capture attempt should produce.
// At least one of the three must be true; Validate enforces this.
type CaptureOptions struct {
	PNG  bool `json:"png"`
	JPEG bool `json:"jpeg"`
	HTML bool `json:"html"`
}

// Validate reports whether at least one artefact format is requested.
func (o CaptureOptions) Validate() error {
	if !o.PNG && !o.JPEG && !o.HTML {
		return fmt.Errorf("captureOptions: at least one of png, jpeg, html must be true")
	}
	return nil
}

// CaptureTask is a server-side record of one pending or in-flight capture.
type CaptureTask struct {
	ID             string
	URL            string
	Labels         []string
	CorrelationID  string
	CaptureOptions CaptureOptions
	RetryCount     int
}

// WithRetry returns a copy of t with RetryCount incremented by one. The
// original task is left untouched, matching Requeue's "new task" semantics
// in the queue.
func (t CaptureTask) WithRetry() CaptureTask {
	retried := t
	retried.RetryCount = t.RetryCount + 1
	// Labels is a slice; copy it so callers mutating the retried task's
	// labels (they shouldn't, but) never alias the original.
	if t.Labels != nil {
		retried.Labels = append([]string(nil), t.Labels...)
	}
	return retried
}

// Ref is the subset of a CaptureTask's identity worth keeping alongside an
// error record: enough to find the task again without retaining the whole
// thing (and its capture options) in worker history.
type Ref struct {
	TaskID string
	URL    string
	Labels []string
}

// RefOf extracts a Ref from a full task.
func RefOf(t CaptureTask) Ref {
	return Ref{TaskID: t.ID, URL: t.URL, Labels: t.Labels}
}
