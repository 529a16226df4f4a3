package task

import "time"

// Status is the terminal classification of one capture attempt.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusHTTPError Status = "httpError"
	StatusTimeout   Status = "timeout"
	StatusFailed    Status = "failed"
)

// CaptureResult is the outcome of one capture attempt against one task. A
// successful result never carries ErrorDetails and carries an artefact path
// for each format its CaptureOptions request; any other status carries
// ErrorDetails and no artefact paths.
type CaptureResult struct {
	Task   CaptureTask
	Status Status

	HTTPStatusCode int
	ErrorDetails   *ErrorDetails

	PNGPath  string
	JPEGPath string
	HTMLPath string

	// MirroredArtefacts maps an extension (png/jpeg/html) to a signed URL,
	// populated only when optional secondary artefact mirroring (see
	// internal/storage) is configured and the upload succeeded. It is kept
	// in memory only; the /results JSON response does not include it.
	MirroredArtefacts map[string]string

	CaptureProcessingTimeMs int64
	Timestamp               time.Time
	WorkerID                string
}

// ErrorRecord is one entry in a Worker's bounded error history.
type ErrorRecord struct {
	ErrorDetails ErrorDetails
	Timestamp    time.Time

	// Task is nil for errors recorded outside of processing a task (e.g. a
	// failed Connect attempt).
	Task *Ref
}
