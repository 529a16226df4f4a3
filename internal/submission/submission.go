// Package submission implements SubmissionFrontend: validates incoming
// capture requests, assigns task ids, and forwards to the WorkerPool, per
// spec.md §4.7.
package submission

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/tomasbasham/webcapd/internal/task"
)

// ErrUnavailable signals the one transport-level failure mode: the pool is
// not running or has zero healthy workers. Every other rejection is
// surfaced in-band via Acknowledgement.Error.
var ErrUnavailable = errors.New("submission: no healthy workers available")

// Request is the logical submission schema from spec.md §6.
type Request struct {
	URL            string
	Labels         []string
	CorrelationID  string
	CaptureOptions task.CaptureOptions
}

// Acknowledgement is the logical submission response from spec.md §6.
type Acknowledgement struct {
	Accepted      bool
	TaskID        string
	CorrelationID string
	Error         string
}

// Pool is the subset of pool.Pool the frontend depends on.
type Pool interface {
	Enqueue(t task.CaptureTask) error
	Running() bool
	HealthyWorkerCount() int
}

// Frontend validates and forwards submissions.
type Frontend struct {
	pool Pool
}

// New builds a Frontend bound to pool.
func New(pool Pool) *Frontend {
	return &Frontend{pool: pool}
}

// Submit runs the validation order from spec.md §4.7 (first failure wins),
// then enqueues. A non-nil error is always ErrUnavailable: every other
// rejection is returned as an Acknowledgement with Accepted=false.
func (f *Frontend) Submit(req Request) (Acknowledgement, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return reject("url is required"), nil
	}

	labels := make([]string, 0, len(req.Labels))
	for _, l := range req.Labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if err := task.ValidateFilenameFragment(l); err != nil {
			return reject(err.Error()), nil
		}
		labels = append(labels, l)
	}

	correlationID := strings.TrimSpace(req.CorrelationID)
	if correlationID != "" {
		if err := task.ValidateFilenameFragment(correlationID); err != nil {
			return reject(err.Error()), nil
		}
	}

	if err := req.CaptureOptions.Validate(); err != nil {
		return reject(err.Error()), nil
	}

	if !f.pool.Running() || f.pool.HealthyWorkerCount() == 0 {
		return Acknowledgement{}, ErrUnavailable
	}

	t := task.CaptureTask{
		ID:             uuid.NewString(),
		URL:            url,
		Labels:         labels,
		CorrelationID:  correlationID,
		CaptureOptions: req.CaptureOptions,
	}

	if err := f.pool.Enqueue(t); err != nil {
		return reject(err.Error()), nil
	}

	return Acknowledgement{Accepted: true, TaskID: t.ID, CorrelationID: correlationID}, nil
}

func reject(msg string) Acknowledgement {
	return Acknowledgement{Accepted: false, TaskID: "", Error: msg}
}
