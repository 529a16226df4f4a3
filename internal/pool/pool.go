// Package pool implements WorkerPool: the owner of the TaskQueue and all
// Workers, per spec.md §4.6.
package pool

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tomasbasham/webcapd/internal/queue"
	"github.com/tomasbasham/webcapd/internal/task"
	"github.com/tomasbasham/webcapd/internal/worker"
)

// Status is the aggregate snapshot returned by Pool.Status, per spec.md
// §6's status query response.
type Status struct {
	Pending            int
	Processing         int
	Completed          int
	HealthyWorkerCount int
	TotalWorkerCount   int
	Running            bool
	Workers            []worker.Info
}

// Config controls dispatch behaviour.
type Config struct {
	MaxRetries          int
	QueuePollInterval   time.Duration
	RejectDuplicateURLs bool

	// Log receives dispatch-loop-level events (worker connect failures,
	// a worker going unhealthy mid-run). A nil Log discards everything,
	// so callers that don't care (e.g. tests) can omit it.
	Log *logrus.Logger
}

// Pool owns the TaskQueue and every Worker for the process's lifetime.
type Pool struct {
	cfg     Config
	q       *queue.Queue
	workers []*worker.Worker
	log     *logrus.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// New takes workers (already built, not yet connected) and attempts
// Connect on each in parallel. If zero workers become
// healthy, initialization fails per spec.md §4.6.
func New(ctx context.Context, cfg Config, workers []*worker.Worker) (*Pool, error) {
	log := cfg.Log
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	var wg sync.WaitGroup
	healthy := make([]bool, len(workers))
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w *worker.Worker) {
			defer wg.Done()
			healthy[i] = w.Connect(ctx)
			if !healthy[i] {
				log.WithField("worker_id", w.ID()).Warn("worker failed to connect during pool initialisation")
			}
		}(i, w)
	}
	wg.Wait()

	anyHealthy := false
	for _, ok := range healthy {
		if ok {
			anyHealthy = true
			break
		}
	}
	if !anyHealthy {
		return nil, fmt.Errorf("pool: zero of %d configured workers became healthy", len(workers))
	}

	return &Pool{
		cfg:     cfg,
		q:       queue.New(),
		workers: workers,
		log:     log,
	}, nil
}

// Start flips running=true and spawns one dispatch loop per currently
// healthy worker. Idempotent against repeated calls.
//
// Each dispatch loop is rooted on context.Background(), never on a caller's
// shutdown-signal context. Per spec.md §5, setting running=false (via
// Shutdown) must not interrupt an in-flight capture; a cancellable context
// here would cancel every worker's current chromedp call mid-flight the
// moment a shutdown signal fires, turning a clean drain into a wave of
// spurious timeouts. Shutdown is signalled exclusively through p.running.
func (p *Pool) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	for _, w := range p.workers {
		if !w.Healthy() {
			continue
		}
		p.wg.Add(1)
		go p.dispatchLoop(context.Background(), w)
	}
}

// dispatchLoop implements the pseudocode in spec.md §4.6: dequeue, process,
// requeue-or-complete, exit once the worker stops being healthy. ctx roots
// every capture this loop drives; it must never be the shutdown signal
// context (see Start).
func (p *Pool) dispatchLoop(ctx context.Context, w *worker.Worker) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		running := p.running
		p.mu.Unlock()
		if !running || !w.Healthy() {
			return
		}

		t, ok := p.q.Dequeue()
		if !ok {
			time.Sleep(p.cfg.QueuePollInterval)
			continue
		}

		result := w.Process(ctx, t)

		if result.Status != task.StatusSuccess && t.RetryCount < p.cfg.MaxRetries {
			p.q.Requeue(t)
		} else {
			p.q.MarkComplete(t.ID, result)
		}

		if !w.Healthy() {
			p.log.WithField("worker_id", w.ID()).Warn("worker became unhealthy, exiting dispatch loop")
			return
		}
	}
}

// EnqueueError is the in-band rejection reason surfaced to the
// SubmissionFrontend; it is never a transport-level error.
type EnqueueError struct {
	msg string
}

func (e *EnqueueError) Error() string { return e.msg }

// Enqueue appends t to the queue, subject to the duplicate-URL policy.
func (p *Pool) Enqueue(t task.CaptureTask) error {
	if p.cfg.RejectDuplicateURLs && p.q.HasURL(t.URL) {
		return &EnqueueError{msg: fmt.Sprintf("URL already in queue: %s", t.URL)}
	}
	p.q.Enqueue(t)
	return nil
}

// Running reports whether Start has been called and Shutdown has not.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// HealthyWorkerCount returns the number of currently healthy workers.
func (p *Pool) HealthyWorkerCount() int {
	n := 0
	for _, w := range p.workers {
		if w.Healthy() {
			n++
		}
	}
	return n
}

// Result returns a previously recorded completed result by task id.
func (p *Pool) Result(taskID string) (task.CaptureResult, bool) {
	return p.q.Result(taskID)
}

// Shutdown sets running=false, waits for every dispatch loop to return its
// current in-flight capture, then disconnects every worker in parallel.
// Safe to call once; subsequent calls are undefined, per spec.md §4.6.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *worker.Worker) {
			defer wg.Done()
			w.Disconnect()
		}(w)
	}
	wg.Wait()
}

// Status returns an aggregate snapshot across the queue and every worker.
func (p *Pool) Status() Status {
	snap := p.q.Snapshot()

	infos := make([]worker.Info, 0, len(p.workers))
	healthy := 0
	for _, w := range p.workers {
		if w.Healthy() {
			healthy++
		}
		infos = append(infos, w.Info())
	}

	return Status{
		Pending:            snap.Pending,
		Processing:         snap.Processing,
		Completed:          snap.Completed,
		HealthyWorkerCount: healthy,
		TotalWorkerCount:   len(p.workers),
		Running:            p.Running(),
		Workers:            infos,
	}
}
