// Package queue implements TaskQueue: a FIFO queue of CaptureTasks across
// three disjoint states (pending, processing, completed) plus a
// URL-presence index covering pending ∪ processing, per spec.md §4.1.
package queue

import (
	"sync"

	"github.com/tomasbasham/webcapd/internal/task"
)

// Snapshot is a consistent, point-in-time view of queue accounting, used by
// status queries.
type Snapshot struct {
	Pending    int
	Processing int
	Completed  int
	URLs       map[string]int
}

// Queue is the exclusive owner of pending/processing/completed task state.
// It is safe for concurrent use; every operation is individually atomic.
type Queue struct {
	mu sync.Mutex

	pending    []task.CaptureTask
	processing map[string]task.CaptureTask
	completed  map[string]task.CaptureResult

	// urls is a multiset: the number of pending-or-processing tasks
	// currently referencing a given URL. It never counts completed tasks.
	urls map[string]int
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{
		processing: make(map[string]task.CaptureTask),
		completed:  make(map[string]task.CaptureResult),
		urls:       make(map[string]int),
	}
}

// Enqueue appends t to the pending tail. Callers are responsible for
// validation; Enqueue performs none.
func (q *Queue) Enqueue(t task.CaptureTask) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, t)
	q.urls[t.URL]++
}

// Dequeue removes the pending head, atomically moving it into processing
// and leaving the URL-presence index unchanged (the task is still
// pending-or-processing). Returns false if pending is empty.
func (q *Queue) Dequeue() (task.CaptureTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return task.CaptureTask{}, false
	}
	t := q.pending[0]
	q.pending = q.pending[1:]
	q.processing[t.ID] = t
	return t, true
}

// Requeue removes t from processing and appends a copy with retryCount+1 to
// the pending tail. It is a no-op if t.ID is not currently processing.
func (q *Queue) Requeue(t task.CaptureTask) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.processing[t.ID]; !ok {
		return
	}
	delete(q.processing, t.ID)
	q.pending = append(q.pending, t.WithRetry())
}

// MarkComplete removes taskId from processing and the URL-presence index,
// and records result under completed. It is a no-op if taskId is not
// currently processing.
func (q *Queue) MarkComplete(taskID string, result task.CaptureResult) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.processing[taskID]
	if !ok {
		return
	}
	delete(q.processing, taskID)
	q.decrementURL(t.URL)
	q.completed[taskID] = result
}

func (q *Queue) decrementURL(url string) {
	n := q.urls[url]
	if n <= 1 {
		delete(q.urls, url)
		return
	}
	q.urls[url] = n - 1
}

// HasURL reports whether any pending or processing task references url.
// Completed tasks never count.
func (q *Queue) HasURL(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.urls[url] > 0
}

// Snapshot returns a consistent accounting view. The returned URLs map is a
// defensive copy.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	urls := make(map[string]int, len(q.urls))
	for k, v := range q.urls {
		urls[k] = v
	}

	return Snapshot{
		Pending:    len(q.pending),
		Processing: len(q.processing),
		Completed:  len(q.completed),
		URLs:       urls,
	}
}

// Result returns a previously recorded completed result by task id.
func (q *Queue) Result(taskID string) (task.CaptureResult, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.completed[taskID]
	return r, ok
}
