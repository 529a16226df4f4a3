// Package server provides the HTTP transport for the capture dispatch
// service.
//
// Endpoints:
//
//	POST /captures — validate and enqueue a capture; returns an
//	                 acknowledgement immediately (spec.md §6).
//	GET  /status   — aggregate queue and worker telemetry (spec.md §6).
//	GET  /results/{id} — poll a single completed capture's result.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tomasbasham/webcapd/internal/pool"
	"github.com/tomasbasham/webcapd/internal/submission"
	"github.com/tomasbasham/webcapd/internal/task"
)

// Server holds the dependencies shared across HTTP handlers.
type Server struct {
	frontend *submission.Frontend
	pool     *pool.Pool
	log      *logrus.Logger
	mux      *http.ServeMux
}

// New creates a Server wired to frontend (validation/enqueue) and p
// (status/result reads).
func New(frontend *submission.Frontend, p *pool.Pool, log *logrus.Logger) *Server {
	s := &Server{frontend: frontend, pool: p, log: log}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /captures", s.handleSubmit)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /results/{id}", s.handleResult)

	return s
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

// submitRequest is the JSON body for POST /captures, mirroring spec.md §6's
// logical submission schema.
type submitRequest struct {
	URL            string   `json:"url"`
	Labels         []string `json:"labels,omitempty"`
	CorrelationID  string   `json:"correlationId,omitempty"`
	CaptureOptions struct {
		PNG  bool `json:"png"`
		JPEG bool `json:"jpeg"`
		HTML bool `json:"html"`
	} `json:"captureOptions"`
}

// submitResponse mirrors spec.md §6's submission acknowledgement.
type submitResponse struct {
	Accepted      bool   `json:"accepted"`
	TaskID        string `json:"taskId"`
	CorrelationID string `json:"correlationId,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ack, err := s.frontend.Submit(submission.Request{
		URL:           req.URL,
		Labels:        req.Labels,
		CorrelationID: req.CorrelationID,
		CaptureOptions: task.CaptureOptions{
			PNG:  req.CaptureOptions.PNG,
			JPEG: req.CaptureOptions.JPEG,
			HTML: req.CaptureOptions.HTML,
		},
	})
	if err != nil {
		if errors.Is(err, submission.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.log.WithError(err).Error("submission frontend returned an unexpected transport error")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !ack.Accepted {
		s.log.WithField("error", ack.Error).Debug("rejected capture submission")
	}

	status := http.StatusAccepted
	if !ack.Accepted {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, submitResponse{
		Accepted:      ack.Accepted,
		TaskID:        ack.TaskID,
		CorrelationID: ack.CorrelationID,
		Error:         ack.Error,
	})
}

// statusResponse mirrors spec.md §6's status query response.
type statusResponse struct {
	Pending        int            `json:"pending"`
	Processing     int            `json:"processing"`
	Completed      int            `json:"completed"`
	HealthyWorkers int            `json:"healthyWorkers"`
	TotalWorkers   int            `json:"totalWorkers"`
	IsRunning      bool           `json:"isRunning"`
	Workers        []workerStatus `json:"workers"`
}

type workerStatus struct {
	ID              string            `json:"id"`
	BrowserEndpoint string            `json:"browserEndpoint"`
	Status          string            `json:"status"`
	ProcessedCount  int               `json:"processedCount"`
	ErrorCount      int               `json:"errorCount"`
	ErrorHistory    []errorRecordWire `json:"errorHistory"`
}

type errorRecordWire struct {
	ErrorDetails errorDetailsWire `json:"errorDetails"`
	Timestamp    time.Time        `json:"timestamp"`
	Task         *taskRefWire     `json:"task,omitempty"`
}

type taskRefWire struct {
	TaskID string   `json:"taskId"`
	URL    string   `json:"url"`
	Labels []string `json:"labels,omitempty"`
}

// errorDetailsWire converts the tagged task.ErrorDetails into a JSON shape
// that only surfaces the fields relevant to its type, at the wire boundary
// (the in-memory representation stays a single struct throughout the rest
// of the system; see DESIGN.md).
type errorDetailsWire struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	HTTPStatusCode int    `json:"httpStatusCode,omitempty"`
	HTTPStatusText string `json:"httpStatusText,omitempty"`
	TimeoutMs      int64  `json:"timeoutMs,omitempty"`
}

func toErrorDetailsWire(ed task.ErrorDetails) errorDetailsWire {
	return errorDetailsWire{
		Type:           string(ed.Type),
		Message:        ed.Message,
		HTTPStatusCode: ed.HTTPStatusCode,
		HTTPStatusText: ed.HTTPStatusText,
		TimeoutMs:      ed.TimeoutMs,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.pool.Status()

	workers := make([]workerStatus, 0, len(st.Workers))
	for _, info := range st.Workers {
		history := make([]errorRecordWire, 0, len(info.ErrorHistory))
		for _, rec := range info.ErrorHistory {
			wire := errorRecordWire{
				ErrorDetails: toErrorDetailsWire(rec.ErrorDetails),
				Timestamp:    rec.Timestamp,
			}
			if rec.Task != nil {
				wire.Task = &taskRefWire{TaskID: rec.Task.TaskID, URL: rec.Task.URL, Labels: rec.Task.Labels}
			}
			history = append(history, wire)
		}
		workers = append(workers, workerStatus{
			ID:              info.ID,
			BrowserEndpoint: info.BrowserEndpoint,
			Status:          string(info.Status),
			ProcessedCount:  info.ProcessedCount,
			ErrorCount:      info.ErrorCount,
			ErrorHistory:    history,
		})
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Pending:        st.Pending,
		Processing:     st.Processing,
		Completed:      st.Completed,
		HealthyWorkers: st.HealthyWorkerCount,
		TotalWorkers:   st.TotalWorkerCount,
		IsRunning:      st.Running,
		Workers:        workers,
	})
}

// resultResponse is an additive convenience endpoint (not named in
// spec.md §6, which scopes result-delivery transport out) letting a
// submitter poll one task's CaptureResult by id once it completes.
type resultResponse struct {
	Found  bool               `json:"found"`
	Status string             `json:"status,omitempty"`
	Result *captureResultWire `json:"result,omitempty"`
}

type captureResultWire struct {
	TaskID                  string            `json:"taskId"`
	Status                  string            `json:"status"`
	HTTPStatusCode          int               `json:"httpStatusCode,omitempty"`
	ErrorDetails            *errorDetailsWire `json:"errorDetails,omitempty"`
	PNGPath                 string            `json:"pngPath,omitempty"`
	JPEGPath                string            `json:"jpegPath,omitempty"`
	HTMLPath                string            `json:"htmlPath,omitempty"`
	CaptureProcessingTimeMs int64             `json:"captureProcessingTimeMs"`
	Timestamp               time.Time         `json:"timestamp"`
	WorkerID                string            `json:"workerId"`
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "task id is required")
		return
	}

	result, ok := s.pool.Result(id)
	if !ok {
		writeJSON(w, http.StatusOK, resultResponse{Found: false})
		return
	}

	var ed *errorDetailsWire
	if result.ErrorDetails != nil {
		w := toErrorDetailsWire(*result.ErrorDetails)
		ed = &w
	}

	writeJSON(w, http.StatusOK, resultResponse{
		Found:  true,
		Status: string(result.Status),
		Result: &captureResultWire{
			TaskID:                  id,
			Status:                  string(result.Status),
			HTTPStatusCode:          result.HTTPStatusCode,
			ErrorDetails:            ed,
			PNGPath:                 result.PNGPath,
			JPEGPath:                result.JPEGPath,
			HTMLPath:                result.HTMLPath,
			CaptureProcessingTimeMs: result.CaptureProcessingTimeMs,
			Timestamp:               result.Timestamp,
			WorkerID:                result.WorkerID,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
