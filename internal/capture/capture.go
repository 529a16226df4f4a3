// Package capture implements the PageCapturer: the deterministic, ten-step
// algorithm that turns one CaptureTask plus one open browser Session into a
// CaptureResult, per spec.md §4.4.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tomasbasham/webcapd/internal/browser"
	"github.com/tomasbasham/webcapd/internal/classify"
	"github.com/tomasbasham/webcapd/internal/task"
)

// dynamicContentWait is the fixed wait for client-side rendering after a
// successful navigation, per spec.md §4.4 step 6.
const dynamicContentWait = 3000 * time.Millisecond

// hideScrollbarCSS is injected after the dynamic-content wait so scrollbars
// never appear in screenshots.
const hideScrollbarCSS = `::-webkit-scrollbar { display: none !important; }`

// Timeouts bounds the two wall-clock races PageCapturer runs: one for
// navigation, one per requested artefact.
type Timeouts struct {
	PageLoad time.Duration
	Capture  time.Duration
}

// Viewport is the fixed browser viewport size applied before every
// navigation.
type Viewport struct {
	Width  int64
	Height int64
}

// ScreenshotConfig controls how PNG/JPEG artefacts are rendered.
type ScreenshotConfig struct {
	FullPage bool
	// Quality is 1-100; only meaningful for JPEG.
	Quality int
}

// Capturer executes capture attempts against an already-open Session. It
// holds no session state itself — Capture is safe to call concurrently from
// different Workers, each against its own Session.
type Capturer struct {
	OutputDir  string
	Viewport   Viewport
	UserAgent  string
	Timeouts   Timeouts
	Screenshot ScreenshotConfig
}

// New builds a Capturer, applying the defaults from spec.md §6 for any zero
// fields.
func New(outputDir string, viewport Viewport, userAgent string, timeouts Timeouts, screenshot ScreenshotConfig) *Capturer {
	if viewport.Width == 0 || viewport.Height == 0 {
		viewport = Viewport{Width: 1280, Height: 800}
	}
	if timeouts.PageLoad == 0 {
		timeouts.PageLoad = 30 * time.Second
	}
	if timeouts.Capture == 0 {
		timeouts.Capture = 10 * time.Second
	}
	return &Capturer{
		OutputDir:  outputDir,
		Viewport:   viewport,
		UserAgent:  userAgent,
		Timeouts:   timeouts,
		Screenshot: screenshot,
	}
}

// Capture runs the full ten-step algorithm from spec.md §4.4 against sess
// for t, tagging the result with workerID. It never panics and never
// returns a Go error — every failure mode is materialized into the returned
// CaptureResult, per the Worker/dispatch-loop boundary in spec.md §4.3/§4.6.
func (c *Capturer) Capture(ctx context.Context, sess browser.Session, t task.CaptureTask, workerID string) task.CaptureResult {
	start := time.Now()
	result := task.CaptureResult{
		Task:      t,
		WorkerID:  workerID,
		Timestamp: time.Now().UTC(),
	}

	elapsed := func() int64 { return time.Since(start).Milliseconds() }

	page, err := sess.NewPage(ctx)
	if err != nil {
		return c.failResult(result, err, elapsed())
	}
	defer page.Close()

	if err := page.SetViewport(ctx, c.Viewport.Width, c.Viewport.Height); err != nil {
		return c.failResult(result, err, elapsed())
	}

	if c.UserAgent != "" {
		if err := page.SetUserAgent(ctx, c.UserAgent); err != nil {
			return c.failResult(result, err, elapsed())
		}
	}

	navCtx, cancelNav := context.WithTimeout(ctx, c.Timeouts.PageLoad)
	nav, err := page.Navigate(navCtx, t.URL)
	cancelNav()
	if err != nil {
		return c.classifyAndFail(result, err, c.Timeouts.PageLoad, "navigation", elapsed())
	}

	result.HTTPStatusCode = nav.StatusCode
	if nav.StatusCode < 200 || nav.StatusCode >= 300 {
		text := task.HTTPStatusTextOrFallback(nav.StatusCode, nav.StatusText)
		ed := task.NewHTTPError(nav.StatusCode, text)
		result.Status = task.StatusHTTPError
		result.ErrorDetails = &ed
		result.CaptureProcessingTimeMs = elapsed()
		return result
	}

	if err := page.WaitForDynamicContent(ctx, dynamicContentWait); err != nil {
		return c.classifyAndFail(result, err, dynamicContentWait, "dynamic content wait", elapsed())
	}

	if err := page.InjectCSS(ctx, hideScrollbarCSS); err != nil {
		return c.classifyAndFail(result, err, 0, "scrollbar injection", elapsed())
	}

	if err := c.extractArtefacts(ctx, page, t, &result); err != nil {
		result.PNGPath, result.JPEGPath, result.HTMLPath = "", "", ""
		return c.classifyAndFail(result, err, c.Timeouts.Capture, "artefact extraction", elapsed())
	}

	result.Status = task.StatusSuccess
	result.CaptureProcessingTimeMs = elapsed()
	return result
}

// extractArtefacts renders png, jpeg, html (in that order, per spec.md §4.4
// step 8) for every format t.CaptureOptions requests, writing each to
// c.OutputDir and recording its path on result.
func (c *Capturer) extractArtefacts(ctx context.Context, page browser.Page, t task.CaptureTask, result *task.CaptureResult) error {
	type artefact struct {
		requested bool
		ext       string
		render    func(context.Context) ([]byte, error)
		assign    func(path string)
	}

	artefacts := []artefact{
		{
			requested: t.CaptureOptions.PNG,
			ext:       "png",
			render: func(ctx context.Context) ([]byte, error) {
				return page.Screenshot(ctx, browser.ScreenshotOptions{
					Format:   browser.ScreenshotFormatPNG,
					FullPage: c.Screenshot.FullPage,
				})
			},
			assign: func(path string) { result.PNGPath = path },
		},
		{
			requested: t.CaptureOptions.JPEG,
			ext:       "jpeg",
			render: func(ctx context.Context) ([]byte, error) {
				return page.Screenshot(ctx, browser.ScreenshotOptions{
					Format:   browser.ScreenshotFormatJPEG,
					Quality:  c.Screenshot.Quality,
					FullPage: c.Screenshot.FullPage,
				})
			},
			assign: func(path string) { result.JPEGPath = path },
		},
		{
			requested: t.CaptureOptions.HTML,
			ext:       "html",
			render: func(ctx context.Context) ([]byte, error) {
				html, err := page.HTML(ctx)
				return []byte(html), err
			},
			assign: func(path string) { result.HTMLPath = path },
		},
	}

	for _, a := range artefacts {
		if !a.requested {
			continue
		}

		capCtx, cancel := context.WithTimeout(ctx, c.Timeouts.Capture)
		data, err := a.render(capCtx)
		cancel()
		if err != nil {
			return err
		}

		filename := task.GenerateFilename(t.ID, t.CorrelationID, t.Labels, a.ext)
		path := filepath.Join(c.OutputDir, filename)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("capture: write %s: %w", a.ext, err)
		}
		a.assign(path)
	}

	return nil
}

// classifyAndFail turns err into a failed/timeout result. A context
// deadline exceeded is treated as the bounded operation's own timeout
// regardless of what classify.FromException would say about the message,
// since the race here is structural (context.WithTimeout), not
// message-based.
func (c *Capturer) classifyAndFail(result task.CaptureResult, err error, bound time.Duration, op string, elapsedMs int64) task.CaptureResult {
	if errors.Is(err, context.DeadlineExceeded) {
		ed := task.NewTimeoutError(bound, op)
		result.Status = task.StatusTimeout
		result.ErrorDetails = &ed
		result.CaptureProcessingTimeMs = elapsedMs
		return result
	}

	ed := classify.FromException(err)
	result.ErrorDetails = &ed
	if ed.Type == task.ErrorTypeTimeout {
		result.Status = task.StatusTimeout
	} else {
		result.Status = task.StatusFailed
	}
	result.CaptureProcessingTimeMs = elapsedMs
	return result
}

// failResult classifies err without a known operation bound, used for
// failures before any timeout race has started (e.g. NewPage, SetViewport).
func (c *Capturer) failResult(result task.CaptureResult, err error, elapsedMs int64) task.CaptureResult {
	ed := classify.FromException(err)
	result.ErrorDetails = &ed
	if ed.Type == task.ErrorTypeTimeout {
		result.Status = task.StatusTimeout
	} else {
		result.Status = task.StatusFailed
	}
	result.CaptureProcessingTimeMs = elapsedMs
	return result
}
