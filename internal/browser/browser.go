// Package browser is the thin gateway onto remote, CDP-reachable browser
// instances. It treats the handshake that produces a CDP WebSocket endpoint
// as someone else's problem (spec.md §1 calls this an opaque
// ConnectBrowser(endpoint) capability) and exposes only what PageCapturer
// needs: open a page, set viewport/user-agent, navigate, screenshot, dump
// HTML, inject CSS, close.
package browser

import (
	"context"
	"time"
)

// NavigationResult is what Navigate observed about the main-frame response.
type NavigationResult struct {
	// StatusCode is 0 when navigation completed without a main-frame
	// document response being observed.
	StatusCode int
	StatusText string
}

// ScreenshotFormat selects the image codec for Page.Screenshot.
type ScreenshotFormat string

const (
	ScreenshotFormatPNG  ScreenshotFormat = "png"
	ScreenshotFormatJPEG ScreenshotFormat = "jpeg"
)

// ScreenshotOptions controls Page.Screenshot.
type ScreenshotOptions struct {
	Format ScreenshotFormat

	// Quality is only meaningful for ScreenshotFormatJPEG, 1-100.
	Quality int

	// FullPage captures the full scrollable page rather than just the
	// current viewport.
	FullPage bool
}

// Gateway connects to a single remote browser endpoint and returns a Session
// bound to it. One Gateway serves every Worker; one Session is owned
// exclusively by one Worker for its entire lifetime (spec.md §3).
type Gateway interface {
	Connect(ctx context.Context, endpoint string, slowMo time.Duration) (Session, error)
}

// Session is a live connection to one remote browser. Pages opened from a
// Session are scoped to a single capture attempt and must always be closed.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab, scoped to one capture attempt.
type Page interface {
	SetViewport(ctx context.Context, width, height int64) error
	SetUserAgent(ctx context.Context, ua string) error

	// Navigate loads url and returns details of the main-frame response. A
	// context deadline exceeded during navigation is returned as-is so
	// callers can distinguish a graceful timeout from a hard failure.
	Navigate(ctx context.Context, url string) (*NavigationResult, error)

	// WaitForDynamicContent blocks for d, giving any client-side rendering
	// time to settle, the way an in-page timer promise would.
	WaitForDynamicContent(ctx context.Context, d time.Duration) error

	InjectCSS(ctx context.Context, css string) error
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)
	HTML(ctx context.Context) (string, error)

	// Close is best-effort; implementations must swallow their own errors.
	Close()
}
