package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeDPGateway connects to remote browser endpoints over CDP using
// chromedp's remote allocator. It is the production Gateway implementation.
type ChromeDPGateway struct{}

// NewChromeDPGateway returns a Gateway backed by chromedp.
func NewChromeDPGateway() *ChromeDPGateway {
	return &ChromeDPGateway{}
}

// Connect dials endpoint (a CDP WebSocket URL) and verifies it is reachable
// with a trivial navigation before returning. slowMo, when non-zero, is
// applied as a fixed delay before each subsequent page operation other than
// the dynamic-content wait and Close — chromedp
// has no native slow-motion knob, so this emulates Playwright-style slowMo
// for debugging flaky remote endpoints.
func (g *ChromeDPGateway) Connect(ctx context.Context, endpoint string, slowMo time.Duration) (Session, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, endpoint)

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		// Suppress chromedp's internal logging for CDP events it cannot
		// unmarshal — these arise from version skew between the remote
		// Chrome binary and the cdproto definitions pinned in go.mod. The
		// affected events are simply dropped; see the teacher's capture.go
		// for the same rationale.
		chromedp.WithLogf(func(string, ...any) {}),
		chromedp.WithErrorf(func(string, ...any) {}),
		chromedp.WithDebugf(func(string, ...any) {}),
	)

	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("browser: connect to %q: %w", endpoint, err)
	}

	return &chromedpSession{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		slowMo:        slowMo,
	}, nil
}

type chromedpSession struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	slowMo        time.Duration

	mu     sync.Mutex
	closed bool
}

func (s *chromedpSession) NewPage(ctx context.Context) (Page, error) {
	pageCtx, cancel := chromedp.NewContext(s.ctx)
	return &chromedpPage{ctx: pageCtx, cancel: cancel, slowMo: s.slowMo}, nil
}

// Close tears down the browser context and allocator. Errors are swallowed
// per spec.md §4.3 — Disconnect is always best-effort.
func (s *chromedpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancelBrowser()
	s.cancelAlloc()
	return nil
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
	slowMo time.Duration
}

// withDeadline layers any deadline present on caller into p.ctx, the
// chromedp-aware context for this page's tab. chromedp.Run requires a
// context derived from the one NewContext returned; a caller-supplied
// context.WithTimeout built on p.ctx satisfies that, whereas one built on an
// unrelated ctx would not carry chromedp's target binding.
func (p *chromedpPage) withDeadline(caller context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := caller.Deadline(); ok {
		return context.WithDeadline(p.ctx, dl)
	}
	return context.WithCancel(p.ctx)
}

func (p *chromedpPage) delay() {
	if p.slowMo > 0 {
		time.Sleep(p.slowMo)
	}
}

func (p *chromedpPage) SetViewport(ctx context.Context, width, height int64) error {
	p.delay()
	execCtx, cancel := p.withDeadline(ctx)
	defer cancel()
	return chromedp.Run(execCtx, chromedp.EmulateViewport(width, height))
}

func (p *chromedpPage) SetUserAgent(ctx context.Context, ua string) error {
	p.delay()
	execCtx, cancel := p.withDeadline(ctx)
	defer cancel()
	return chromedp.Run(execCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetUserAgentOverride(ua).Do(ctx)
	}))
}

func (p *chromedpPage) Navigate(ctx context.Context, url string) (*NavigationResult, error) {
	p.delay()
	execCtx, cancel := p.withDeadline(ctx)
	defer cancel()

	var mu sync.Mutex
	result := &NavigationResult{}
	seen := false

	chromedp.ListenTarget(execCtx, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if seen {
			return
		}
		seen = true
		result.StatusCode = int(resp.Response.Status)
		result.StatusText = resp.Response.StatusText
	})

	err := chromedp.Run(execCtx,
		network.Enable(),
		chromedp.Navigate(url),
	)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return result, nil
}

func (p *chromedpPage) WaitForDynamicContent(ctx context.Context, d time.Duration) error {
	execCtx, cancel := p.withDeadline(ctx)
	defer cancel()
	return chromedp.Run(execCtx, chromedp.Sleep(d))
}

// hideScrollbarCSS is injected verbatim into the page to suppress the
// scrollbar so it never appears in screenshots.
const hideScrollbarCSS = `::-webkit-scrollbar { display: none !important; }`

func (p *chromedpPage) InjectCSS(ctx context.Context, css string) error {
	p.delay()
	execCtx, cancel := p.withDeadline(ctx)
	defer cancel()

	js := fmt.Sprintf(`(() => {
		const style = document.createElement('style');
		style.textContent = %q;
		document.head.appendChild(style);
	})()`, css)

	return chromedp.Run(execCtx, chromedp.Evaluate(js, nil))
}

func (p *chromedpPage) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	p.delay()
	execCtx, cancel := p.withDeadline(ctx)
	defer cancel()

	var buf []byte
	var err error

	switch opts.Format {
	case ScreenshotFormatJPEG:
		err = chromedp.Run(execCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			params := page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatJpeg)
			if opts.Quality > 0 {
				params = params.WithQuality(int64(opts.Quality))
			}
			if opts.FullPage {
				params = params.WithCaptureBeyondViewport(true)
			}
			data, capErr := params.Do(ctx)
			if capErr != nil {
				return capErr
			}
			buf = data
			return nil
		}))
	default:
		if opts.FullPage {
			err = chromedp.Run(execCtx, chromedp.FullScreenshot(&buf, 100))
		} else {
			err = chromedp.Run(execCtx, chromedp.CaptureScreenshot(&buf))
		}
	}

	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromedpPage) HTML(ctx context.Context) (string, error) {
	p.delay()
	execCtx, cancel := p.withDeadline(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(execCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close cancels this page's tab context. Errors are swallowed per spec.md
// §4.4 step 9: the page is closed on every exit path regardless of outcome.
func (p *chromedpPage) Close() {
	p.cancel()
}
