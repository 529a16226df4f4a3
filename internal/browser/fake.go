package browser

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeGateway is an in-memory Gateway for exercising Worker, PageCapturer
// and WorkerPool without a real browser. Endpoints configured as failing
// cause Connect to return an error, mirroring a dead remote endpoint.
type FakeGateway struct {
	mu             sync.Mutex
	FailEndpoints  map[string]bool
	ConnectedCount int

	// NewSession, when set, is called instead of the built-in FakeSession
	// constructor — lets a test script a sequence of page behaviours.
	NewSession func(endpoint string) *FakeSession
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{FailEndpoints: map[string]bool{}}
}

func (g *FakeGateway) Connect(ctx context.Context, endpoint string, slowMo time.Duration) (Session, error) {
	g.mu.Lock()
	fail := g.FailEndpoints[endpoint]
	g.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("fake: connect to %q refused", endpoint)
	}

	g.mu.Lock()
	g.ConnectedCount++
	g.mu.Unlock()

	if g.NewSession != nil {
		return g.NewSession(endpoint), nil
	}
	return NewFakeSession(), nil
}

// FakeSession hands out FakePages from a configurable queue of scripted
// behaviours. When the queue is exhausted, NewPage returns a page that
// always succeeds with a 200 response and placeholder artefacts.
type FakeSession struct {
	mu       sync.Mutex
	closed   bool
	CloseErr error

	// Pages is consumed in order, one per NewPage call.
	Pages []*FakePage
	next  int
}

func NewFakeSession() *FakeSession {
	return &FakeSession{}
}

func (s *FakeSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next < len(s.Pages) {
		p := s.Pages[s.next]
		s.next++
		return p, nil
	}
	return &FakePage{NavStatus: 200}, nil
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.CloseErr
}

func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FakePage scripts one capture attempt's worth of Page behaviour.
type FakePage struct {
	NavStatus int
	NavText   string
	NavErr    error

	DynamicWaitErr error
	InjectCSSErr   error
	ScreenshotErr  error
	HTMLErr        error

	ScreenshotData []byte
	HTMLData       string

	Closed bool
}

func (p *FakePage) SetViewport(ctx context.Context, width, height int64) error { return nil }
func (p *FakePage) SetUserAgent(ctx context.Context, ua string) error          { return nil }

func (p *FakePage) Navigate(ctx context.Context, url string) (*NavigationResult, error) {
	if p.NavErr != nil {
		return nil, p.NavErr
	}
	return &NavigationResult{StatusCode: p.NavStatus, StatusText: p.NavText}, nil
}

func (p *FakePage) WaitForDynamicContent(ctx context.Context, d time.Duration) error {
	return p.DynamicWaitErr
}

func (p *FakePage) InjectCSS(ctx context.Context, css string) error { return p.InjectCSSErr }

func (p *FakePage) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	if p.ScreenshotData != nil {
		return p.ScreenshotData, nil
	}
	return []byte("fake-image-bytes"), nil
}

func (p *FakePage) HTML(ctx context.Context) (string, error) {
	if p.HTMLErr != nil {
		return "", p.HTMLErr
	}
	if p.HTMLData != "" {
		return p.HTMLData, nil
	}
	return "<html></html>", nil
}

func (p *FakePage) Close() { p.Closed = true }
