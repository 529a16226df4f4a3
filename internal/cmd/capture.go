package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/webcapd/internal/browser"
	"github.com/tomasbasham/webcapd/internal/capture"
	"github.com/tomasbasham/webcapd/internal/operation"
	"github.com/tomasbasham/webcapd/internal/storage"
	"github.com/tomasbasham/webcapd/internal/task"
)

// CaptureOptions configures a single one-shot capture against one remote
// browser endpoint, bypassing the dispatch pool entirely. Useful for
// debugging a single browser connection or config change without standing
// up the full HTTP service.
type CaptureOptions struct {
	URL      string
	Endpoint string
	OutDir   string

	PNG  bool
	JPEG bool
	HTML bool

	PageLoadTimeout time.Duration
	CaptureTimeout  time.Duration

	iooption.IOStreams
}

var (
	captureLong = templates.LongDesc(`
		Perform a single capture against one remote browser endpoint,
		bypassing the dispatch pool. Intended for debugging a browser
		endpoint or configuration change in isolation.`)

	captureExample = templates.Examples(`
		# Capture a PNG screenshot of a page via a local headless Chrome
		webcapd capture https://example.com --endpoint ws://localhost:9222 --png --out ./out`)
)

func NewCaptureOptions(streams iooption.IOStreams) *CaptureOptions {
	return &CaptureOptions{
		IOStreams: streams,
	}
}

func NewCaptureCommand(o *CaptureOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "capture [URL]",
		DisableFlagsInUseLine: true,
		Short:                 "Capture a single page against one browser endpoint",
		Long:                  captureLong,
		Example:               captureExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run()
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.StringVarP(&o.Endpoint, "endpoint", "e", "ws://localhost:9222", "Remote browser CDP WebSocket endpoint")
	pflags.StringVarP(&o.OutDir, "out", "o", ".", "Output directory for captured artefacts")
	pflags.BoolVar(&o.PNG, "png", false, "Capture a PNG screenshot")
	pflags.BoolVar(&o.JPEG, "jpeg", false, "Capture a JPEG screenshot")
	pflags.BoolVar(&o.HTML, "html", false, "Capture the rendered HTML")
	pflags.DurationVarP(&o.PageLoadTimeout, "page-load-timeout", "n", 30*time.Second, "Page load timeout")
	pflags.DurationVarP(&o.CaptureTimeout, "capture-timeout", "t", 10*time.Second, "Per-artefact capture timeout")

	return cmd
}

func (o *CaptureOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("URL is required")
	}
	o.URL = args[0]
	return nil
}

func (o *CaptureOptions) Validate() error {
	if len(o.URL) == 0 {
		return fmt.Errorf("URL is required")
	}
	if !o.PNG && !o.JPEG && !o.HTML {
		return fmt.Errorf("at least one of --png, --jpeg, --html is required")
	}
	return nil
}

func (o *CaptureOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(o.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	cap := capture.New(
		o.OutDir,
		capture.Viewport{Width: 1280, Height: 800},
		"",
		capture.Timeouts{PageLoad: o.PageLoadTimeout, Capture: o.CaptureTimeout},
		capture.ScreenshotConfig{FullPage: false},
	)

	uploader, err := storage.NewLocalUploader(o.OutDir)
	if err != nil {
		return fmt.Errorf("failed to initialise local uploader: %w", err)
	}

	store := operation.NewMemoryStore()
	op, err := store.Create(o.URL)
	if err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
	}

	fmt.Fprintf(o.Out, "Capturing %s via %s...\n", o.URL, o.Endpoint)

	operation.Run(ctx, operation.RunOptions{
		Endpoint: o.Endpoint,
		URL:      o.URL,
		CaptureOptions: task.CaptureOptions{
			PNG:  o.PNG,
			JPEG: o.JPEG,
			HTML: o.HTML,
		},
		OperationID: op.ID,
		Store:       store,
		Gateway:     browser.NewChromeDPGateway(),
		Capturer:    cap,
		Uploader:    uploader,
	})

	final, err := store.Get(op.ID)
	if err != nil {
		return fmt.Errorf("failed to read operation result: %w", err)
	}

	if final.Status == operation.StatusFailed {
		return fmt.Errorf("capture failed: %s", final.Error)
	}

	fmt.Fprintf(o.Out, "Capture complete: status=%s ttfb=%s\n", final.Status, final.TTFB)
	for _, a := range final.Artefacts {
		fmt.Fprintf(o.Out, "  %s -> %s\n", a.Name, a.SignedURL)
	}

	return nil
}
