package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/webcapd/internal/browser"
	"github.com/tomasbasham/webcapd/internal/capture"
	"github.com/tomasbasham/webcapd/internal/config"
	"github.com/tomasbasham/webcapd/internal/logging"
	"github.com/tomasbasham/webcapd/internal/pool"
	"github.com/tomasbasham/webcapd/internal/server"
	"github.com/tomasbasham/webcapd/internal/storage"
	"github.com/tomasbasham/webcapd/internal/submission"
	"github.com/tomasbasham/webcapd/internal/worker"
)

// ServeOptions holds the `serve` subcommand's flags and resolved
// configuration.
type ServeOptions struct {
	ConfigPath string

	cfg *config.Config
}

var (
	serveLong = templates.LongDesc(`
		Start the dispatch service: load configuration, connect to every
		configured remote browser endpoint, and begin serving capture
		submissions and status queries over HTTP.`)

	serveExample = templates.Examples(`
		# Start using a config file
		webcapd serve --config webcapd.yaml

		# Start using only environment variables and defaults
		WEBCAPD_OUTPUT_DIR=/var/lib/webcapd WEBCAPD_BROWSERS=ws://localhost:9222 webcapd serve`)
)

func NewServeOptions() *ServeOptions {
	return &ServeOptions{}
}

func NewServeCommand(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the capture dispatch HTTP service",
		Long:    serveLong,
		Example: serveExample,
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

	cmd.Flags().StringVarP(&o.ConfigPath, "config", "c", "", "Path to a webcapd YAML config file (optional; env vars and defaults otherwise)")

	return cmd
}

func (o *ServeOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

func (o *ServeOptions) Validate() error {
	if o.cfg == nil {
		return fmt.Errorf("serve: configuration was not loaded")
	}
	return nil
}

func (o *ServeOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := logging.New(o.cfg.Log)
	if err != nil {
		return fmt.Errorf("serve: failed to initialise logging: %w", err)
	}

	uploader, err := buildUploader(ctx, o.cfg.Storage)
	if err != nil {
		return fmt.Errorf("serve: failed to initialise artefact mirror: %w", err)
	}

	gateway := browser.NewChromeDPGateway()
	cap := capture.New(
		o.cfg.OutputDir,
		capture.Viewport{Width: int64(o.cfg.Viewport.Width), Height: int64(o.cfg.Viewport.Height)},
		o.cfg.UserAgent,
		capture.Timeouts{
			PageLoad: time.Duration(o.cfg.Timeouts.PageLoadMs) * time.Millisecond,
			Capture:  time.Duration(o.cfg.Timeouts.CaptureMs) * time.Millisecond,
		},
		capture.ScreenshotConfig{FullPage: o.cfg.Screenshot.FullPage, Quality: o.cfg.Screenshot.Quality},
	)

	var capturer worker.Capturer = cap
	if uploader != nil {
		capturer = capture.NewMirroring(cap, uploader)
	}

	workers := make([]*worker.Worker, 0, len(o.cfg.Browsers))
	for i, b := range o.cfg.Browsers {
		id := fmt.Sprintf("worker-%d", i+1)
		slowMo := time.Duration(b.EffectiveSlowMoMs(o.cfg.SlowMoMs)) * time.Millisecond
		workers = append(workers, worker.New(id, b.Endpoint, gateway, capturer, slowMo, log))
	}

	// pool.New gets a context detached from the shutdown signal: each
	// worker's chromedp Session is rooted on the context passed to Connect,
	// so a cancellable ctx here would tear down every session, and any
	// in-flight capture with it, the moment a shutdown signal fires (see
	// Start's doc comment).
	p, err := pool.New(context.WithoutCancel(ctx), pool.Config{
		MaxRetries:          o.cfg.MaxRetries,
		QueuePollInterval:   time.Duration(o.cfg.QueuePollIntervalMs) * time.Millisecond,
		RejectDuplicateURLs: o.cfg.RejectDuplicateURLs,
		Log:                 log,
	}, workers)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	p.Start()
	log.WithField("workers", len(workers)).WithField("healthy", p.HealthyWorkerCount()).Info("worker pool started")

	frontend := submission.New(p)
	srv := server.New(frontend, p, log)

	addr := fmt.Sprintf(":%d", o.cfg.Server.Port)
	log.WithField("addr", addr).Info("starting webcapd HTTP server")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()

	select {
	case err := <-errCh:
		p.Shutdown()
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received, draining dispatch loops")
		p.Shutdown()
		return nil
	}
}

func buildUploader(ctx context.Context, cfg config.StorageConfig) (capture.Uploader, error) {
	switch cfg.Backend {
	case "none", "":
		return nil, nil
	case "local":
		return storage.NewLocalUploader(cfg.Dir)
	case "gcs":
		return storage.NewGCSUploader(ctx, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
