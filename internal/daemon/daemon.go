package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avremote-network/avremote/internal/api"
	"github.com/avremote-network/avremote/internal/discovery"
	_ "github.com/avremote-network/avremote/internal/infra/metrics" // register Prometheus metrics
	"github.com/avremote-network/avremote/internal/session"
)

// Daemon is the AVRemote runtime: the Bluetooth discovery stack, the
// session supervisor, and the HTTP API wired together.
type Daemon struct {
	Config     Config
	Discovery  discovery.Service
	Supervisor *session.Supervisor
	Server     *api.Server

	cancel context.CancelFunc
}

// New creates a Daemon from the on-disk configuration.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	svc, err := discovery.NewBlueZ()
	if err != nil {
		return nil, fmt.Errorf("bluetooth discovery: %w", err)
	}

	sup := session.NewSupervisor(svc, session.Config{
		PSM:                     cfg.Bluetooth.PSM,
		PositionIntervalSeconds: cfg.Bluetooth.PositionIntervalSeconds,
	})

	srv := api.NewServer(sup)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:     cfg,
		Discovery:  svc,
		Supervisor: sup,
		Server:     srv,
	}, nil
}

// Serve runs the supervisor and the HTTP server until a signal arrives,
// the context is canceled, or the supervisor fails.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	supDone := make(chan error, 1)
	go func() { supDone <- d.Supervisor.Run(ctx) }()

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var supErr error
	go func() {
		select {
		case <-sigCh:
			log.Printf("[daemon] signal received, shutting down")
		case <-ctx.Done():
		case supErr = <-supDone:
			if supErr != nil {
				log.Printf("[daemon] supervisor failed: %v", supErr)
			}
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.Discovery.Close()
	}()

	fmt.Printf("AVRemote serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return supErr
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Discovery != nil {
		_ = d.Discovery.Close()
	}
}
