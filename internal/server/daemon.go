package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/rmksrv/mkxray-web/internal/activity"
	"github.com/rmksrv/mkxray-web/internal/api"
	"github.com/rmksrv/mkxray-web/internal/natsserver"
	"github.com/rmksrv/mkxray-web/internal/web"
)

// Daemon is the mkxray-web process.
type Daemon struct {
	cfg       Config
	logger    zerolog.Logger
	nats      *natsserver.Server
	recorder  *activity.Recorder
	apiServer *api.Server
	webServer *web.Server
	watcher   *configWatcher
	startedAt time.Time
	webAddr   string
	readyCh   chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewDaemon creates a Daemon from config.
func NewDaemon(cfg Config, logger zerolog.Logger) *Daemon {
	return &Daemon{
		cfg:     cfg,
		logger:  logger,
		readyCh: make(chan struct{}),
		stopCh:  make(chan struct{}),
	}
}

// Run starts all subsystems and blocks until a signal is received or Stop is called.
func (d *Daemon) Run() error {
	d.startedAt = time.Now()

	// 1. Start embedded NATS.
	ns, err := natsserver.New(natsserver.Config{
		Host:  d.cfg.NATS.Host,
		Port:  d.cfg.NATS.Port,
		Token: d.cfg.NATS.Token,
	}, d.logger.With().Str("component", "nats").Logger())
	if err != nil {
		return fmt.Errorf("start nats: %w", err)
	}
	d.nats = ns

	// 2. Activity recorder shared by every surface.
	d.recorder = activity.New(ns.Conn(), d.logger)

	// 3. Start API server.
	d.apiServer = api.New(d.cfg.Server.Socket, d.recorder, d.startedAt, d.logger)
	apiLn, err := d.apiServer.Listen()
	if err != nil {
		d.shutdown()
		return fmt.Errorf("api listen: %w", err)
	}
	apiErrCh := make(chan error, 1)
	go func() {
		apiErrCh <- d.apiServer.Serve(apiLn)
	}()

	// 4. Start web UI.
	d.webServer = web.New(web.Config{
		Listen:         d.cfg.Web.Listen,
		Username:       d.cfg.Web.Username,
		Password:       d.cfg.Web.Password,
		MaxConns:       d.cfg.Web.MaxConns,
		ActivityBuffer: d.cfg.Web.ActivityBuffer,
	}, d.cfg.Form.Defaults(), d.recorder, ns.Conn(), d.logger)
	webLn, err := d.webServer.Listen()
	if err != nil {
		d.shutdown()
		return fmt.Errorf("web listen: %w", err)
	}
	d.webAddr = webLn.Addr().String()
	webErrCh := make(chan error, 1)
	go func() {
		webErrCh <- d.webServer.Serve(webLn)
	}()

	// 5. Watch the config file for form default changes.
	if d.cfg.File != "" && d.cfg.Form.HotReload {
		w, err := newConfigWatcher(d.cfg.File, d.webServer.SetDefaults, d.logger)
		if err != nil {
			d.logger.Warn().Err(err).Str("file", d.cfg.File).Msg("config hot reload disabled")
		} else {
			d.watcher = w
		}
	}

	d.logger.Info().
		Str("socket", d.cfg.Server.Socket).
		Str("listen", d.webAddr).
		Msg("mkxray-web started")
	close(d.readyCh)

	// 6. Wait for signal, stop call, or server error.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		d.logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-d.stopCh:
		d.logger.Info().Msg("stop requested, shutting down")
	case err := <-apiErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error().Err(err).Msg("API server error")
			runErr = fmt.Errorf("api server: %w", err)
		}
	case err := <-webErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error().Err(err).Msg("web server error")
			runErr = fmt.Errorf("web server: %w", err)
		}
	}

	d.shutdown()
	return runErr
}

// Stop signals the daemon to shut down. Safe to call from another goroutine
// and more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

// Ready is closed once both servers accept connections.
func (d *Daemon) Ready() <-chan struct{} {
	return d.readyCh
}

// WebAddr returns the address the web UI listens on, valid after Ready.
func (d *Daemon) WebAddr() string {
	return d.webAddr
}

// NATSClientURL returns the embedded NATS server's client URL.
func (d *Daemon) NATSClientURL() string {
	if d.nats == nil {
		return ""
	}
	return d.nats.ClientURL()
}

// NATSConnectOpts returns NATS connection options for in-process connections.
func (d *Daemon) NATSConnectOpts() []nats.Option {
	if d.nats == nil {
		return nil
	}
	return []nats.Option{nats.InProcessServer(d.nats.NATSServer())}
}

func (d *Daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if d.watcher != nil {
		d.watcher.Close()
	}
	if d.webServer != nil {
		d.webServer.Shutdown(ctx)
	}
	if d.apiServer != nil {
		d.apiServer.Shutdown(ctx)
	}
	if d.nats != nil {
		d.nats.Shutdown()
	}
}
