package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"deeplink-engine/internal/api"
	"deeplink-engine/internal/config"
	"deeplink-engine/internal/listener"
	"deeplink-engine/internal/registry"
	"deeplink-engine/internal/seed"
	"deeplink-engine/internal/storage"
	"deeplink-engine/internal/tracking"
)

// App is the wired service: registry, optional store and tracker, and the
// HTTP server in front of them.
type App struct {
	cfg     config.Config
	reg     *registry.Registry
	store   *storage.Store // nil in seed-only mode
	tracker *tracking.Tracker
	closers []func()
	srv     *http.Server
}

// New wires the service. Without a postgres host the registry serves the
// seed file only and config writes are rejected.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	rows, err := seed.LoadFile(cfg.Links.SeedFile)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, reg: registry.New(rows)}

	if cfg.Postgres.Host != "" {
		st, err := storage.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.store = st
		a.closers = append(a.closers, st.Close)
		if err := a.reg.BuildSnapshot(ctx, st); err != nil {
			// keep serving the seed; the listener rebuilds on reconnect
			log.Error().Err(err).Msg("initial snapshot build")
		}
	} else {
		log.Warn().Int("tenants", a.reg.Len()).Msg("no postgres host configured, serving seed tenants only")
	}

	if cfg.Redis.URL != "" {
		rc, err := tracking.NewClient(cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.tracker = tracking.NewTracker(rc, cfg.Redis.KeyPrefix, cfg.CounterTTL())
		a.closers = append(a.closers, func() { _ = rc.Close() })
	}

	a.srv = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Router(a.handler(), cfg.RequestTimeout()),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout() + time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

func (a *App) handler() *api.LinkHandler {
	opts := api.Options{
		PublicOrigin: a.cfg.Server.PublicOrigin,
		QREndpoint:   a.cfg.Links.QREndpoint,
		QRSize:       a.cfg.Links.QRSize,
	}
	// typed nils must not reach the handler's optional interfaces
	var store api.ConfigStore
	if a.store != nil {
		store = a.store
	}
	var tracker api.OpenTracker
	if a.tracker != nil {
		tracker = a.tracker
	}
	return api.NewLinkHandler(a.reg, store, tracker, opts)
}

func (a *App) Handler() http.Handler { return a.srv.Handler }

func (a *App) Registry() *registry.Registry { return a.reg }

// Serve accepts connections on ln until ctx is cancelled, then shuts the
// server down gracefully. The config listener runs for the same lifetime.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.store != nil {
		go listener.ListenAndRefresh(ctx, a.store, a.reg, a.cfg.Listener.Channel, a.cfg.Backoff())
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("http server starting")
		errc <- a.srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown...")
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := a.srv.Shutdown(shCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Run serves cfg until SIGINT or SIGTERM.
func Run(cfg config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer a.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Server.Addr).Msg("listen")
	}
	if err := a.Serve(ctx, ln); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
