package characterservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/charstore/charstore/internal/api"
	"github.com/charstore/charstore/internal/config"
	"github.com/charstore/charstore/internal/factory"
	"github.com/charstore/charstore/internal/health"
	"github.com/charstore/charstore/internal/images"
	"github.com/charstore/charstore/internal/logger"
	"github.com/charstore/charstore/internal/services"
	"github.com/charstore/charstore/internal/store"
)

// Options are command-line overrides applied on top of the environment.
type Options struct {
	DBDriver string
}

// Run starts the character service HTTP server and blocks until shutdown or error.
func Run(opts Options) error {
	log := logger.New("character-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	if opts.DBDriver != "" {
		cfg.DBDriver = opts.DBDriver
		if err := cfg.ResolveDefaults(); err != nil {
			log.Error().Err(err).Msg("Invalid db-driver override")
			return err
		}
	}
	log = log.Level(logLevel(cfg))

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Character service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	go a.health.Start(ctx, time.Duration(cfg.HealthIntervalSeconds)*time.Second)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, a.health); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, a.handler)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// app holds the wired dependencies of one service instance.
type app struct {
	store   store.Store
	health  *health.ServiceHealthChecker
	handler http.Handler
}

func (a *app) close() {
	_ = a.store.Close()
}

// newApp constructs the store, image directory, service and router.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, err
	}

	img, err := images.New(cfg.ImageDir, cfg.MaxUploadBytes)
	if err != nil {
		_ = st.Close()
		log.Error().Stack().Err(err).Msg("Image directory unavailable")
		return nil, err
	}

	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	svcHealth := health.NewServiceHealthChecker(log,
		store.NewStoreHealthChecker(st, log, probeTimeout),
		health.NewPingChecker("images", img, probeTimeout, log),
	)

	svc := services.NewCharacterService(st, img, log)
	handler := api.NewRouter(svc, api.NewHealthHandler(svcHealth), api.RouterOptions{
		ImageDir:       img.Dir(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowOrigin:    cfg.CORSAllowOrigin,
		Logger:         log,
	})
	return &app{store: st, health: svcHealth, handler: handler}, nil
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

// logLevel picks the minimum log level for the configured environment.
func logLevel(cfg *config.Config) zerolog.Level {
	switch {
	case cfg.IsProduction():
		return zerolog.InfoLevel
	case cfg.IsTesting():
		return zerolog.WarnLevel
	default:
		return zerolog.DebugLevel
	}
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// interval*2 with a floor of 10 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 10 {
		return 10
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
