package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camstream/internal/camera"
	"camstream/internal/platform/config"
	"camstream/internal/platform/logger"
	"camstream/internal/platform/metrics"
	"camstream/internal/platform/tunnel"
	"camstream/internal/platform/web"
	"camstream/internal/supervisor"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const tunnelLookupTimeout = 3 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	store := camera.NewFileStore(cfg.RegistryFile)
	repo, err := camera.NewRepository(store)
	if err != nil {
		log.Error("load camera registry", "path", store.Path(), "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Error("create output dir", "path", cfg.OutputDir, "error", err)
		os.Exit(1)
	}

	resolver := tunnel.NewResolver(cfg.TunnelAPIURL, cfg.LocalBaseURL(), nil, log)
	endpoint := tunnel.NewEndpoint(resolver, cfg.PublicBaseURL)
	lookupCtx, lookupCancel := context.WithTimeout(context.Background(), tunnelLookupTimeout)
	baseURL := endpoint.BaseURL(lookupCtx)
	lookupCancel()

	met := metrics.New()
	sup := supervisor.New(
		supervisor.NewFFmpegLauncher(cfg.FFmpegBin, cfg.WorkerStopGrace),
		repo,
		supervisor.Options{
			OutputDir:          cfg.OutputDir,
			BaseURL:            baseURL,
			MaxWorkers:         cfg.MaxWorkers,
			StartupConcurrency: cfg.StartupConcurrency,
		},
		log,
		met,
	)
	svc := camera.NewService(repo, sup, baseURL)
	h := camera.NewHandler(svc, cfg.OutputDir, log, met)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(web.AllowAllCORS)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			met.SetActiveWorkers(sup.LiveCount())
			met.SetActiveCameras(svc.ActiveCameraCount())
		}).ServeHTTP(w, r)
	})
	h.Routes(r, web.RateLimitPerIP(cfg.AddCameraRateLimit, time.Minute))

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	log.Info("server starting",
		"port", cfg.Port,
		"registry", store.Path(),
		"output_dir", cfg.OutputDir,
		"base_url", baseURL,
		"max_workers", cfg.MaxWorkers,
		"log_level", cfg.LogLevel,
	)

	startCtx, startCancel := context.WithCancel(context.Background())
	go func() {
		if err := svc.StartActive(startCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("startup launches interrupted", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	code := serve(srv, sup, sigCh, startCancel, cfg.ShutdownTimeout, log)
	if code != 0 {
		os.Exit(code)
	}
	log.Info("server stopped")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// serve runs srv until a signal arrives or the listener fails, then drains
// the server and stops every worker. It returns the process exit code.
func serve(srv *http.Server, workers shutdowner, sig <-chan os.Signal, stopStartup func(), timeout time.Duration, log *slog.Logger) int {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	code := 0
	select {
	case <-sig:
		log.Info("shutdown signal received, draining connections")
	case err := <-serveErr:
		log.Error("server error", "error", err)
		code = 1
	}
	stopStartup()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		code = 1
	}
	if err := workers.Shutdown(ctx); err != nil {
		log.Error("worker shutdown error", "error", err)
		code = 1
	}
	return code
}
