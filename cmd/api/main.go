package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rafey804/flipfilex-sub000/internal/capability"
	"github.com/rafey804/flipfilex-sub000/internal/convert"
	"github.com/rafey804/flipfilex-sub000/internal/dispatch"
	"github.com/rafey804/flipfilex-sub000/internal/http/handlers"
	"github.com/rafey804/flipfilex-sub000/internal/http/httpapi"
	"github.com/rafey804/flipfilex-sub000/internal/infra"
	"github.com/rafey804/flipfilex-sub000/internal/infra/geoip"
	"github.com/rafey804/flipfilex-sub000/internal/jobs"
	"github.com/rafey804/flipfilex-sub000/internal/ratelimit"
	"github.com/rafey804/flipfilex-sub000/internal/storage"
)

const version = "1.0.0"

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, country enrichment disabled")
	}

	// Probe the external tools once; missing tools disable their kinds but
	// never block startup.
	caps := capability.Detect(convert.CapabilityProbes(cfg))
	for _, st := range caps.Report() {
		evt := logger.Info().Str("capability", st.Name).Bool("available", st.Available)
		if st.VersionHint != "" {
			evt = evt.Str("version", st.VersionHint)
		}
		if st.Detail != "" {
			evt = evt.Str("detail", st.Detail)
		}
		evt.Msg("capability probe")
	}

	store, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage area unavailable")
	}

	registry := jobs.NewRegistry()
	limiter := ratelimit.New(nil)
	pool := jobs.NewPool(cfg.WorkerCount, cfg.QueueDepth, logger)
	runner := convert.NewRunner(logger)
	table := convert.Table(cfg, runner)
	dispatcher := dispatch.New(store, registry, pool, limiter, caps, table, logger)

	app := handlers.NewApp(dispatcher, registry, store, caps, logger, version)
	router := httpapi.NewRouter(app, cfg, logger, geo)
	server := infra.NewHTTPServer(cfg, router)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	pool.Start(workerCtx)

	sweeper := storage.NewSweeper(store, cfg.StorageTTL, logger)
	sweepDone := make(chan struct{})
	go runSweepLoop(workerCtx, cfg.SweepInterval, sweeper, registry, limiter, sweepDone)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	// Stop the workers and the sweep loop.
	pool.Stop()
	stopWorkers()
	<-sweepDone
	logger.Info().Msg("server stopped")
}

// runSweepLoop periodically reaps expired storage entries, evicts stale job
// records, and prunes idle rate-limit buckets.
func runSweepLoop(ctx context.Context, interval time.Duration, sweeper *storage.Sweeper, registry *jobs.Registry, limiter *ratelimit.Limiter, done chan<- struct{}) {
	defer close(done)
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sweeper.Sweep(now)
			registry.EvictExpired(now, sweeper.TTL())
			limiter.Prune()
		}
	}
}
