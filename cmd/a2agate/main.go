// Command a2agate runs the agent task routing gateway. The readiness
// subcommand runs the deployment readiness gate and exits with its verdict.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/a2agate/internal/adapter/discovery"
	cfhttp "github.com/Strob0t/a2agate/internal/adapter/http"
	cfmcp "github.com/Strob0t/a2agate/internal/adapter/mcp"
	cfnats "github.com/Strob0t/a2agate/internal/adapter/nats"
	"github.com/Strob0t/a2agate/internal/adapter/natskv"
	cfotel "github.com/Strob0t/a2agate/internal/adapter/otel"
	"github.com/Strob0t/a2agate/internal/adapter/postgres"
	"github.com/Strob0t/a2agate/internal/adapter/ristretto"
	"github.com/Strob0t/a2agate/internal/adapter/runtimehttp"
	"github.com/Strob0t/a2agate/internal/adapter/tiered"
	"github.com/Strob0t/a2agate/internal/config"
	"github.com/Strob0t/a2agate/internal/domain/environment"
	"github.com/Strob0t/a2agate/internal/logger"
	"github.com/Strob0t/a2agate/internal/middleware"
	"github.com/Strob0t/a2agate/internal/port/cache"
	"github.com/Strob0t/a2agate/internal/registry"
	"github.com/Strob0t/a2agate/internal/resilience"
	"github.com/Strob0t/a2agate/internal/resolver"
	"github.com/Strob0t/a2agate/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "readiness":
			os.Exit(runReadiness(os.Args[2:]))
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: a2agate [command] [options]

Commands:
  serve       Run the routing gateway (default)
  readiness   Check whether an agent may be deployed to an environment
  help        Show this help message

Examples:
  a2agate
  a2agate readiness --agent-name bob --env prod --approve
`)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"default_env", cfg.Gateway.DefaultEnv,
		"max_hops", cfg.Gateway.MaxHops,
		"log_level", cfg.Logging.Level,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := cfotel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	health := map[string]cfhttp.HealthCheck{}
	var regOpts []registry.Option

	// --- Infrastructure (optional) ---

	// PostgreSQL
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		slog.Info("postgres connected")

		v, err := postgres.RunMigrations(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied", "version", v)

		regOpts = append(regOpts, registry.WithStore(postgres.NewCardStore(pool)))
		health["postgres"] = pool.Ping
	}

	// NATS
	var queue *cfnats.Queue
	if cfg.NATS.URL != "" {
		queue, err = cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()

		regOpts = append(regOpts, registry.WithEvents(queue))
		health["nats"] = func(context.Context) error {
			if !queue.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}
	}

	// --- Static tables ---
	reg := registry.New(cfg.Registry.ProtocolVersion, regOpts...)
	if err := reg.Load(ctx); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	seeded, err := reg.PublishFile(ctx, cfg.Registry.CardsFile)
	if err != nil {
		return fmt.Errorf("seed cards: %w", err)
	}
	if seeded > 0 {
		slog.Info("seed cards published", "count", seeded, "file", cfg.Registry.CardsFile)
	}

	features, err := resolver.LoadFromFile(cfg.Features.File)
	if err != nil {
		return fmt.Errorf("features: %w", err)
	}
	envs, err := environment.LoadFromFile(cfg.Environments.File)
	if err != nil {
		return fmt.Errorf("environments: %w", err)
	}

	// --- Discovery ---
	if err := discoverCards(ctx, cfg, reg, queue, metrics); err != nil {
		return err
	}

	// --- Services ---
	breakers := resilience.NewSet(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	rt := runtimehttp.NewClient(cfg.Gateway.RuntimePath, runtimehttp.WithBreakers(breakers))

	router := service.NewRouter(cfg.Gateway, reg, features, rt)
	router.SetMetrics(metrics)
	router.SetLogger(log)
	if queue != nil {
		router.SetEvents(queue)
	}

	// --- MCP ---
	var mcpHandler http.Handler
	var mcpSrv *cfmcp.Server
	if cfg.MCP.Enabled {
		mcpSrv = cfmcp.NewServer(cfmcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "a2agate",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, cfmcp.ServerDeps{
			Router:       router,
			Cards:        reg,
			Flags:        features,
			Environments: envs,
		})
		if cfg.MCP.Addr == "" {
			mcpHandler = mcpSrv.Handler()
		} else if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
	}

	// --- HTTP ---
	handlers := &cfhttp.Handlers{
		Router:   router,
		Registry: reg,
		Features: features,
		Self:     cfhttp.GatewayCard(cfg.Server.BaseURL, version),
		Health:   health,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(cfotel.HTTPMiddleware(cfg.Telemetry.ServiceName))
	r.Use(middleware.RequestID)
	r.Use(middleware.CorrelationID)
	r.Use(cfhttp.Logger)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout(&cfg.Gateway)))

	cfhttp.MountRoutes(r, handlers, mcpHandler)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout(&cfg.Gateway) + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if mcpSrv != nil {
		if err := mcpSrv.Stop(shutdownCtx); err != nil {
			slog.Warn("mcp shutdown", "error", err)
		}
	}
	return srv.Shutdown(shutdownCtx)
}

// requestTimeout bounds one inbound request: the longest outbound call plus
// headroom for resolution and encoding.
func requestTimeout(g *config.Gateway) time.Duration {
	longest := g.DefaultTimeout
	for _, d := range g.Timeouts {
		longest = max(longest, d)
	}
	return longest + 5*time.Second
}

// discoverCards fetches the configured agents' cards into reg. Individual
// failures are logged; the gateway starts with whatever was found. With NATS
// available, fetched documents are shared with other replicas.
func discoverCards(ctx context.Context, cfg *config.Config, reg *registry.Registry, queue *cfnats.Queue, metrics *cfotel.Metrics) error {
	if len(cfg.Discovery.Agents) == 0 {
		return nil
	}
	targets, err := discovery.Targets(cfg.Discovery,
		os.Getenv(cfg.Readiness.ProjectEnv), os.Getenv(cfg.Readiness.LocationEnv))
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}

	local, err := ristretto.New(cfg.Discovery.CacheSizeMB << 20)
	if err != nil {
		return fmt.Errorf("discovery cache: %w", err)
	}
	defer local.Close()

	var docCache cache.Cache = local
	if queue != nil && cfg.Discovery.SharedBucket != "" {
		shared, err := natskv.Open(ctx, queue.JetStream(), cfg.Discovery.SharedBucket, cfg.Discovery.CacheTTL)
		if err != nil {
			slog.Warn("shared card cache disabled", "bucket", cfg.Discovery.SharedBucket, "error", err)
		} else {
			docCache = tiered.New(local, shared, cfg.Discovery.CacheTTL)
		}
	}

	fetcher := discovery.NewFetcher(cfg.Discovery.FetchTimeout,
		discovery.WithCache(docCache, cfg.Discovery.CacheTTL),
		discovery.WithRecorder(metrics),
	)
	n, err := fetcher.Sync(ctx, reg, targets, cfg.Discovery.MaxParallel)
	if err != nil {
		slog.Warn("card discovery incomplete", "published", n, "targets", len(targets), "error", err)
		return nil
	}
	slog.Info("card discovery complete", "published", n)
	return nil
}
