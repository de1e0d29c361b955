package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carscout/carscout/internal/api"
	"github.com/carscout/carscout/internal/browser"
	"github.com/carscout/carscout/internal/cache"
	"github.com/carscout/carscout/internal/catalog"
	"github.com/carscout/carscout/internal/config"
	"github.com/carscout/carscout/internal/listing"
	"github.com/carscout/carscout/internal/metrics"
	"github.com/carscout/carscout/internal/query"
	"github.com/carscout/carscout/internal/ratelimit"
	"github.com/carscout/carscout/internal/scraper"
)

// orchestratorSearcher adapts the acquisition orchestrator to the API's
// retailer-name based Search interface.
type orchestratorSearcher struct {
	o *scraper.Orchestrator
}

func (s *orchestratorSearcher) Search(ctx context.Context, q *query.CanonicalQuery, retailers []listing.Retailer, maxResults int) []scraper.Result {
	adapters := make([]scraper.Retailer, 0, len(retailers))
	for _, name := range retailers {
		switch name {
		case listing.RetailerCarMax:
			adapters = append(adapters, scraper.NewCarMax())
		case listing.RetailerAutoTrader:
			adapters = append(adapters, scraper.NewAutoTrader())
		case listing.RetailerKBB:
			adapters = append(adapters, scraper.NewKBB())
		case listing.RetailerTrueCar:
			adapters = append(adapters, scraper.NewTrueCar())
		}
	}
	return s.o.AcquireAll(ctx, adapters, q, maxResults)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
		if err != nil {
			logger.Error("failed to load catalog", "error", err, "path", cfg.Catalog.Path)
			os.Exit(1)
		}
	}
	logger.Info("catalog ready", "version", cat.Version)

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = cfg.Browser.Headless
	browserOpts.Timeout = time.Duration(cfg.Browser.TimeoutSeconds) * time.Second
	browserOpts.ProxyServer = cfg.Browser.Proxy

	b, err := browser.New(browserOpts)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	m := metrics.New()

	limits := ratelimit.NewRegistry(
		time.Duration(cfg.Scraper.MinDelaySeconds)*time.Second,
		time.Duration(cfg.Scraper.MaxDelaySeconds)*time.Second)

	orchestrator := scraper.NewOrchestrator(b, limits, m, scraper.Options{
		MaxResults:  cfg.Scraper.MaxResults,
		NavTimeout:  time.Duration(cfg.Scraper.NavTimeoutSeconds) * time.Second,
		SettleDelay: time.Duration(cfg.Scraper.SettleSeconds) * time.Second,
		Warmup:      cfg.Scraper.Warmup,
	})
	orchestrator.RegisterFast(listing.RetailerTrueCar, scraper.NewTrueCarAPI())

	var store cache.Store
	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	if cfg.Cache.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		store = cache.NewRedisStore(redisClient, cacheTTL)
		logger.Info("using Redis result cache", "addr", cfg.Cache.RedisAddr)
	} else {
		store = cache.NewMemoryStore(cfg.Cache.Size, cacheTTL)
	}

	normalizer := query.NewNormalizer(cat)
	handlers := api.NewHandlers(normalizer, &orchestratorSearcher{o: orchestrator}, store,
		logger.With("component", "api"))

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", handlers.Search)
		r.Post("/parse-query", handlers.ParseQuery)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
