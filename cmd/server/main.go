package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"what-to-do/internal/config"
	"what-to-do/internal/handler"
	"what-to-do/internal/logger"
	"what-to-do/internal/middleware"
	"what-to-do/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)
	gin.SetMode(gin.ReleaseMode)

	ctx := context.Background()
	db, err := cfg.OpenGormDB()
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if err := service.Migrate(ctx, db); err != nil {
		logger.Error("migrate failed", "err", err)
		os.Exit(1)
	}
	taxonomy := service.NewTaxonomyService(db)
	if n, err := taxonomy.Seed(ctx); err != nil {
		logger.Error("seed failed", "err", err)
		os.Exit(1)
	} else if n > 0 {
		logger.Info("emotions seeded", "count", n)
	}

	raw, err := cfg.NewRawClient()
	if err != nil {
		logger.Warn("sdk client init failed", "err", err)
	}
	catalog := service.NewCatalogSync(raw, cfg.MOI)
	if catalog != nil {
		logger.Info("catalog sync enabled")
	}

	ai := service.NewAIService(cfg.LLM, raw, cfg.MOI)
	cache := service.NewSummaryCache(ctx, cfg.Redis)

	events := service.NewEventService(db)
	events.OnSave(catalog.SyncEvent)
	events.OnDelete(catalog.RemoveEvent)
	summaries := service.NewSummaryService(db, events, ai, cache, cfg.LLM.SystemPrompt)
	summaries.OnSave(catalog.SyncDaySummary)
	exporter := service.NewExporter(cfg.Export.Dir)

	jwt := middleware.NewJWT(cfg.Auth.JWTSecret, cfg.TokenTTL())
	r := handler.NewRouter(handler.Handlers{
		Auth:     handler.NewAuthHandler(service.NewAuthService(db), jwt),
		Taxonomy: handler.NewTaxonomyHandler(taxonomy),
		Activity: handler.NewActivityHandler(service.NewActivityService(db)),
		Day:      handler.NewDayHandler(events, summaries),
		Summary:  handler.NewSummaryHandler(summaries, exporter, ai),
	}, handler.RouterConfig{
		JWT:              jwt,
		SummaryPerMinute: cfg.RateLimit.SummaryPerMinute,
		SummaryBurst:     cfg.RateLimit.Burst,
	})

	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr())
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
