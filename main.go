package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openhouse-crm/assistant/config"
	"github.com/openhouse-crm/assistant/internal/assembler"
	"github.com/openhouse-crm/assistant/internal/notify"
	"github.com/openhouse-crm/assistant/internal/provider"
	"github.com/openhouse-crm/assistant/internal/service"
	"github.com/openhouse-crm/assistant/internal/store"
	"github.com/openhouse-crm/assistant/internal/tools"
	v1 "github.com/openhouse-crm/assistant/internal/transport/http/v1"
	"github.com/openhouse-crm/assistant/policy"
)

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Str("database", cfg.DatabaseURL).
		Str("provider", cfg.Provider).
		Msg("starting assistant")

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer db.Close()

	adapter, err := provider.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider adapter")
	}

	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize policy engine")
	}

	notifier := notify.NewClient(cfg.NotifierURL)

	registry := tools.NewRegistry()
	handlers := tools.NewCRMHandlers(db, notifier)
	handlers.RegisterAll(registry)

	svc := service.New(db, adapter, assembler.New(db), registry, policyEngine, cfg)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h := v1.NewHandler(svc)
	h.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.HTTPPort).Msg("assistant API started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down assistant")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server gracefully")
	}

	log.Info().Msg("assistant stopped")
}
