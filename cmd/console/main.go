package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/client/localstore"
	"github.com/mokjang/youth-admin/internal/console"
	"github.com/mokjang/youth-admin/internal/infrastructure/config"
	"github.com/mokjang/youth-admin/pkg/logger"
)

func main() {
	cfg := config.LoadConsole(zerolog.New(os.Stderr).With().Timestamp().Logger())
	log := logger.Init(logger.Options{Service: "youth-admin-console", Level: cfg.LogLevel, Pretty: cfg.IsDevelopment()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := localstore.New(cfg.StoreDir)
	if err != nil {
		log.Fatal().Err(err).Msg("local store init failed")
	}

	registry := console.NewRegistry(console.RegistryConfig{
		APIBaseURL:  cfg.APIBaseURL,
		CacheTTL:    cfg.CacheTTL,
		IdleTimeout: cfg.IdleTimeout,
	}, log)
	go registry.Run(ctx, time.Minute)

	e, err := console.NewServer(console.Config{
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
	}, registry, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("console init failed")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("api", cfg.APIBaseURL).Msg("console listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
