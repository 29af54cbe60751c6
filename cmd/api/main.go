// @title           Youth Admin API
// @version         1.0
// @description     Roster, attendance and messaging API for a church youth ministry.
// @BasePath        /
// @securityDefinitions.apikey SessionCookie
// @in              header
// @name            session
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

	"github.com/mokjang/youth-admin/internal/api"
	"github.com/mokjang/youth-admin/internal/api/handler"
	"github.com/mokjang/youth-admin/internal/infrastructure/config"
	mongodb "github.com/mokjang/youth-admin/internal/infrastructure/db/mongo"
	redisdb "github.com/mokjang/youth-admin/internal/infrastructure/db/redis"
	"github.com/mokjang/youth-admin/internal/infrastructure/queue"
	"github.com/mokjang/youth-admin/internal/infrastructure/sms"
	"github.com/mokjang/youth-admin/pkg/logger"
)

func main() {
	cfg := config.LoadAPI(zerolog.New(os.Stderr).With().Timestamp().Logger())
	log := logger.Init(logger.Options{Service: "youth-admin-api", Level: cfg.LogLevel, Pretty: cfg.IsDevelopment()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect error")
		}
	}()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close error")
		}
	}()

	sender, err := sms.NewSender(cfg.SMS.Sender, log)
	if err != nil {
		log.Fatal().Err(err).Msg("sms sender init failed")
	}

	routerCfg := api.Config{
		JWTSecret:  cfg.JWTSecret,
		SessionTTL: cfg.Cookie.TokenTTL,
		Cookie:     handler.CookieConfig{Name: cfg.Cookie.Name, Secure: cfg.Cookie.Secure},
	}
	services := api.NewServices(db, rdb, sender, routerCfg, log)
	if err := services.Auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	dispatcher := queue.NewDispatcher(cfg.SMS.Workers, services.SMS, log)
	dispatcher.Start(ctx)

	e := api.NewRouter(services, dispatcher, handler.DependencyChecks(db, rdb), routerCfg, log)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("api listening")
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
	dispatcher.Wait()
}
