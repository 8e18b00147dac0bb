package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"spa-backoffice/config"
	"spa-backoffice/routes"
	"spa-backoffice/services"
	"spa-backoffice/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	config.NewLogger(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			log.Fatal().Msg("JWT_SECRET must be set outside development")
		}
		cfg.JWTSecret = utils.GenerateJWTSecret()
		log.Warn().Msg("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	config.App = cfg

	if err := config.ConnectDB(cfg.DBURL); err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	if err := config.Migrate(config.DB); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	var reminder *services.SessionReminder
	sender, err := services.NewTwilioSender(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("session reminders disabled")
	} else {
		interval := time.Duration(cfg.ReminderIntervalDays) * 24 * time.Hour
		reminder = services.NewSessionReminder(config.DB, sender, interval)
		scheduler, err := reminder.Start(cfg.ReminderSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("reminder scheduler")
		}
		defer func() { <-scheduler.Stop().Done() }()
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.SetupRouter(cfg, reminder)
	if cfg.IsDevelopment() {
		printRoutes(r)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
			stop()
		}
	}()
	log.Info().Str("addr", srv.Addr).Msg("HTTP server started")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("graceful shutdown complete")
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
