package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/tobiasps/signalmaster/internal/adapters/http"
	signaladapter "github.com/tobiasps/signalmaster/internal/adapters/signal"
	"github.com/tobiasps/signalmaster/internal/app"
	"github.com/tobiasps/signalmaster/internal/config"
	"github.com/tobiasps/signalmaster/internal/turncred"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	turnServers := make([]turncred.Server, 0, len(cfg.TurnServers))
	for _, srv := range cfg.TurnServers {
		turnServers = append(turnServers, turncred.Server{
			Secret: srv.Secret,
			URLs:   srv.URLs,
			Expiry: srv.Expiry,
		})
	}
	issuer := turncred.NewIssuer(turnServers, cfg.TurnOrigins, nil)

	hub := signaladapter.NewHub()
	registry := app.NewRegistry()
	rooms := app.NewDirectory(registry, hub, cfg.Rooms.MaxClients, uuid.NewString)
	msgRouter := app.NewRouter(registry, rooms, hub, cfg.CodecPriority, cfg.MaxAverageBitRate)
	sessions := app.NewController(registry, rooms, msgRouter, hub, issuer, cfg.StunServers)
	ctl := signaladapter.NewWSController(hub, sessions, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("signalmaster started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited gracefully")
}
