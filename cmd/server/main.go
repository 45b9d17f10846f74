// Command server runs the messenger backend: the REST API, the SSE live
// event stream, and the optional cross-node bridge and presence backend.
//
// Startup order: env → config → logging → database → tracing → live delivery
// components → HTTP server. Shutdown walks the same chain in reverse with a
// bounded grace period.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mvasilakos/go-messenger-backend/internal/config"
	httpapi "github.com/mvasilakos/go-messenger-backend/internal/http"
	"github.com/mvasilakos/go-messenger-backend/internal/http/middleware"
	"github.com/mvasilakos/go-messenger-backend/internal/live"
	"github.com/mvasilakos/go-messenger-backend/internal/observability"
	"github.com/mvasilakos/go-messenger-backend/internal/presence"
	"github.com/mvasilakos/go-messenger-backend/internal/repo"
	"github.com/mvasilakos/go-messenger-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}

	// Live delivery: registry, optional NATS bridge, dispatcher.
	registry := live.NewRegistry()

	var bridge *live.Bridge
	var relay live.Relay
	if cfg.Live.NATSURL != "" {
		bridge, err = live.NewBridge(cfg.Live.NATSURL, cfg.Live.NodeName, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.Live.NATSURL).Msg("connect event bridge")
		}
		relay = bridge
	}
	dispatcher := live.NewDispatcher(registry, log.Logger, relay)
	if bridge != nil {
		if err := bridge.Start(dispatcher.DeliverLocal); err != nil {
			log.Fatal().Err(err).Msg("start event bridge")
		}
		log.Info().Str("node", cfg.Live.NodeName).Msg("event bridge online")
	}

	// Optional Redis-backed presence; nil store means everyone reads offline.
	var pres *presence.Store
	if cfg.Redis.Addr != "" {
		pres, err = presence.NewStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PresenceTTL)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("connect presence store")
		}
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, cfg, httpapi.Deps{
		DB:         db,
		Registry:   registry,
		Dispatcher: dispatcher,
		Presence:   pres,
		Verifier:   middleware.JWTVerifier{Secret: []byte(cfg.JWTSecret)},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		// WriteTimeout stays 0 by default: a non-zero value would sever
		// long-lived event streams.
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if bridge != nil {
		bridge.Close()
	}
	if err := pres.Close(); err != nil {
		log.Error().Err(err).Msg("presence close")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}
