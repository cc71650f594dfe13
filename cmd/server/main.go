package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/scirpter/CWL-Discord-Bot/internal/api"
	"github.com/scirpter/CWL-Discord-Bot/internal/config"
	"github.com/scirpter/CWL-Discord-Bot/internal/constants"
	fxmodules "github.com/scirpter/CWL-Discord-Bot/internal/fx"
	"github.com/scirpter/CWL-Discord-Bot/internal/middleware"
	"github.com/scirpter/CWL-Discord-Bot/internal/scheduler"
	"github.com/scirpter/CWL-Discord-Bot/internal/server"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	srv *server.Server,
	sched *scheduler.Scheduler,
	cocClient *api.CocClient,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	router := chi.NewRouter()
	router.Use(middleware.Correlation(logger))
	router.Use(c.Handler)
	srv.Routes(router)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.SchedulerOn {
				if err := sched.Start(cfg.SchedulerSpec); err != nil {
					return err
				}
			}
			go func() {
				logger.Info().Str("addr", httpSrv.Addr).Msg("server starting")
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if cfg.SchedulerOn {
				sched.Stop()
			}

			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			cocClient.Close()

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
