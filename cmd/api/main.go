package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"styliq/internal/app"
	"styliq/internal/http/handlers"
	httpapi "styliq/internal/http/httpapi"
	"styliq/internal/infra"
)

func main() {
	infra.LoadDotEnv()

	// Configuration problems stop the process before anything is served.
	cfg, err := infra.LoadConfig()
	if err != nil {
		logger := infra.NewLogger(os.Getenv("APP_ENV"))
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	comps, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer comps.Close()

	handlerApp := handlers.NewApp(comps.Service, comps.Personas, cfg.MaxUploadBytes, infra.Component(logger, "http"))
	router := httpapi.NewRouter(handlerApp, httpapi.Options{
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
