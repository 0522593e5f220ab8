package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ykurilov/banana-editor/internal/http/handlers"
	"github.com/ykurilov/banana-editor/internal/http/httpapi"
	"github.com/ykurilov/banana-editor/internal/infra"
	"github.com/ykurilov/banana-editor/internal/providers/gemini"
	"github.com/ykurilov/banana-editor/internal/providers/image"
	"github.com/ykurilov/banana-editor/internal/providers/openrouter"
	"github.com/ykurilov/banana-editor/internal/providers/runware"
	"github.com/ykurilov/banana-editor/internal/session"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	store, err := session.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize session store")
	}

	providers := map[string]image.Caller{
		image.ProviderGemini: gemini.NewClient(gemini.Options{
			APIKey:         cfg.GeminiAPIKey,
			BaseURL:        cfg.GeminiBaseURL,
			Model:          cfg.GeminiModel,
			RequestTimeout: cfg.GeminiTimeout,
			Logger:         &logger,
		}),
		image.ProviderOpenRouter: openrouter.NewClient(openrouter.Options{
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.OpenRouterBaseURL,
			Model:   cfg.OpenRouterModel,
			Logger:  &logger,
		}),
		image.ProviderRunware: runware.NewClient(runware.Options{
			APIKey:         cfg.RunwareAPIKey,
			BaseURL:        cfg.RunwareBaseURL,
			Model:          cfg.RunwareModel,
			RequestTimeout: cfg.RunwareTimeout,
			Logger:         &logger,
		}),
	}

	app := handlers.NewApp(cfg, logger, providers, store)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("provider", cfg.Provider).
			Msg("API listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
