// Package main is the entry point for the development API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/docquery-ai/document-assistant/internal/config"
	"github.com/docquery-ai/document-assistant/internal/devserver"
	"github.com/docquery-ai/document-assistant/internal/llm"
	"github.com/docquery-ai/document-assistant/internal/middleware"
	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/pkg/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting development server")

	// LLM answers are optional; without a key the server synthesizes
	// answers from its seeded library.
	var llmClient llm.Client
	provider := llm.Provider(cfg.DefaultLLM)
	if key := providerKey(cfg, provider); key != "" {
		llmClient, err = llm.NewClient(provider, key)
		if err != nil {
			log.Warn("failed to create LLM client, using synthesized answers",
				zap.String("provider", cfg.DefaultLLM),
				zap.Error(err),
			)
		} else {
			log.Info("LLM client ready", zap.String("provider", llmClient.Name()))
		}
	}

	store := devserver.NewStore(log, llmClient)
	store.SeedDocuments(seedLibrary())
	h := devserver.NewHandler(store, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	h.Register(r)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// providerKey picks the API key matching the configured provider.
func providerKey(cfg *config.Config, provider llm.Provider) string {
	switch provider {
	case llm.ProviderOpenAI:
		return cfg.OpenAIAPIKey
	default:
		return cfg.AnthropicAPIKey
	}
}

// seedLibrary provides a small default library so the server answers
// queries out of the box.
func seedLibrary() []model.DocumentInfo {
	now := time.Now()
	return []model.DocumentInfo{
		{Filename: "lease-agreement.pdf", Size: 482133, Modified: now, Pages: 12, PageCount: 12, Status: model.DocumentStatusReady, ChunkCount: 48},
		{Filename: "quarterly-report.pdf", Size: 1093341, Modified: now, Pages: 40, PageCount: 40, Status: model.DocumentStatusReady, ChunkCount: 160},
		{Filename: "employee-handbook.pdf", Size: 733026, Modified: now, Pages: 25, PageCount: 25, Status: model.DocumentStatusReady, ChunkCount: 100},
	}
}
