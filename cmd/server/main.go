package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fasoagent.bf/assistant/internal/api"
	"fasoagent.bf/assistant/internal/config"
	"fasoagent.bf/assistant/internal/core"
	"fasoagent.bf/assistant/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	logger, err := newLogger(config.AppConfig.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize persistence
	kv, err := store.NewSQLiteKV(config.AppConfig.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", config.AppConfig.DatabaseURL))
	}
	defer kv.Close()

	conversationStore := store.NewConversationStore(kv, logger)

	// Initialize the Gemini adapter and the orchestration engine
	aiClient := core.NewGeminiClient(config.AppConfig.GeminiAPIKey, logger)
	defer aiClient.Close()

	orchestrator := core.NewOrchestrator(aiClient, conversationStore, logger)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(orchestrator, aiClient, conversationStore, logger)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not listen", zap.String("addr", serverAddr), zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	// Let in-flight image follow-ups settle so their results get persisted.
	orchestrator.WaitPending()

	logger.Info("server exiting gracefully")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "DEBUG" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
