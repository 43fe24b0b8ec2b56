package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/remboglow/facefit/internal/analysis"
	"github.com/remboglow/facefit/internal/analysis/gemini"
	analysismock "github.com/remboglow/facefit/internal/analysis/mock"
	"github.com/remboglow/facefit/internal/api"
	"github.com/remboglow/facefit/internal/config"
	"github.com/remboglow/facefit/internal/database"
	"github.com/remboglow/facefit/internal/facegate"
	"github.com/remboglow/facefit/internal/payment"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Face-Fit API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	ctx := context.Background()

	// Database pool
	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Analysis backend
	var analyzer analysis.Analyzer
	if cfg.UseMockAnalyzer {
		logger.Warn("using mock analyzer, no real analysis will run")
		analyzer = analysismock.New()
	} else {
		geminiCfg := gemini.DefaultConfig(cfg.GeminiAPIKey)
		geminiCfg.Model = cfg.GeminiModel
		geminiCfg.BaseURL = cfg.GeminiBaseURL
		geminiCfg.Timeout = cfg.AnalyzeTimeout
		analyzer = gemini.NewClient(geminiCfg)
	}

	// Face gate
	var gate facegate.Gate = facegate.NewNoop()
	if cfg.FaceGateEnabled {
		rekGate, err := facegate.NewRekognitionGate(ctx, cfg.AWSRegion, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize face gate: %w", err)
		}
		gate = rekGate
	}

	// Payment gateway client
	gatewayCfg := payment.DefaultConfig()
	gatewayCfg.BaseURL = cfg.PaymentBaseURL
	gateway := payment.NewClient(gatewayCfg)

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Analyzer:        analyzer,
		Gate:            gate,
		Gateway:         gateway,
		DB:              pool,
		CanonicalURL:    cfg.CanonicalURL,
		PremiumPriceKES: cfg.PremiumPriceKES,
		FreeUploadLimit: cfg.FreeUploadLimit,
		AnalyzeTimeout:  cfg.AnalyzeTimeout,
	})
	router.Setup()

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}
