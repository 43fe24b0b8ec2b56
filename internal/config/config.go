package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Analysis backend
	GeminiAPIKey    string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string        `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	GeminiBaseURL   string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	AnalyzeTimeout  time.Duration `envconfig:"ANALYZE_TIMEOUT" default:"30s"`
	UseMockAnalyzer bool          `envconfig:"USE_MOCK_ANALYZER" default:"false"`

	// Face gate
	FaceGateEnabled bool   `envconfig:"FACE_GATE_ENABLED" default:"false"`
	AWSRegion       string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Payments
	PaymentBaseURL  string `envconfig:"PAYMENT_BASE_URL" default:"https://face-fit.onrender.com"`
	CanonicalURL    string `envconfig:"CANONICAL_URL" default:"https://face-fit-ke.netlify.app"`
	PremiumPriceKES int    `envconfig:"PREMIUM_PRICE_KES" default:"500"`
	FreeUploadLimit int    `envconfig:"FREE_UPLOAD_LIMIT" default:"1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if !cfg.UseMockAnalyzer && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("load config: GEMINI_API_KEY is required unless USE_MOCK_ANALYZER is set")
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
