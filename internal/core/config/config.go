package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Gateway endpoints per environment. Overridable with GATEWAY_BASE_URL for
// local testing against a fake gateway.
const (
	sandboxBaseURL    = "https://sandbox.flexpay.example.com/epayment"
	productionBaseURL = "https://payment.flexpay.example.com/epayment"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisAddr   string

	// PublicBaseURL is where the gateway reaches us back (ResponseURL/BackendURL).
	PublicBaseURL string

	// Merchant credentials shared with the gateway. Every outbound request and
	// every inbound callback is signed with MerchantKey.
	MerchantCode string
	MerchantKey  string

	GatewayEntryURL   string
	GatewayRequeryURL string

	// Requery worker tuning.
	RequeryInterval time.Duration
	RequeryAfter    time.Duration
}

// LoadConfig reads the .env file and environment variables. It fails when the
// merchant credentials are absent: without them every callback is unverifiable,
// so we refuse to start instead of limping along.
func LoadConfig() (*Config, error) {
	// Try loading .env file (it might not exist in Production, which is fine)
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on System Env Variables")
	}

	merchantCode := os.Getenv("GATEWAY_MERCHANT_CODE")
	merchantKey := os.Getenv("GATEWAY_MERCHANT_KEY")
	if merchantCode == "" || merchantKey == "" {
		return nil, fmt.Errorf("GATEWAY_MERCHANT_CODE and GATEWAY_MERCHANT_KEY must be set")
	}

	env := getEnv("ENV", "development")

	baseURL := sandboxBaseURL
	if env == "production" {
		baseURL = productionBaseURL
	}
	if override := os.Getenv("GATEWAY_BASE_URL"); override != "" {
		baseURL = override
	}

	return &Config{
		Port:              getEnv("PORT", "3000"),
		Env:               env,
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		PublicBaseURL:     getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		MerchantCode:      merchantCode,
		MerchantKey:       merchantKey,
		GatewayEntryURL:   baseURL + "/entry",
		GatewayRequeryURL: baseURL + "/requery",
		RequeryInterval:   getDuration("REQUERY_INTERVAL", 30*time.Second),
		RequeryAfter:      getDuration("REQUERY_AFTER", 5*time.Minute),
	}, nil
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Invalid duration in env, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}
