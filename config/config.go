package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything read from the environment at startup.
// Secrets and per-deployment settings live in .env; pricing and
// commercial rules live in pricing.yaml (see Pricing).
type Config struct {
	DatabaseDSN string
	JWTSecret   string
	ListenAddr  string
	PublicURL   string

	SMTPServer string
	SMTPPort   string
	SMTPUser   string
	SMTPPass   string
	FromAddr   string
	FromName   string

	StripeSecretKey     string
	StripeWebhookSecret string

	PayFastMerchantID  string
	PayFastMerchantKey string
	PayFastPassphrase  string
	PayFastBaseURL     string

	PayShapProxy   string // PayShap proxy identifier (phone or merchant proxy)
	EFTBankAccount string

	GenAIBaseURL string
	GenAIKey     string
	GenAIModel   string

	AdminKey string

	RateLimitPerMin  int
	PaymentTimeout   time.Duration
	TrendingInterval time.Duration
}

// Load reads .env (if present) and builds the runtime config.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		DatabaseDSN: os.Getenv("DB"),
		JWTSecret:   os.Getenv("SECRET"),
		ListenAddr:  getEnvString("LISTEN_ADDR", ":8080"),
		PublicURL:   getEnvString("PUBLIC_URL", "http://localhost:8080"),

		SMTPServer: os.Getenv("SMTP_SERVER"),
		SMTPPort:   os.Getenv("SMTP_PORT"),
		SMTPUser:   os.Getenv("SMTP_USER"),
		SMTPPass:   os.Getenv("SMTP_PASS"),
		FromAddr:   os.Getenv("FROM_ADDR"),
		FromName:   os.Getenv("FROM_NAME"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		PayFastMerchantID:  os.Getenv("PAYFAST_MERCHANT_ID"),
		PayFastMerchantKey: os.Getenv("PAYFAST_MERCHANT_KEY"),
		PayFastPassphrase:  os.Getenv("PAYFAST_PASSPHRASE"),
		PayFastBaseURL:     getEnvString("PAYFAST_BASE_URL", "https://www.payfast.co.za/eng/process"),

		PayShapProxy:   os.Getenv("PAYSHAP_PROXY"),
		EFTBankAccount: os.Getenv("EFT_BANK_ACCOUNT"),

		GenAIBaseURL: getEnvString("GENAI_BASE_URL", "https://api.openai.com/v1"),
		GenAIKey:     os.Getenv("GENAI_API_KEY"),
		GenAIModel:   getEnvString("GENAI_MODEL", "gpt-4"),

		AdminKey: os.Getenv("ADMIN_KEY"),

		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 60),
	}

	var err error
	cfg.PaymentTimeout, err = getEnvDuration("PAYMENT_TIMEOUT", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.TrendingInterval, err = getEnvDuration("TRENDING_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("missing required environment variable DB")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required environment variable SECRET")
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
