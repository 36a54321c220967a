package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL         string
	Port                int
	OCRWebhookSecret    string
	StripeWebhookSecret string
	CronSecret          string
	SyncBatchSize       int
	SyncPollInterval    int // seconds; <= 0 disables the internal poll loop
	ShutdownTimeout     int // seconds
	GoogleClientID      string
	GoogleClientSecret  string
	DeepseekAPIKey      string
}

const (
	defaultPort             = 8080
	defaultSyncBatchSize    = 5
	defaultSyncPollInterval = 0
	defaultShutdownTimeout  = 30
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	ocrSecret := os.Getenv("OCR_WEBHOOK_SECRET")
	if ocrSecret == "" {
		fmt.Println("Warning: OCR_WEBHOOK_SECRET not set, OCR webhook accepts any caller")
	}

	stripeSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if stripeSecret == "" {
		fmt.Println("Warning: STRIPE_WEBHOOK_SECRET not set, billing webhook signature check is disabled")
	}

	cronSecret := os.Getenv("CRON_SECRET")
	if cronSecret == "" {
		fmt.Println("Warning: CRON_SECRET not set, sync endpoints accept any caller")
	}

	googleClientID := os.Getenv("GOOGLE_CLIENT_ID")
	googleClientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if googleClientID == "" || googleClientSecret == "" {
		fmt.Println("Warning: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set, Gmail sync will not work")
	}

	deepseekAPIKey := os.Getenv("DEEPSEEK_API_KEY")
	if deepseekAPIKey == "" {
		fmt.Println("Warning: DEEPSEEK_API_KEY not set, AI document labeling will not work")
	}

	return &Config{
		DatabaseURL:         dbURL,
		Port:                intEnv("PORT", defaultPort, 1),
		OCRWebhookSecret:    ocrSecret,
		StripeWebhookSecret: stripeSecret,
		CronSecret:          cronSecret,
		SyncBatchSize:       intEnv("SYNC_BATCH_SIZE", defaultSyncBatchSize, 1),
		SyncPollInterval:    intEnv("SYNC_POLL_INTERVAL", defaultSyncPollInterval, 0),
		ShutdownTimeout:     defaultShutdownTimeout,
		GoogleClientID:      googleClientID,
		GoogleClientSecret:  googleClientSecret,
		DeepseekAPIKey:      deepseekAPIKey,
	}, nil
}

// intEnv returns the named env var as an int, or the fallback when unset,
// invalid, or below min. SYNC_POLL_INTERVAL legitimately takes 0 (poll loop
// disabled), so the floor is per-variable.
func intEnv(name string, fallback, min int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min {
		fmt.Printf("Warning: invalid %s=%q, using default %d\n", name, raw, fallback)
		return fallback
	}
	return value
}
