package config

import (
	"os"
	"strconv"
	"time"

	"github.com/resolutpro/Tranformacion-digital-cerdo-2026-sub000/pkg/database"
)

// Config holds service configuration, loaded from environment variables.
type Config struct {
	HTTP struct {
		Addr string
	}

	Database database.Config

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Log struct {
		Level  string
		Format string
	}

	// Ingest configures the broker ingestion pool.
	Ingest IngestConfig

	// Webhook configures the optional alert webhook notifier.
	Webhook WebhookConfig

	// Trace configures the public traceability surface.
	Trace TraceConfig
}

// IngestConfig configures MQTT ingestion.
type IngestConfig struct {
	Enabled           bool
	QoS               byte
	ClientIDPrefix    string
	ReconcileInterval time.Duration
	AlertStream       string // Redis stream alerts are published to
}

// WebhookConfig configures the alert webhook notifier. Disabled when URL is
// empty.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

// TraceConfig configures public trace URLs embedded in move responses.
type TraceConfig struct {
	PublicBaseURL string // e.g. "https://trace.example.com/trace"
}

// Load reads configuration from the environment, applying defaults suitable
// for local development.
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "cerdotrace")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Ingest.Enabled = getEnv("INGEST_ENABLED", "true") == "true"
	cfg.Ingest.QoS = byte(parseInt(getEnv("INGEST_QOS", "1"), 1))
	cfg.Ingest.ClientIDPrefix = getEnv("INGEST_CLIENT_ID_PREFIX", "cerdotrace-ingest")
	cfg.Ingest.ReconcileInterval = time.Duration(parseInt(getEnv("INGEST_RECONCILE_SECONDS", "60"), 60)) * time.Second
	cfg.Ingest.AlertStream = getEnv("INGEST_ALERT_STREAM", "cerdotrace:alerts")

	cfg.Webhook.URL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Webhook.Timeout = time.Duration(parseInt(getEnv("ALERT_WEBHOOK_TIMEOUT_SECONDS", "5"), 5)) * time.Second

	cfg.Trace.PublicBaseURL = getEnv("TRACE_PUBLIC_BASE_URL", "http://localhost:8080/trace")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
