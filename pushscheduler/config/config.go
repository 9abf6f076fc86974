// Package config holds the single authoritative service configuration,
// assembled from the embedded YAML file and environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

// Scheduling strategy names, chosen at deployment time.
const (
	StrategyLocal  = "local"  // durable local queue + poll worker
	StrategyQStash = "qstash" // external delay queue + callback worker
)

// Pending queue backends.
const (
	QueueBackendFile      = "file"
	QueueBackendFirestore = "firestore"
)

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type VapidConfig struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
}

type QStashConfig struct {
	URL               string
	Token             string
	CurrentSigningKey string
	NextSigningKey    string
	// CallbackBaseURL is this service's public base URL; the delay
	// queue posts scheduled notifications back to it.
	CallbackBaseURL string
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ProjectID    string
	ListenAddr   string
	DefaultTitle string
	CronSecret   string

	Strategy     string
	QueueBackend string
	QueuePath    string

	// FirebaseServiceAccount is the service-account JSON blob; env only,
	// never written to YAML.
	FirebaseServiceAccount string

	CorsConfig middleware.CorsConfig
	Redis      RedisConfig
	Vapid      VapidConfig
	QStash     QStashConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PROJECT_ID", "source", "env")
		cfg.ProjectID = val
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("DEFAULT_TITLE"); val != "" {
		cfg.DefaultTitle = val
	}
	if val := os.Getenv("CRON_SECRET"); val != "" {
		cfg.CronSecret = val
	}
	if val := os.Getenv("SCHEDULER_STRATEGY"); val != "" {
		logger.Debug("Overriding config value", "key", "SCHEDULER_STRATEGY", "source", "env")
		cfg.Strategy = val
	}
	if val := os.Getenv("QUEUE_BACKEND"); val != "" {
		cfg.QueueBackend = val
	}
	if val := os.Getenv("QUEUE_PATH"); val != "" {
		cfg.QueuePath = val
	}
	if val := os.Getenv("FIREBASE_SERVICE_ACCOUNT"); val != "" {
		cfg.FirebaseServiceAccount = val
	}

	// VAPID Overrides
	if val := os.Getenv("VAPID_PUBLIC_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_PUBLIC_KEY", "source", "env")
		cfg.Vapid.PublicKey = val
	}
	if val := os.Getenv("VAPID_PRIVATE_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_PRIVATE_KEY", "source", "env")
		cfg.Vapid.PrivateKey = val
	}
	if val := os.Getenv("VAPID_SUB_EMAIL"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_SUB_EMAIL", "source", "env")
		cfg.Vapid.SubscriberEmail = val
	}

	// QStash Overrides
	if val := os.Getenv("QSTASH_URL"); val != "" {
		cfg.QStash.URL = val
	}
	if val := os.Getenv("QSTASH_TOKEN"); val != "" {
		cfg.QStash.Token = val
	}
	if val := os.Getenv("QSTASH_CURRENT_SIGNING_KEY"); val != "" {
		cfg.QStash.CurrentSigningKey = val
	}
	if val := os.Getenv("QSTASH_NEXT_SIGNING_KEY"); val != "" {
		cfg.QStash.NextSigningKey = val
	}
	if val := os.Getenv("CALLBACK_BASE_URL"); val != "" {
		logger.Debug("Overriding config value", "key", "CALLBACK_BASE_URL", "source", "env")
		cfg.QStash.CallbackBaseURL = val
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// CORS Overrides
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug("Overriding config value", "key", "CORS_ALLOWED_ORIGINS", "source", "env")
		rawOrigins := strings.Split(corsOrigins, ",")
		var cleanOrigins []string
		for _, o := range rawOrigins {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleanOrigins = append(cleanOrigins, trimmed)
			}
		}
		cfg.CorsConfig.AllowedOrigins = cleanOrigins
	}

	// Final Validation
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.DefaultTitle == "" {
		cfg.DefaultTitle = "PWA Demo"
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyLocal
	}
	if cfg.Strategy != StrategyLocal && cfg.Strategy != StrategyQStash {
		return nil, fmt.Errorf("unknown scheduler strategy %q (want %q or %q)", cfg.Strategy, StrategyLocal, StrategyQStash)
	}
	if cfg.QueueBackend == "" {
		cfg.QueueBackend = QueueBackendFile
	}
	if cfg.QueueBackend != QueueBackendFile && cfg.QueueBackend != QueueBackendFirestore {
		return nil, fmt.Errorf("unknown queue backend %q (want %q or %q)", cfg.QueueBackend, QueueBackendFile, QueueBackendFirestore)
	}
	if cfg.QueueBackend == QueueBackendFile && cfg.QueuePath == "" {
		cfg.QueuePath = "data/scheduled-notifications.json"
	}
	if cfg.QueueBackend == QueueBackendFirestore && cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required for the firestore queue backend (set via YAML or PROJECT_ID env var)")
	}
	if cfg.Strategy == StrategyQStash {
		if cfg.QStash.Token == "" {
			return nil, fmt.Errorf("qstash token is required for the qstash strategy (set QSTASH_TOKEN)")
		}
		if cfg.QStash.CallbackBaseURL == "" {
			return nil, fmt.Errorf("callback base url is required for the qstash strategy (set CALLBACK_BASE_URL)")
		}
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
