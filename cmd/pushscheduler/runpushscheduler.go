package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/tinywideclouds/go-push-scheduler/internal/platform/fcm"
	"github.com/tinywideclouds/go-push-scheduler/internal/platform/web"
	"github.com/tinywideclouds/go-push-scheduler/internal/qstash"
	"github.com/tinywideclouds/go-push-scheduler/internal/registry"
	"github.com/tinywideclouds/go-push-scheduler/internal/scheduler"
	"github.com/tinywideclouds/go-push-scheduler/internal/storage/cache"
	fileStore "github.com/tinywideclouds/go-push-scheduler/internal/storage/file"
	fsStore "github.com/tinywideclouds/go-push-scheduler/internal/storage/firestore"
	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
	"github.com/tinywideclouds/go-push-scheduler/pkg/queue"

	"github.com/tinywideclouds/go-push-scheduler/pushscheduler"
	"github.com/tinywideclouds/go-push-scheduler/pushscheduler/config"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "go-push-scheduler")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config Loading ---
	baseCfg, err := config.NewConfigFromYaml(configFile, logger)
	if err != nil {
		logger.Error("Failed to parse embedded yaml config", "err", err)
		os.Exit(1)
	}
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Pending Store ---
	var store queue.PendingStore
	switch cfg.QueueBackend {
	case config.QueueBackendFirestore:
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			logger.Error("Firestore client failed", "err", err)
			os.Exit(1)
		}
		defer fsClient.Close()
		store = fsStore.NewStore(fsClient)
		logger.Info("PendingStore initialized", "type", "firestore")
	default:
		store = fileStore.NewStore(cfg.QueuePath)
		logger.Info("PendingStore initialized", "type", "file", "path", cfg.QueuePath)
	}

	// --- Subscriber Registry ---
	var reg registry.Registry = registry.NewMemory()
	if cfg.Redis.Enabled {
		logger.Info("Initializing Redis registry...", "addr", cfg.Redis.Addr)
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		reg = registry.NewRedis(redisClient, 30*24*time.Hour)
		logger.Info("Registry initialized", "type", "redis")
	} else {
		logger.Info("Registry initialized", "type", "memory")
	}

	// --- Transports ---

	// A. FCM token transport.
	fcmTransport := fcm.NewTransport(logger)
	if cfg.FirebaseServiceAccount != "" {
		client, err := fcm.NewMessagingClient(ctx, []byte(cfg.FirebaseServiceAccount))
		if err != nil {
			logger.Error("Failed to create FCM messaging client", "err", err)
			os.Exit(1)
		}
		if err := fcmTransport.Configure(client); err != nil {
			logger.Error("FCM transport configuration failed", "err", err)
			os.Exit(1)
		}
		logger.Info("FCM transport enabled")
	} else {
		logger.Warn("FIREBASE_SERVICE_ACCOUNT missing. FCM sends will fail.")
	}

	// B. Web Push (VAPID) transport.
	webTransport := web.NewTransport(logger)
	if cfg.Vapid.PublicKey == "" || cfg.Vapid.PrivateKey == "" {
		logger.Warn("VAPID keys missing in configuration. Web Push will fail.")
	} else {
		if err := webTransport.Configure(web.VapidKeys{
			PublicKey:  cfg.Vapid.PublicKey,
			PrivateKey: cfg.Vapid.PrivateKey,
			Subscriber: cfg.Vapid.SubscriberEmail,
		}); err != nil {
			logger.Error("Web Push transport configuration failed", "err", err)
			os.Exit(1)
		}
		logger.Info("Web Push transport enabled", "public_key", cfg.Vapid.PublicKey)
	}

	transports := map[push.AddressType]push.Transport{
		push.AddressTypeToken:        fcmTransport,
		push.AddressTypeSubscription: webTransport,
	}

	// --- Deferred Strategy ---
	var enqueuer scheduler.Enqueuer
	var receiver *qstash.Receiver
	switch cfg.Strategy {
	case config.StrategyQStash:
		client := qstash.NewClient(cfg.QStash.URL, cfg.QStash.Token, logger)
		enqueuer = scheduler.NewQStashEnqueuer(client, cfg.QStash.CallbackBaseURL+"/notifications/send-scheduled")
		receiver = &qstash.Receiver{
			CurrentSigningKey: cfg.QStash.CurrentSigningKey,
			NextSigningKey:    cfg.QStash.NextSigningKey,
		}
		if !receiver.Enabled() {
			logger.Warn("QStash signing keys missing. Callback signatures will not be verified.")
		}
		logger.Info("Deferred strategy selected", "strategy", "qstash")
	default:
		enqueuer = scheduler.NewLocalEnqueuer(store)
		logger.Info("Deferred strategy selected", "strategy", "local")
	}

	sched := scheduler.New(reg, transports, enqueuer, cfg.DefaultTitle, logger)

	// --- Service ---
	service, err := pushscheduler.New(cfg, sched, transports, reg, store, receiver, logger)
	if err != nil {
		logger.Error("Service creation failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting service...", "addr", cfg.ListenAddr)
	if err := service.Start(ctx); err != nil {
		logger.Error("Service shutdown with error", "err", err)
		os.Exit(1)
	}
}
