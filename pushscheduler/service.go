// Package pushscheduler assembles the push scheduling service: the
// HTTP server, the client-facing notification API and the worker
// endpoints driven by the delay queue and the cron scheduler.
package pushscheduler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-push-scheduler/internal/api"
	"github.com/tinywideclouds/go-push-scheduler/internal/qstash"
	"github.com/tinywideclouds/go-push-scheduler/internal/registry"
	"github.com/tinywideclouds/go-push-scheduler/internal/scheduler"
	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
	"github.com/tinywideclouds/go-push-scheduler/pkg/queue"
	"github.com/tinywideclouds/go-push-scheduler/pushscheduler/config"
)

type Wrapper struct {
	*microservice.BaseServer
	logger *slog.Logger
}

// New assembles the service. The caller provides the scheduler and its
// collaborators already wired for the configured strategy; New only
// builds the HTTP surface on top of them.
func New(
	cfg *config.Config,
	sched *scheduler.Scheduler,
	transports map[push.AddressType]push.Transport,
	reg registry.Registry,
	store queue.PendingStore,
	receiver *qstash.Receiver,
	logger *slog.Logger,
) (*Wrapper, error) {

	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	notificationAPI := api.NewNotificationAPI(sched, reg, store, logger)
	workerAPI := api.NewWorkerAPI(transports, receiver, store, cfg.CronSecret, cfg.DefaultTitle, logger)

	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	// Browser-facing endpoints go through CORS.
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	mux.Handle("POST /api/v1/notifications/send", corsMiddleware(http.HandlerFunc(notificationAPI.SendNotification)))
	mux.Handle("POST /api/v1/notifications/schedule", corsMiddleware(http.HandlerFunc(notificationAPI.ScheduleNotification)))
	mux.Handle("GET /api/v1/notifications/pending", corsMiddleware(http.HandlerFunc(notificationAPI.ListPending)))
	mux.Handle("POST /api/v1/subscriptions", corsMiddleware(http.HandlerFunc(notificationAPI.Subscribe)))
	mux.Handle("DELETE /api/v1/subscriptions", corsMiddleware(http.HandlerFunc(notificationAPI.Unsubscribe)))

	// Server-to-server endpoints: no CORS, the delay queue and the cron
	// scheduler are not browsers.
	mux.HandleFunc("POST /notifications/send-scheduled", workerAPI.SendScheduled)
	mux.HandleFunc("GET /cron/process-notifications", workerAPI.ProcessNotifications)

	return &Wrapper{
		BaseServer: baseServer,
		logger:     logger,
	}, nil
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		return err
	}
	w.logger.Info("Service shutdown complete.")
	return nil
}
