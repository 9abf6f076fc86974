package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	"github.com/tinywideclouds/go-push-scheduler/internal/qstash"
	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
	"github.com/tinywideclouds/go-push-scheduler/pkg/queue"
)

// WorkerAPI hosts the deferred-delivery endpoints: the delay-queue
// callback and the cron-driven poll over the local queue.
type WorkerAPI struct {
	Transports map[push.AddressType]push.Transport
	Receiver   *qstash.Receiver
	Store      queue.PendingStore
	CronSecret string
	Title      string

	now    func() time.Time
	logger *slog.Logger
}

func NewWorkerAPI(
	transports map[push.AddressType]push.Transport,
	receiver *qstash.Receiver,
	store queue.PendingStore,
	cronSecret string,
	title string,
	logger *slog.Logger,
) *WorkerAPI {
	return &WorkerAPI{
		Transports: transports,
		Receiver:   receiver,
		Store:      store,
		CronSecret: cronSecret,
		Title:      title,
		now:        time.Now,
		logger:     logger.With("component", "WorkerAPI"),
	}
}

// WithNow overrides the clock. Test hook.
func (api *WorkerAPI) WithNow(now func() time.Time) *WorkerAPI {
	api.now = now
	return api
}

// --- Callback worker ---

type ScheduledCallback struct {
	ID      string       `json:"id"`
	Message string       `json:"message"`
	Address push.Address `json:"address"`
}

// SendScheduled is invoked once per pending record by the delay queue at
// the scheduled time. Its status codes drive the queue's retry policy,
// deliberately inverting normal HTTP semantics for terminal failures:
// a 200 carrying {"error": "expired"} tells the queue "handled, do not
// retry", because retrying a dead address can never succeed. Only
// unknown failures return 5xx so the queue retries them.
func (api *WorkerAPI) SendScheduled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if api.Receiver.Enabled() {
		if err := api.Receiver.Verify(r.Header.Get(qstash.SignatureHeader), body); err != nil {
			api.logger.Warn("callback signature rejected", "err", err)
			response.WriteJSONError(w, http.StatusUnauthorized, "signature verification failed")
			return
		}
	} else {
		api.logger.Warn("delay-queue signing keys not set, skipping signature verification (not recommended for production)")
	}

	var cb ScheduledCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if cb.Message == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing message")
		return
	}
	if err := cb.Address.Validate(); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := api.dispatch(ctx, cb.Message, cb.Address)
	switch {
	case err == nil:
		api.logger.Info("Scheduled notification sent", "id", cb.ID, "message_id", out.MessageID)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"id":      cb.ID,
			"sentAt":  api.now().UnixMilli(),
		})
	case push.IsExpired(err):
		api.logger.Info("Recipient address expired for scheduled notification", "id", cb.ID)
		writeJSON(w, http.StatusOK, map[string]any{
			"error": string(push.ClassificationExpired),
			"id":    cb.ID,
		})
	default:
		api.logger.Error("Scheduled notification failed", "id", cb.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "failed to send notification",
			"id":    cb.ID,
		})
	}
}

// --- Poll worker ---

type ProcessResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ProcessNotifications scans the local durable queue for due entries and
// dispatches each at most once. Every attempted entry is removed whether
// it succeeded or failed: this strategy has no retry engine of its own,
// so an unknown failure is reported in the results and dropped.
func (api *WorkerAPI) ProcessNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if api.CronSecret != "" {
		if r.Header.Get("Authorization") != "Bearer "+api.CronSecret {
			response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}

	due, err := api.Store.GetDue(ctx, api.now())
	if err != nil {
		api.logger.Error("failed to read pending queue", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "failed to read pending queue")
		return
	}

	results := make([]ProcessResult, 0, len(due))
	for _, pending := range due {
		_, sendErr := api.dispatch(ctx, pending.Message, pending.Address)

		if removeErr := api.Store.Remove(ctx, pending.ID); removeErr != nil {
			api.logger.Error("failed to remove processed entry", "id", pending.ID, "err", removeErr)
		}

		if sendErr != nil {
			api.logger.Error("failed to send pending notification", "id", pending.ID, "err", sendErr)
			results = append(results, ProcessResult{
				ID:     pending.ID,
				Status: "failed",
				Error:  string(push.Classify(sendErr)),
			})
			continue
		}
		results = append(results, ProcessResult{ID: pending.ID, Status: "sent"})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"processed": len(due),
		"results":   results,
	})
}

func (api *WorkerAPI) dispatch(ctx context.Context, message string, addr push.Address) (push.Outcome, error) {
	transport, ok := api.Transports[addr.Type]
	if !ok {
		return push.Outcome{}, fmt.Errorf("no transport for address type %q", addr.Type)
	}
	return transport.Send(ctx, addr, push.Build(api.Title, message))
}
