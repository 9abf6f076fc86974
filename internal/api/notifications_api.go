// Package api holds the HTTP handlers: the client-facing notification
// and subscription endpoints, and the worker endpoints the delay queue
// and cron scheduler call back into.
package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	"github.com/tinywideclouds/go-push-scheduler/internal/registry"
	"github.com/tinywideclouds/go-push-scheduler/internal/scheduler"
	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
	"github.com/tinywideclouds/go-push-scheduler/pkg/queue"
)

type NotificationAPI struct {
	Scheduler *scheduler.Scheduler
	Registry  registry.Registry
	Store     queue.PendingStore
	Logger    *slog.Logger
}

func NewNotificationAPI(
	sched *scheduler.Scheduler,
	reg registry.Registry,
	store queue.PendingStore,
	logger *slog.Logger,
) *NotificationAPI {
	return &NotificationAPI{
		Scheduler: sched,
		Registry:  reg,
		Store:     store,
		Logger:    logger,
	}
}

// --- Immediate send ---

type SendRequest struct {
	Message string        `json:"message"`
	Address *push.Address `json:"address,omitempty"`
}

func (api *NotificationAPI) SendNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Message == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing message")
		return
	}
	if req.Address != nil {
		if err := req.Address.Validate(); err != nil {
			response.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	out, err := api.Scheduler.Send(ctx, req.Message, req.Address)
	if err != nil {
		api.writeDispatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"messageId": out.MessageID,
	})
}

// --- Schedule ---

type ScheduleRequest struct {
	Message string `json:"message"`
	// DelaySeconds accepts fractional values and is floored to whole
	// seconds before scheduling.
	DelaySeconds float64       `json:"delaySeconds"`
	Address      *push.Address `json:"address,omitempty"`
}

func (api *NotificationAPI) ScheduleNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Message == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing message")
		return
	}
	if req.Address != nil {
		if err := req.Address.Validate(); err != nil {
			response.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := api.Scheduler.Schedule(ctx, req.Message, int(math.Floor(req.DelaySeconds)), req.Address)
	if err != nil {
		api.writeDispatchError(w, err)
		return
	}

	if result.Immediate != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"messageId": result.Immediate.MessageID,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"id":           result.Deferred.ID,
		"scheduledFor": result.Deferred.ScheduledFor,
	})
}

// --- Pending queue listing ---

func (api *NotificationAPI) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := api.Store.GetAll(r.Context())
	if err != nil {
		api.Logger.Error("failed to read pending queue", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "failed to read pending queue")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(pending),
		"pending": pending,
	})
}

// --- Subscription slot ---

func (api *NotificationAPI) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var addr push.Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		api.Logger.Error("Subscribe: JSON decode failed", "err", err)
		response.WriteJSONError(w, http.StatusBadRequest, "invalid address json")
		return
	}
	if err := addr.Validate(); err != nil {
		api.Logger.Warn("Subscribe: validation failed", "reason", err)
		response.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := api.Registry.Set(ctx, addr); err != nil {
		api.Logger.Error("failed to store subscription", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}
	api.Logger.Info("Subscription registered", "type", addr.Type)

	w.WriteHeader(http.StatusNoContent)
}

func (api *NotificationAPI) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := api.Registry.Clear(r.Context()); err != nil {
		api.Logger.Warn("failed to clear subscription", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeDispatchError maps the dispatch error taxonomy onto HTTP with a
// human-readable message for the inline UI.
func (api *NotificationAPI) writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, push.ErrNoAddress):
		response.WriteJSONError(w, http.StatusBadRequest, "no subscription available, please subscribe first")
	case push.IsExpired(err):
		response.WriteJSONError(w, http.StatusGone, "subscription expired, please subscribe again")
	case errors.Is(err, push.ErrNotConfigured):
		api.Logger.Error("dispatch failed: transport unconfigured", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "notification transport not configured")
	default:
		api.Logger.Error("dispatch failed", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "failed to send notification")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
