// Package scheduler decides how a notification reaches its recipient:
// immediately through a transport, or deferred through one of two
// durable delay strategies.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tinywideclouds/go-push-scheduler/internal/qstash"
	"github.com/tinywideclouds/go-push-scheduler/internal/registry"
	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
	"github.com/tinywideclouds/go-push-scheduler/pkg/queue"
)

// Enqueuer hands a pending notification to a delay mechanism. The
// strategy is chosen at deployment time, not per call.
type Enqueuer interface {
	Enqueue(ctx context.Context, p queue.Pending, delay time.Duration) error
}

// Deferred describes a notification handed to a delay strategy.
type Deferred struct {
	ID           string `json:"id"`
	ScheduledFor int64  `json:"scheduledFor"` // epoch millis
}

// Result is the outcome of a Schedule call: exactly one of the two
// fields is set.
type Result struct {
	Immediate *push.Outcome
	Deferred  *Deferred
}

// Scheduler routes notifications by address variant and delay.
type Scheduler struct {
	registry   registry.Registry
	transports map[push.AddressType]push.Transport
	enqueuer   Enqueuer
	title      string
	now        func() time.Time
	logger     *slog.Logger
}

func New(
	reg registry.Registry,
	transports map[push.AddressType]push.Transport,
	enqueuer Enqueuer,
	title string,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		registry:   reg,
		transports: transports,
		enqueuer:   enqueuer,
		title:      title,
		now:        time.Now,
		logger:     logger.With("component", "Scheduler"),
	}
}

// WithNow overrides the clock. Test hook.
func (s *Scheduler) WithNow(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Send dispatches immediately through the transport matching the address
// variant, returning the transport's outcome unchanged.
func (s *Scheduler) Send(ctx context.Context, message string, addr *push.Address) (push.Outcome, error) {
	target, err := s.resolve(ctx, addr)
	if err != nil {
		return push.Outcome{}, err
	}
	return s.dispatch(ctx, message, target)
}

// Schedule delivers now when delaySeconds is zero or negative, otherwise
// persists a pending record and arranges future delivery through the
// configured strategy. The address is resolved before any queue or
// transport interaction so an empty registry fails fast.
func (s *Scheduler) Schedule(ctx context.Context, message string, delaySeconds int, addr *push.Address) (Result, error) {
	target, err := s.resolve(ctx, addr)
	if err != nil {
		return Result{}, err
	}

	if delaySeconds <= 0 {
		out, err := s.dispatch(ctx, message, target)
		if err != nil {
			return Result{}, err
		}
		return Result{Immediate: &out}, nil
	}

	now := s.now()
	delay := time.Duration(delaySeconds) * time.Second
	pending := queue.Pending{
		ID:           uuid.NewString(),
		Message:      message,
		Address:      target,
		ScheduledFor: now.Add(delay).UnixMilli(),
		CreatedAt:    now.UnixMilli(),
	}

	if err := s.enqueuer.Enqueue(ctx, pending, delay); err != nil {
		return Result{}, fmt.Errorf("defer notification: %w", err)
	}

	s.logger.Info("Notification deferred",
		"id", pending.ID,
		"delay_seconds", delaySeconds,
		"scheduled_for", time.UnixMilli(pending.ScheduledFor).Format(time.RFC3339),
	)
	return Result{Deferred: &Deferred{ID: pending.ID, ScheduledFor: pending.ScheduledFor}}, nil
}

// resolve picks the explicit address when given, otherwise the
// registry's stored one. No address anywhere is a fatal ErrNoAddress.
func (s *Scheduler) resolve(ctx context.Context, addr *push.Address) (push.Address, error) {
	if addr != nil {
		return *addr, nil
	}
	stored, err := s.registry.Get(ctx)
	if err != nil {
		return push.Address{}, fmt.Errorf("registry lookup: %w", err)
	}
	if stored == nil {
		return push.Address{}, push.ErrNoAddress
	}
	return *stored, nil
}

func (s *Scheduler) dispatch(ctx context.Context, message string, addr push.Address) (push.Outcome, error) {
	transport, ok := s.transports[addr.Type]
	if !ok {
		return push.Outcome{}, fmt.Errorf("no transport for address type %q", addr.Type)
	}
	return transport.Send(ctx, addr, push.Build(s.title, message))
}

// QStashEnqueuer publishes pending records to the external delay queue,
// which calls the worker endpoint back at-or-after the scheduled time.
type QStashEnqueuer struct {
	client      *qstash.Client
	callbackURL string
}

func NewQStashEnqueuer(client *qstash.Client, callbackURL string) *QStashEnqueuer {
	return &QStashEnqueuer{client: client, callbackURL: callbackURL}
}

func (e *QStashEnqueuer) Enqueue(ctx context.Context, p queue.Pending, delay time.Duration) error {
	body := map[string]any{
		"id":      p.ID,
		"message": p.Message,
		"address": p.Address,
	}
	_, err := e.client.PublishJSON(ctx, e.callbackURL, body, delay)
	return err
}

// LocalEnqueuer appends pending records to the durable local queue; the
// poll worker picks them up on its next scan.
type LocalEnqueuer struct {
	store queue.PendingStore
}

func NewLocalEnqueuer(store queue.PendingStore) *LocalEnqueuer {
	return &LocalEnqueuer{store: store}
}

func (e *LocalEnqueuer) Enqueue(ctx context.Context, p queue.Pending, _ time.Duration) error {
	return e.store.Add(ctx, p)
}
