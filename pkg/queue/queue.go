// Package queue defines the durable pending-notification queue contract
// used by the deferred-delivery strategies.
package queue

import (
	"context"
	"time"

	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
)

// Pending is a durably persisted not-yet-delivered notification awaiting
// its scheduled time. It only exists under a delayed-scheduling strategy.
type Pending struct {
	ID           string       `json:"id"`
	Message      string       `json:"message"`
	Address      push.Address `json:"address"`
	ScheduledFor int64        `json:"scheduledFor"` // epoch millis
	CreatedAt    int64        `json:"createdAt"`    // epoch millis
}

// Due reports whether the entry's scheduled time has passed.
func (p Pending) Due(now time.Time) bool {
	return p.ScheduledFor <= now.UnixMilli()
}

// PendingStore persists pending notifications between the scheduling
// call and the poll worker that eventually dispatches them.
type PendingStore interface {
	// Add appends a pending record, creating the backing storage on
	// first write if needed.
	Add(ctx context.Context, p Pending) error

	// GetDue returns every record with ScheduledFor at or before now.
	GetDue(ctx context.Context, now time.Time) ([]Pending, error)

	// GetAll returns the whole queue in insertion order.
	GetAll(ctx context.Context) ([]Pending, error)

	// Remove deletes a record by id. Removing an absent id is not an
	// error; the poll worker removes unconditionally after an attempt.
	Remove(ctx context.Context, id string) error
}
