// Package registry holds the single active recipient address. It is a
// deliberate single-slot stand-in for a future keyed directory: the
// Registry is passed explicitly rather than living in package state, so
// growing it into a per-recipient map later only changes the interface's
// callers, not its shape.
package registry

import (
	"context"
	"sync"

	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
)

// Registry stores at most one recipient address. Set replaces whatever
// variant was active before; switching transports is a full replacement.
type Registry interface {
	Set(ctx context.Context, addr push.Address) error
	Clear(ctx context.Context) error
	// Get returns nil without error when no address is registered.
	Get(ctx context.Context) (*push.Address, error)
}

// Memory is the baseline in-process slot. It holds nothing across
// restarts; the client re-subscribes on its next session.
type Memory struct {
	mu   sync.Mutex
	addr *push.Address
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Set(_ context.Context, addr push.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := addr
	m.addr = &a
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addr = nil
	return nil
}

func (m *Memory) Get(_ context.Context) (*push.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addr == nil {
		return nil, nil
	}
	a := *m.addr
	return &a, nil
}
