// Package file implements the pending-notification queue as a single
// JSON file read, modified and written whole on every access.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tinywideclouds/go-push-scheduler/pkg/queue"
)

// Store keeps the queue in one JSON array on disk. The mutex serializes
// access within this process only; overlapping poll invocations from
// separate processes can still both read the same due entry before
// either writes back the removal. That double-send window is an accepted
// limitation of the local-polling strategy; deployments that need
// overlap safety should use the delay-queue strategy instead.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store backed by the file at path. The file and its
// parent directory are created on first write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Add(_ context.Context, p queue.Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.read()
	if err != nil {
		return err
	}
	pending = append(pending, p)
	return s.write(pending)
}

func (s *Store) GetDue(_ context.Context, now time.Time) ([]queue.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.read()
	if err != nil {
		return nil, err
	}
	due := make([]queue.Pending, 0, len(pending))
	for _, p := range pending {
		if p.Due(now) {
			due = append(due, p)
		}
	}
	return due, nil
}

func (s *Store) GetAll(_ context.Context) ([]queue.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.read()
	if err != nil {
		return err
	}
	kept := pending[:0]
	for _, p := range pending {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	return s.write(kept)
}

func (s *Store) read() ([]queue.Pending, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []queue.Pending{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	var pending []queue.Pending
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("decode queue file: %w", err)
	}
	return pending, nil
}

func (s *Store) write(pending []queue.Pending) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}
	data, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write queue file: %w", err)
	}
	return nil
}
