// Package firestore implements the pending-notification queue on Google
// Cloud Firestore, for deployments without a writable local disk.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
	"github.com/tinywideclouds/go-push-scheduler/pkg/queue"
)

const pendingCollection = "pending_notifications"

// Store implements queue.PendingStore using Firestore. Each pending
// record is one document keyed by the notification id, so Remove stays a
// single delete regardless of queue length.
type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

// pendingDoc is the internal DB representation of a pending record.
type pendingDoc struct {
	Message      string       `firestore:"message"`
	Address      push.Address `firestore:"address"`
	ScheduledFor int64        `firestore:"scheduled_for"`
	CreatedAt    int64        `firestore:"created_at"`
}

func (s *Store) Add(ctx context.Context, p queue.Pending) error {
	doc := pendingDoc{
		Message:      p.Message,
		Address:      p.Address,
		ScheduledFor: p.ScheduledFor,
		CreatedAt:    p.CreatedAt,
	}
	_, err := s.col().Doc(p.ID).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("firestore add pending: %w", err)
	}
	return nil
}

func (s *Store) GetDue(ctx context.Context, now time.Time) ([]queue.Pending, error) {
	iter := s.col().Where("scheduled_for", "<=", now.UnixMilli()).Documents(ctx)
	return collect(iter)
}

func (s *Store) GetAll(ctx context.Context) ([]queue.Pending, error) {
	iter := s.col().OrderBy("created_at", firestore.Asc).Documents(ctx)
	return collect(iter)
}

func (s *Store) Remove(ctx context.Context, id string) error {
	// Delete is a no-op for absent documents, which matches the
	// idempotent Remove contract.
	_, err := s.col().Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("firestore remove pending: %w", err)
	}
	return nil
}

func (s *Store) col() *firestore.CollectionRef {
	return s.client.Collection(pendingCollection)
}

func collect(iter *firestore.DocumentIterator) ([]queue.Pending, error) {
	defer iter.Stop()

	pending := make([]queue.Pending, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record pendingDoc
		if err := doc.DataTo(&record); err != nil {
			// Skip corrupt rows rather than wedging the whole queue.
			continue
		}
		pending = append(pending, queue.Pending{
			ID:           doc.Ref.ID,
			Message:      record.Message,
			Address:      record.Address,
			ScheduledFor: record.ScheduledFor,
			CreatedAt:    record.CreatedAt,
		})
	}
	return pending, nil
}
