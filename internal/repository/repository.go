// Package repository maps the domain model onto document store collections.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/store"
)

const (
	usersCollection              = "users"
	connectionRequestsCollection = "connectionRequests"
	connectionsCollection        = "connections"
	passedUsersCollection        = "passedUsers"
	messagesCollection           = "messages"
	notificationsCollection      = "notifications"
)

// DocumentRepository implements the domain repositories and live feeds on top
// of a store.DocumentStore
type DocumentRepository struct {
	store store.DocumentStore
	now   func() time.Time
}

// NewDocumentRepository creates a repository over s
func NewDocumentRepository(s store.DocumentStore) *DocumentRepository {
	return &DocumentRepository{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks that the store answers a point read
func (r *DocumentRepository) Ping(ctx context.Context) error {
	_, err := r.store.Get(ctx, usersCollection, "healthcheck")
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime reads a stored ISO 8601 timestamp; unparseable values become the zero time
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func decodeAll[T any](docs []store.Document, convert func(store.Document) (T, error)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := convert(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

var (
	_ domain.ProfileRepository      = (*DocumentRepository)(nil)
	_ domain.ConnectionRepository   = (*DocumentRepository)(nil)
	_ domain.ConnectionFeed         = (*DocumentRepository)(nil)
	_ domain.ChatRepository         = (*DocumentRepository)(nil)
	_ domain.NotificationRepository = (*DocumentRepository)(nil)
)
