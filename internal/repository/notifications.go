package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/store"
)

type notificationDoc struct {
	UserID    string            `json:"userId"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt string            `json:"createdAt"`
}

func toNotification(d store.Document) (*domain.Notification, error) {
	var doc notificationDoc
	if err := store.Decode(d.Data, &doc); err != nil {
		return nil, fmt.Errorf("notification %s: %w", d.ID, err)
	}
	data := doc.Data
	if data == nil {
		data = map[string]string{}
	}
	return &domain.Notification{
		ID:        d.ID,
		UserID:    doc.UserID,
		Type:      doc.Type,
		Title:     doc.Title,
		Body:      doc.Body,
		Data:      data,
		Read:      doc.Read,
		CreatedAt: parseTime(doc.CreatedAt),
	}, nil
}

func (r *DocumentRepository) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	out := *n
	if out.CreatedAt.IsZero() {
		out.CreatedAt = r.now()
	}
	data, err := store.Encode(notificationDoc{
		UserID:    out.UserID,
		Type:      out.Type,
		Title:     out.Title,
		Body:      out.Body,
		Data:      out.Data,
		Read:      out.Read,
		CreatedAt: formatTime(out.CreatedAt),
	})
	if err != nil {
		return nil, err
	}
	out.ID, err = r.store.Create(ctx, notificationsCollection, data)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *DocumentRepository) ListNotifications(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	docs, err := r.store.Query(ctx, store.Collection(notificationsCollection, store.Where("userId", userID)))
	if err != nil {
		return nil, err
	}
	ns, err := decodeAll(docs, toNotification)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ns, func(i, j int) bool {
		return ns[i].CreatedAt.After(ns[j].CreatedAt)
	})
	if limit > 0 && len(ns) > limit {
		ns = ns[:limit]
	}
	return ns, nil
}

func (r *DocumentRepository) GetNotification(ctx context.Context, notificationID string) (*domain.Notification, error) {
	d, err := r.store.Get(ctx, notificationsCollection, notificationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	return toNotification(*d)
}

func (r *DocumentRepository) MarkNotificationRead(ctx context.Context, notificationID string) error {
	err := r.store.Update(ctx, notificationsCollection, notificationID, map[string]interface{}{"read": true})
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrNotificationNotFound
	}
	return err
}
