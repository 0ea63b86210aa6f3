package domain

import (
	"context"
	"time"
)

const (
	NotificationConnectionRequest  = "connection_request"
	NotificationConnectionAccepted = "connection_accepted"
	NotificationMessage            = "message"
)

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *Notification) (*Notification, error)
	// ListNotifications returns the newest notifications first
	ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error)
	GetNotification(ctx context.Context, notificationID string) (*Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
}

// Pusher delivers a push notification to one device
type Pusher interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}
