package domain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultNotificationLimit = 20

// NotificationService stores in-app notifications and pushes them to the
// recipient's devices when push is enabled in their settings
type NotificationService struct {
	repo     NotificationRepository
	profiles ProfileRepository
	pusher   Pusher
	logger   *zap.Logger
}

// NewNotificationService creates the service. pusher may be nil, which
// disables push delivery.
func NewNotificationService(repo NotificationRepository, profiles ProfileRepository, pusher Pusher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:     repo,
		profiles: profiles,
		pusher:   pusher,
		logger:   logger,
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultNotificationLimit
	}
	return s.repo.ListNotifications(ctx, userID, limit)
}

// MarkRead marks one of userID's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	n, err := s.repo.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotificationNotFound
	}
	return s.repo.MarkNotificationRead(ctx, notificationID)
}

func (s *NotificationService) ConnectionRequested(ctx context.Context, fromUserID, toUserID string) error {
	name := s.displayName(ctx, fromUserID)
	return s.Send(ctx, toUserID, NotificationConnectionRequest,
		"New connection request",
		name+" wants to swap skills with you",
		map[string]string{"fromUserId": fromUserID})
}

func (s *NotificationService) ConnectionAccepted(ctx context.Context, byUserID, toUserID string) error {
	name := s.displayName(ctx, byUserID)
	return s.Send(ctx, toUserID, NotificationConnectionAccepted,
		"You have a new connection",
		"You and "+name+" are now connected",
		map[string]string{"userId": byUserID})
}

func (s *NotificationService) MessageSent(ctx context.Context, msg *Message) error {
	return s.Send(ctx, msg.ToUserID, NotificationMessage,
		s.displayName(ctx, msg.FromUserID),
		preview(msg.Text),
		map[string]string{"threadId": msg.ThreadID, "fromUserId": msg.FromUserID})
}

// Send stores a notification for userID and pushes it to every registered device
func (s *NotificationService) Send(ctx context.Context, userID, typ, title, body string, data map[string]string) error {
	_, err := s.repo.CreateNotification(ctx, &Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if s.pusher == nil {
		return nil
	}
	recipient, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load push recipient", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if !recipient.Settings.NotificationsPush {
		return nil
	}

	payload := make(map[string]string, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["type"] = typ

	pushCtx := context.WithoutCancel(ctx)
	for _, token := range recipient.FCMTokens {
		if token == "" {
			continue
		}
		go func(t string) {
			_ = s.pusher.Send(pushCtx, t, title, body, payload)
		}(token)
	}
	return nil
}

func (s *NotificationService) displayName(ctx context.Context, userID string) string {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil || p.Name == "" {
		return "Someone"
	}
	return p.Name
}
