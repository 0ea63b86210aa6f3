// Package fcm delivers push notifications through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Sender is the part of the messaging client the push path uses
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Client sends notifications to single device tokens
type Client struct {
	sender Sender
	logger *zap.Logger
}

// NewClient obtains a messaging client from an initialized Firebase app
func NewClient(ctx context.Context, app *firebase.App, logger *zap.Logger) (*Client, error) {
	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return NewClientWithSender(msgClient, logger), nil
}

func NewClientWithSender(sender Sender, logger *zap.Logger) *Client {
	return &Client{sender: sender, logger: logger}
}

// Send pushes one notification. A blank token is skipped.
func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return nil
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: title,
				Body:  body,
			},
		},
	}

	if _, err := c.sender.Send(ctx, message); err != nil {
		if messaging.IsUnregistered(err) {
			c.logger.Info("FCM token is no longer registered", zap.String("token", token))
		} else {
			c.logger.Error("Failed to send FCM message", zap.String("token", token), zap.Error(err))
		}
		return err
	}
	return nil
}
