package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/praxis/backend/pkg/validator"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const previewLength = 80

// MessageNotifier is told about every stored message
type MessageNotifier interface {
	MessageSent(ctx context.Context, msg *Message) error
}

type ChatService struct {
	repo        ChatRepository
	connections ConnectionRepository
	profiles    ProfileRepository
	notifiers   []MessageNotifier
	logger      *zap.Logger
}

func NewChatService(repo ChatRepository, connections ConnectionRepository, profiles ProfileRepository, logger *zap.Logger, notifiers ...MessageNotifier) *ChatService {
	return &ChatService{
		repo:        repo,
		connections: connections,
		profiles:    profiles,
		notifiers:   notifiers,
		logger:      logger,
	}
}

// SendMessage stores a message from fromUserID to toUserID. The two users must be connected.
func (s *ChatService) SendMessage(ctx context.Context, fromUserID, toUserID, text string) (*Message, error) {
	if fromUserID == toUserID {
		return nil, ErrSelfAction
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > validator.MaxMessageLength {
		return nil, validator.ValidationErrors{{Field: "text", Message: "message is too long"}}
	}

	conn, err := s.connections.FindConnection(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("find connection: %w", err)
	}
	if conn == nil {
		return nil, ErrNotConnected
	}

	msg, err := s.repo.CreateMessage(ctx, &Message{
		ThreadID:   ThreadID(fromUserID, toUserID),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Text:       text,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if err := s.connections.UpdateConnectionPreview(ctx, conn.ID, preview(text)); err != nil {
		s.logger.Warn("failed to update connection preview", zap.String("connection_id", conn.ID), zap.Error(err))
	}

	// Notifications outlive the request that triggered them
	notifyCtx := context.WithoutCancel(ctx)
	for _, n := range s.notifiers {
		go func(n MessageNotifier) {
			if err := n.MessageSent(notifyCtx, msg); err != nil {
				s.logger.Warn("failed to notify new message", zap.String("message_id", msg.ID), zap.Error(err))
			}
		}(n)
	}
	return msg, nil
}

// GetThread returns the conversation with otherUserID and marks the
// messages addressed to userID as read
func (s *ChatService) GetThread(ctx context.Context, userID, otherUserID string) ([]*Message, error) {
	if userID == otherUserID {
		return nil, ErrSelfAction
	}
	conn, err := s.connections.FindConnection(ctx, userID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("find connection: %w", err)
	}
	if conn == nil {
		return nil, ErrNotConnected
	}

	msgs, err := s.repo.ListThread(ctx, ThreadID(userID, otherUserID))
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}

	var unread []string
	for _, m := range msgs {
		if m.ToUserID == userID && !m.Read {
			unread = append(unread, m.ID)
		}
	}
	if len(unread) > 0 {
		if err := s.repo.MarkRead(ctx, unread); err != nil {
			s.logger.Warn("failed to mark messages read", zap.String("user_id", userID), zap.Error(err))
		} else {
			for _, m := range msgs {
				if m.ToUserID == userID {
					m.Read = true
				}
			}
		}
	}
	return msgs, nil
}

// GetSummaries lists one entry per connection, most recent conversation
// first, with threads that have no messages at the end
func (s *ChatService) GetSummaries(ctx context.Context, userID string) ([]*ChatSummary, error) {
	conns, err := s.connections.ListConnections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	summaries := make([]*ChatSummary, len(conns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, c := range conns {
		i, c := i, c
		g.Go(func() error {
			summary, err := s.summarize(gctx, userID, c)
			if err != nil {
				return err
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessage, summaries[j].LastMessage
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.SentAt.After(b.SentAt)
		}
	})
	return summaries, nil
}

func (s *ChatService) summarize(ctx context.Context, userID string, c *Connection) (*ChatSummary, error) {
	otherID := c.OtherUser(userID)
	summary := &ChatSummary{
		ThreadID:     ThreadID(userID, otherID),
		ConnectionID: c.ID,
	}

	other, err := s.profiles.GetProfile(ctx, otherID)
	switch {
	case err == nil:
		summary.User = other.ToPublic()
	case errors.Is(err, ErrProfileNotFound):
		summary.User = &PublicProfile{ID: otherID, Skills: []string{}, WantsToLearn: []string{}}
	default:
		return nil, fmt.Errorf("load profile %s: %w", otherID, err)
	}

	msgs, err := s.repo.ListThread(ctx, summary.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("list thread %s: %w", summary.ThreadID, err)
	}
	for _, m := range msgs {
		if m.ToUserID == userID && !m.Read {
			summary.UnreadCount++
		}
	}
	if len(msgs) > 0 {
		summary.LastMessage = msgs[len(msgs)-1]
	}
	return summary, nil
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength]) + "…"
}
