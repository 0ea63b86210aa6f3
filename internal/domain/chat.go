package domain

import (
	"context"
	"sort"
	"time"
)

// Message is a single chat message between two connected users
type Message struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"threadId"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sentAt"`
	Read       bool      `json:"read"`
}

// ChatSummary is one entry of the chat list
type ChatSummary struct {
	ThreadID     string         `json:"threadId"`
	ConnectionID string         `json:"connectionId"`
	User         *PublicProfile `json:"user"`
	LastMessage  *Message       `json:"lastMessage,omitempty"`
	UnreadCount  int            `json:"unreadCount"`
}

// ThreadID names the conversation between a and b independent of who started it
func ThreadID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + "_" + ids[1]
}

type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *Message) (*Message, error)
	// ListThread returns a thread's messages ordered by SentAt ascending
	ListThread(ctx context.Context, threadID string) ([]*Message, error)
	MarkRead(ctx context.Context, messageIDs []string) error
}
