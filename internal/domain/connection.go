package domain

import (
	"context"
	"time"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusDeclined RequestStatus = "declined"
)

// ConnectionRequest is a one-directional proposal. It is deleted once
// accepted or declined rather than kept in those states.
type ConnectionRequest struct {
	ID         string        `json:"id"`
	FromUserID string        `json:"fromUserId"`
	ToUserID   string        `json:"toUserId"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Connection links two users permanently. The pair is unordered.
type Connection struct {
	ID                 string    `json:"id"`
	User1ID            string    `json:"user1Id"`
	User2ID            string    `json:"user2Id"`
	CreatedAt          time.Time `json:"createdAt"`
	LastMessagePreview string    `json:"lastMessagePreview,omitempty"`
}

// Involves reports whether userID is one side of the connection
func (c *Connection) Involves(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Links reports whether the connection joins a and b, in either order
func (c *Connection) Links(a, b string) bool {
	return (c.User1ID == a && c.User2ID == b) || (c.User1ID == b && c.User2ID == a)
}

// OtherUser returns the side of the connection that is not userID
func (c *Connection) OtherUser(userID string) string {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// PassRecord suppresses PassedUserID from UserID's matches. Append-only.
type PassRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	PassedUserID string    `json:"passedUserId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ConnectionRepository covers the connectionRequests, connections and passedUsers collections
type ConnectionRepository interface {
	// FindPendingRequest returns the first pending request from -> to, or nil if there is none
	FindPendingRequest(ctx context.Context, fromUserID, toUserID string) (*ConnectionRequest, error)
	CreateRequest(ctx context.Context, fromUserID, toUserID string) (*ConnectionRequest, error)
	// GetRequest returns ErrRequestNotFound when the id is unknown
	GetRequest(ctx context.Context, requestID string) (*ConnectionRequest, error)
	DeleteRequest(ctx context.Context, requestID string) error
	ListIncomingRequests(ctx context.Context, userID string) ([]*ConnectionRequest, error)

	CreateConnection(ctx context.Context, user1ID, user2ID string) (*Connection, error)
	ListConnections(ctx context.Context, userID string) ([]*Connection, error)
	// FindConnection returns a connection joining a and b in either order, or nil
	FindConnection(ctx context.Context, a, b string) (*Connection, error)
	UpdateConnectionPreview(ctx context.Context, connectionID, preview string) error

	CreatePass(ctx context.Context, userID, passedUserID string) (*PassRecord, error)
	ListPassedUserIDs(ctx context.Context, userID string) ([]string, error)
}

// ConnectionFeed delivers live views scoped to one user. Each Watch call
// invokes fn with the full current view on every change until the returned
// cancel function is called or ctx is done. A non-nil error ends the feed.
type ConnectionFeed interface {
	WatchConnections(ctx context.Context, userID string, fn func([]*Connection, error)) (func(), error)
	WatchIncomingRequests(ctx context.Context, userID string, fn func([]*ConnectionRequest, error)) (func(), error)
	WatchPassedUserIDs(ctx context.Context, userID string, fn func([]string, error)) (func(), error)
}
