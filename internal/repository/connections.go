package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/store"
)

type requestDoc struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
}

type connectionDoc struct {
	User1ID            string `json:"user1Id"`
	User2ID            string `json:"user2Id"`
	CreatedAt          string `json:"createdAt"`
	LastMessagePreview string `json:"lastMessagePreview,omitempty"`
	LastMessageAt      string `json:"lastMessageAt,omitempty"`
}

type passDoc struct {
	UserID       string `json:"userId"`
	PassedUserID string `json:"passedUserId"`
	CreatedAt    string `json:"createdAt"`
}

func toRequest(d store.Document) (*domain.ConnectionRequest, error) {
	var doc requestDoc
	if err := store.Decode(d.Data, &doc); err != nil {
		return nil, fmt.Errorf("connection request %s: %w", d.ID, err)
	}
	return &domain.ConnectionRequest{
		ID:         d.ID,
		FromUserID: doc.FromUserID,
		ToUserID:   doc.ToUserID,
		Status:     domain.RequestStatus(doc.Status),
		CreatedAt:  parseTime(doc.CreatedAt),
	}, nil
}

func toConnection(d store.Document) (*domain.Connection, error) {
	var doc connectionDoc
	if err := store.Decode(d.Data, &doc); err != nil {
		return nil, fmt.Errorf("connection %s: %w", d.ID, err)
	}
	return &domain.Connection{
		ID:                 d.ID,
		User1ID:            doc.User1ID,
		User2ID:            doc.User2ID,
		CreatedAt:          parseTime(doc.CreatedAt),
		LastMessagePreview: doc.LastMessagePreview,
	}, nil
}

func toPass(d store.Document) (*domain.PassRecord, error) {
	var doc passDoc
	if err := store.Decode(d.Data, &doc); err != nil {
		return nil, fmt.Errorf("pass %s: %w", d.ID, err)
	}
	return &domain.PassRecord{
		ID:           d.ID,
		UserID:       doc.UserID,
		PassedUserID: doc.PassedUserID,
		CreatedAt:    parseTime(doc.CreatedAt),
	}, nil
}

func pendingRequestsTo(userID string) store.Query {
	return store.Collection(connectionRequestsCollection,
		store.Where("toUserId", userID),
		store.Where("status", string(domain.RequestStatusPending)),
	)
}

func passesBy(userID string) store.Query {
	return store.Collection(passedUsersCollection, store.Where("userId", userID))
}

// connectionSides are the two queries whose union is every connection involving userID
func connectionSides(userID string) [2]store.Query {
	return [2]store.Query{
		store.Collection(connectionsCollection, store.Where("user1Id", userID)),
		store.Collection(connectionsCollection, store.Where("user2Id", userID)),
	}
}

func (r *DocumentRepository) FindPendingRequest(ctx context.Context, fromUserID, toUserID string) (*domain.ConnectionRequest, error) {
	docs, err := r.store.Query(ctx, store.Collection(connectionRequestsCollection,
		store.Where("fromUserId", fromUserID),
		store.Where("toUserId", toUserID),
		store.Where("status", string(domain.RequestStatusPending)),
	))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return toRequest(docs[0])
}

func (r *DocumentRepository) CreateRequest(ctx context.Context, fromUserID, toUserID string) (*domain.ConnectionRequest, error) {
	req := &domain.ConnectionRequest{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     domain.RequestStatusPending,
		CreatedAt:  r.now(),
	}
	data, err := store.Encode(requestDoc{
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Status:     string(req.Status),
		CreatedAt:  formatTime(req.CreatedAt),
	})
	if err != nil {
		return nil, err
	}
	req.ID, err = r.store.Create(ctx, connectionRequestsCollection, data)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *DocumentRepository) GetRequest(ctx context.Context, requestID string) (*domain.ConnectionRequest, error) {
	d, err := r.store.Get(ctx, connectionRequestsCollection, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return toRequest(*d)
}

func (r *DocumentRepository) DeleteRequest(ctx context.Context, requestID string) error {
	return r.store.Delete(ctx, connectionRequestsCollection, requestID)
}

func (r *DocumentRepository) ListIncomingRequests(ctx context.Context, userID string) ([]*domain.ConnectionRequest, error) {
	docs, err := r.store.Query(ctx, pendingRequestsTo(userID))
	if err != nil {
		return nil, err
	}
	return decodeAll(docs, toRequest)
}

func (r *DocumentRepository) CreateConnection(ctx context.Context, user1ID, user2ID string) (*domain.Connection, error) {
	conn := &domain.Connection{
		User1ID:   user1ID,
		User2ID:   user2ID,
		CreatedAt: r.now(),
	}
	data, err := store.Encode(connectionDoc{
		User1ID:   conn.User1ID,
		User2ID:   conn.User2ID,
		CreatedAt: formatTime(conn.CreatedAt),
	})
	if err != nil {
		return nil, err
	}
	conn.ID, err = r.store.Create(ctx, connectionsCollection, data)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (r *DocumentRepository) ListConnections(ctx context.Context, userID string) ([]*domain.Connection, error) {
	var sides [2][]store.Document
	for i, q := range connectionSides(userID) {
		docs, err := r.store.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		sides[i] = docs
	}
	return decodeAll(mergeByID(sides[0], sides[1]), toConnection)
}

func (r *DocumentRepository) FindConnection(ctx context.Context, a, b string) (*domain.Connection, error) {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		docs, err := r.store.Query(ctx, store.Collection(connectionsCollection,
			store.Where("user1Id", pair[0]),
			store.Where("user2Id", pair[1]),
		))
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			return toConnection(docs[0])
		}
	}
	return nil, nil
}

func (r *DocumentRepository) UpdateConnectionPreview(ctx context.Context, connectionID, preview string) error {
	return r.store.Update(ctx, connectionsCollection, connectionID, map[string]interface{}{
		"lastMessagePreview": preview,
		"lastMessageAt":      formatTime(r.now()),
	})
}

// CreatePass appends a pass record; repeated passes are not collapsed
func (r *DocumentRepository) CreatePass(ctx context.Context, userID, passedUserID string) (*domain.PassRecord, error) {
	rec := &domain.PassRecord{
		UserID:       userID,
		PassedUserID: passedUserID,
		CreatedAt:    r.now(),
	}
	data, err := store.Encode(passDoc{
		UserID:       rec.UserID,
		PassedUserID: rec.PassedUserID,
		CreatedAt:    formatTime(rec.CreatedAt),
	})
	if err != nil {
		return nil, err
	}
	rec.ID, err = r.store.Create(ctx, passedUsersCollection, data)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *DocumentRepository) ListPassedUserIDs(ctx context.Context, userID string) ([]string, error) {
	docs, err := r.store.Query(ctx, passesBy(userID))
	if err != nil {
		return nil, err
	}
	return passedIDs(docs)
}

func passedIDs(docs []store.Document) ([]string, error) {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		rec, err := toPass(d)
		if err != nil {
			return nil, err
		}
		ids = append(ids, rec.PassedUserID)
	}
	return ids, nil
}

// mergeByID concatenates document sets, keeping the first copy of each id
func mergeByID(sets ...[]store.Document) []store.Document {
	var out []store.Document
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, d := range set {
			if _, dup := seen[d.ID]; dup {
				continue
			}
			seen[d.ID] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}
