package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements DocumentStore on Cloud Firestore
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStore wraps an initialized Firestore client
func NewFirestoreStore(client *firestore.Client, logger *zap.Logger) *FirestoreStore {
	return &FirestoreStore{client: client, logger: logger}
}

// Create adds a document with a Firestore-generated id
func (s *FirestoreStore) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("firestore add %s: %w", collection, err)
	}
	return ref.ID, nil
}

// Set creates or replaces a document
func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
		return fmt.Errorf("firestore set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get reads a document by id
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore get %s/%s: %w", collection, id, err)
	}
	return &Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

// Update merges fields into an existing document
func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("firestore update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Query runs a filtered collection query
func (s *FirestoreStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	snaps, err := s.buildQuery(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore query %s: %w", q.Collection, err)
	}
	return toDocuments(snaps), nil
}

// Subscribe streams query snapshots from Firestore's realtime listener
func (s *FirestoreStore) Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	it := s.buildQuery(q).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				if errors.Is(err, iterator.Done) {
					return
				}
				s.logger.Warn("firestore listener failed",
					zap.String("collection", q.Collection),
					zap.Error(err),
				)
				fn(Snapshot{Err: fmt.Errorf("firestore listen %s: %w", q.Collection, err)})
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				fn(Snapshot{Err: fmt.Errorf("firestore snapshot %s: %w", q.Collection, err)})
				return
			}
			fn(Snapshot{Docs: toDocuments(docs)})
		}
	}()

	return Unsubscribe(cancel), nil
}

// Close closes the underlying client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) buildQuery(q Query) firestore.Query {
	query := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		query = query.Where(f.Field, string(f.Op), f.Value)
	}
	return query
}

func toDocuments(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs
}
