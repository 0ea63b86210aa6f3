// Package store defines the document store capability the application runs on
// and its backends (Firestore, PostgreSQL and in-memory).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrClosed   = errors.New("store is closed")
)

// Op is a query filter operator
type Op string

const (
	OpEqual Op = "=="
	OpIn    Op = "in"
)

// Filter restricts a query to documents whose field matches Value
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Where builds an equality filter
func Where(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// WhereIn builds a membership filter; value must be a slice
func WhereIn(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpIn, Value: value}
}

// Query selects documents of one collection. All filters must match.
type Query struct {
	Collection string
	Filters    []Filter
}

// Collection starts a query over a whole collection
func Collection(name string, filters ...Filter) Query {
	return Query{Collection: name, Filters: filters}
}

// Document is a stored document with its id
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Snapshot is the result set of a subscribed query at one point in time.
// Err is set when the subscription failed; no further snapshots follow it.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Unsubscribe cancels a subscription. It is safe to call more than once.
type Unsubscribe func()

// DocumentStore is the capability interface over the external document database
type DocumentStore interface {
	// Create stores a new document under a generated id and returns the id
	Create(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Set creates or replaces the document with the given id
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	// Get reads a single document; ErrNotFound if it does not exist
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Update merges fields into an existing document; ErrNotFound if it does not exist
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Query returns the documents matching q in collection order
	Query(ctx context.Context, q Query) ([]Document, error)
	// Subscribe delivers the live result set of q to fn, starting with the current one,
	// until the returned Unsubscribe is called or ctx is done.
	Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error)
	Close() error
}

// Encode converts a tagged struct into document data
func Encode(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode fills a tagged struct from document data
func Decode(data map[string]interface{}, v interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// normalize maps a Go value onto the JSON value space used by stored documents
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func validateQuery(q Query) error {
	if q.Collection == "" {
		return errors.New("query: collection is required")
	}
	for _, f := range q.Filters {
		if f.Field == "" {
			return errors.New("query: filter field is required")
		}
		switch f.Op {
		case OpEqual, OpIn:
		default:
			return fmt.Errorf("query: unsupported operator %q", f.Op)
		}
	}
	return nil
}
