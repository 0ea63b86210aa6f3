package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const notifyChannel = "document_changes"

// Schema creates the documents table and the change notification trigger
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL,
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS documents_collection_seq_idx ON documents (collection, seq);

CREATE OR REPLACE FUNCTION notify_document_change() RETURNS trigger AS $$
BEGIN
	IF TG_OP = 'DELETE' THEN
		PERFORM pg_notify('document_changes', OLD.collection);
		RETURN OLD;
	END IF;
	PERFORM pg_notify('document_changes', NEW.collection);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS documents_notify ON documents;
CREATE TRIGGER documents_notify
	AFTER INSERT OR UPDATE OR DELETE ON documents
	FOR EACH ROW EXECUTE FUNCTION notify_document_change();
`

// PostgresStore implements DocumentStore on a JSONB table. Subscriptions are
// driven by LISTEN/NOTIFY on a dedicated connection.
type PostgresStore struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	watchers *watchers
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPostgresStore applies the schema and starts the change listener
func NewPostgresStore(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) (*PostgresStore, error) {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return nil, fmt.Errorf("failed to apply document schema: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s := &PostgresStore{
		db:       db,
		logger:   logger,
		watchers: newWatchers(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.listen(listenCtx)
	return s, nil
}

// Create inserts a document under a new UUID
func (s *PostgresStore) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.New().String()
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", collection, err)
	}
	query := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::text::jsonb)`
	if _, err := s.db.Exec(ctx, query, collection, id, string(raw)); err != nil {
		return "", fmt.Errorf("insert %s document: %w", collection, err)
	}
	return id, nil
}

// Set creates or replaces a document
func (s *PostgresStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", collection, err)
	}
	query := `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::text::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, collection, id, string(raw)); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get reads a document by id
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	query := `SELECT id, data::text FROM documents WHERE collection = $1 AND id = $2`
	doc, err := scanDocument(s.db.QueryRow(ctx, query, collection, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Update merges fields into an existing document
func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s update: %w", collection, err)
	}
	query := `
		UPDATE documents SET data = data || $3::text::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`
	tag, err := s.db.Exec(ctx, query, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`
	if _, err := s.db.Exec(ctx, query, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Query selects matching documents in insertion order
func (s *PostgresStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	sql, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s document: %w", q.Collection, err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	return docs, nil
}

// Subscribe re-runs q after every NOTIFY for its collection
func (s *PostgresStore) Subscribe(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}
	return s.watchers.add(ctx, q, fn, s.Query), nil
}

// Close stops the listener and cancels all subscriptions. The pool is owned by the caller.
func (s *PostgresStore) Close() error {
	s.cancel()
	<-s.done
	s.watchers.closeAll()
	return nil
}

// listen holds a LISTEN connection and reconnects with a fixed backoff.
// After a reconnect every subscription is re-run since notifications may have been missed.
func (s *PostgresStore) listen(ctx context.Context) {
	defer close(s.done)
	reconnected := false
	for {
		err := s.listenOnce(ctx, reconnected)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("document change listener disconnected", zap.Error(err))
		reconnected = true
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (s *PostgresStore) listenOnce(ctx context.Context, resync bool) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if resync {
		s.watchers.notifyAll()
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		s.watchers.notify(notification.Payload)
	}
}

func buildSelect(q Query) (string, []interface{}, error) {
	var sb strings.Builder
	args := []interface{}{q.Collection}
	sb.WriteString(`SELECT id, data::text FROM documents WHERE collection = $1`)

	for _, f := range q.Filters {
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter %q: %w", f.Field, err)
		}
		args = append(args, f.Field, string(raw))
		field := len(args) - 1
		value := len(args)

		switch f.Op {
		case OpEqual:
			fmt.Fprintf(&sb, ` AND data -> $%d::text = $%d::text::jsonb`, field, value)
		case OpIn:
			fmt.Fprintf(&sb, ` AND data -> $%d::text IN (SELECT jsonb_array_elements($%d::text::jsonb))`, field, value)
		}
	}
	sb.WriteString(` ORDER BY seq`)
	return sb.String(), args, nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var id, raw string
	if err := row.Scan(&id, &raw); err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return &Document{ID: id, Data: data}, nil
}
