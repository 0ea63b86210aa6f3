package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/store"
)

type messageDoc struct {
	ThreadID   string `json:"threadId"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Text       string `json:"text"`
	SentAt     string `json:"sentAt"`
	Read       bool   `json:"read"`
}

func toMessage(d store.Document) (*domain.Message, error) {
	var doc messageDoc
	if err := store.Decode(d.Data, &doc); err != nil {
		return nil, fmt.Errorf("message %s: %w", d.ID, err)
	}
	return &domain.Message{
		ID:         d.ID,
		ThreadID:   doc.ThreadID,
		FromUserID: doc.FromUserID,
		ToUserID:   doc.ToUserID,
		Text:       doc.Text,
		SentAt:     parseTime(doc.SentAt),
		Read:       doc.Read,
	}, nil
}

func (r *DocumentRepository) CreateMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	out := *msg
	if out.SentAt.IsZero() {
		out.SentAt = r.now()
	}
	data, err := store.Encode(messageDoc{
		ThreadID:   out.ThreadID,
		FromUserID: out.FromUserID,
		ToUserID:   out.ToUserID,
		Text:       out.Text,
		SentAt:     formatTime(out.SentAt),
		Read:       out.Read,
	})
	if err != nil {
		return nil, err
	}
	out.ID, err = r.store.Create(ctx, messagesCollection, data)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *DocumentRepository) ListThread(ctx context.Context, threadID string) ([]*domain.Message, error) {
	docs, err := r.store.Query(ctx, store.Collection(messagesCollection, store.Where("threadId", threadID)))
	if err != nil {
		return nil, err
	}
	msgs, err := decodeAll(docs, toMessage)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
	return msgs, nil
}

// MarkRead flags messages as read one by one; a failure leaves earlier ones updated
func (r *DocumentRepository) MarkRead(ctx context.Context, messageIDs []string) error {
	for _, id := range messageIDs {
		if err := r.store.Update(ctx, messagesCollection, id, map[string]interface{}{"read": true}); err != nil {
			return fmt.Errorf("mark message %s read: %w", id, err)
		}
	}
	return nil
}
