package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestMemoryStore_CRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, "users", map[string]interface{}{"name": "Avery", "skills": []string{"Go"}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.Equal(t, "Avery", doc.Data["name"])
	assert.Equal(t, []interface{}{"Go"}, doc.Data["skills"])

	require.NoError(t, s.Update(ctx, "users", id, map[string]interface{}{"bio": "hi"}))
	doc, err = s.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.Equal(t, "Avery", doc.Data["name"])
	assert.Equal(t, "hi", doc.Data["bio"])

	require.NoError(t, s.Delete(ctx, "users", id))
	_, err = s.Get(ctx, "users", id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Update(ctx, "users", id, map[string]interface{}{"bio": "x"}), ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "users", id))
}

func TestMemoryStore_QueryFiltersAndOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "requests", "r1", map[string]interface{}{"from": "a", "to": "b", "status": "pending"}))
	require.NoError(t, s.Set(ctx, "requests", "r2", map[string]interface{}{"from": "c", "to": "b", "status": "pending"}))
	require.NoError(t, s.Set(ctx, "requests", "r3", map[string]interface{}{"from": "a", "to": "c", "status": "pending"}))
	require.NoError(t, s.Set(ctx, "requests", "r4", map[string]interface{}{"from": "d", "to": "b", "status": "declined"}))

	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{name: "no filters", want: []string{"r1", "r2", "r3", "r4"}},
		{name: "equality", filters: []Filter{Where("to", "b")}, want: []string{"r1", "r2", "r4"}},
		{name: "conjunction", filters: []Filter{Where("to", "b"), Where("status", "pending")}, want: []string{"r1", "r2"}},
		{name: "membership", filters: []Filter{WhereIn("from", []string{"c", "d"})}, want: []string{"r2", "r4"}},
		{name: "missing field", filters: []Filter{Where("nope", "x")}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Query(ctx, Collection("requests", tt.filters...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(docs))
		})
	}
}

func TestMemoryStore_QueryRejectsBadFilters(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Query(context.Background(), Collection("x", Filter{Field: "a", Op: ">", Value: 1}))
	assert.Error(t, err)

	_, err = s.Query(context.Background(), Collection("x", WhereIn("a", "not-a-slice")))
	assert.Error(t, err)

	_, err = s.Query(context.Background(), Query{})
	assert.Error(t, err)
}

func TestMemoryStore_SubscribeDeliversInitialAndChanges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "passedUsers", "p1", map[string]interface{}{"userId": "a", "passedUserId": "b"}))

	ch := make(chan Snapshot, 16)
	unsubscribe, err := s.Subscribe(ctx, Collection("passedUsers", Where("userId", "a")), func(snap Snapshot) {
		ch <- snap
	})
	require.NoError(t, err)
	defer unsubscribe()

	first := recvSnapshot(t, ch)
	require.NoError(t, first.Err)
	assert.Equal(t, []string{"p1"}, ids(first.Docs))

	require.NoError(t, s.Set(ctx, "passedUsers", "p2", map[string]interface{}{"userId": "a", "passedUserId": "c"}))

	var latest Snapshot
	for {
		latest = recvSnapshot(t, ch)
		if len(latest.Docs) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"p1", "p2"}, ids(latest.Docs))
}

func TestMemoryStore_UnsubscribeStopsDelivery(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ch := make(chan Snapshot, 16)
	unsubscribe, err := s.Subscribe(ctx, Collection("connections"), func(snap Snapshot) {
		ch <- snap
	})
	require.NoError(t, err)
	recvSnapshot(t, ch)

	unsubscribe()
	unsubscribe()
	assert.Eventually(t, func() bool { return s.watchers.count() == 0 }, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Set(ctx, "connections", "c1", map[string]interface{}{"user1Id": "a"}))
	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot after unsubscribe: %v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryStore_ContextCancelStopsSubscription(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan Snapshot, 4)
	_, err := s.Subscribe(ctx, Collection("messages"), func(snap Snapshot) { ch <- snap })
	require.NoError(t, err)
	recvSnapshot(t, ch)

	cancel()
	assert.Eventually(t, func() bool { return s.watchers.count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Create(context.Background(), "users", map[string]interface{}{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Subscribe(context.Background(), Collection("users"), func(Snapshot) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEncodeDecode(t *testing.T) {
	type record struct {
		Name   string   `json:"name"`
		Skills []string `json:"skills"`
		Done   bool     `json:"done"`
	}

	data, err := Encode(record{Name: "Nora", Skills: []string{"Figma"}, Done: true})
	require.NoError(t, err)
	assert.Equal(t, "Nora", data["name"])
	assert.Equal(t, true, data["done"])

	var out record
	require.NoError(t, Decode(data, &out))
	assert.Equal(t, []string{"Figma"}, out.Skills)
}

func TestBuildSelect(t *testing.T) {
	sql, args, err := buildSelect(Collection("connectionRequests",
		Where("toUserId", "u1"),
		WhereIn("status", []string{"pending"}),
	))
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT id, data::text FROM documents WHERE collection = $1`+
			` AND data -> $2::text = $3::text::jsonb`+
			` AND data -> $4::text IN (SELECT jsonb_array_elements($5::text::jsonb))`+
			` ORDER BY seq`,
		sql,
	)
	assert.Equal(t, []interface{}{"connectionRequests", "toUserId", `"u1"`, "status", `["pending"]`}, args)
}
