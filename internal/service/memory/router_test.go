package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/chainbot/internal/core"
)

type stubStore struct {
	available     bool
	searchResults map[string][]core.MemoryRecord
	searchCalls   []string
	listResults   []core.MemoryRecord
	listErr       error
	searchErr     error
}

func (s *stubStore) Available() bool { return s.available }

func (s *stubStore) Add(ctx context.Context, messages []core.Message, userID string, metadata map[string]any) error {
	return nil
}

func (s *stubStore) Search(ctx context.Context, query, userID string, limit int) ([]core.MemoryRecord, error) {
	s.searchCalls = append(s.searchCalls, query)
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.searchResults[query], nil
}

func (s *stubStore) List(ctx context.Context, userID string, page, pageSize int) ([]core.MemoryRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listResults, nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error        { return nil }
func (s *stubStore) BatchDelete(ctx context.Context, ids []string) error { return nil }

func recordAt(id string, created time.Time, memType string) core.MemoryRecord {
	return core.MemoryRecord{
		ID:        id,
		Content:   "record " + id,
		CreatedAt: created.Format(time.RFC3339Nano),
		Metadata:  map[string]any{"type": memType},
	}
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2025, 6, 17, 15, 30, 0, 0, time.UTC)
	r := NewRouter(&stubStore{available: true}, "u1")
	r.now = func() time.Time { return now }

	tests := []struct {
		query string
		start time.Time
	}{
		{"what happened yesterday", now.Add(-24 * time.Hour)},
		{"what did we discuss last week", now.AddDate(0, 0, -7)},
		{"summarize last month", now.AddDate(0, 0, -30)},
		{"what did i say today", time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC)},
		{"earlier this week", now.AddDate(0, 0, -7)},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			start, end := r.resolveWindow(tt.query)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, now, end)
		})
	}
}

func TestTemporalRecall(t *testing.T) {
	now := time.Date(2025, 6, 17, 15, 0, 0, 0, time.UTC)

	store := &stubStore{
		available: true,
		listResults: []core.MemoryRecord{
			recordAt("old", now.AddDate(0, 0, -10), core.MemoryConversation),
			recordAt("recent", now.Add(-2*time.Hour), core.MemoryConversation),
			recordAt("newest", now.Add(-1*time.Hour), core.MemoryConversation),
			{ID: "broken", Content: "no timestamp", CreatedAt: "not-a-date"},
		},
	}

	r := NewRouter(store, "u1")
	r.now = func() time.Time { return now }

	records := r.Recall(context.Background(), "what happened yesterday", 5)
	require.Len(t, records, 2)
	assert.Equal(t, "newest", records[0].ID)
	assert.Equal(t, "recent", records[1].ID)
}

func TestPersonalDedupe(t *testing.T) {
	dup := core.MemoryRecord{ID: "a", Content: "User's name is Alex"}

	store := &stubStore{
		available: true,
		searchResults: map[string][]core.MemoryRecord{
			"name":       {dup},
			"occupation": {dup, {ID: "b", Content: "User is a developer"}},
		},
	}

	r := NewRouter(store, "u1")
	records := r.Recall(context.Background(), "what do you know about me", 10)

	require.Len(t, records, 2)
	assert.Equal(t, "User's name is Alex", records[0].Content)
	assert.Equal(t, "User is a developer", records[1].Content)
}

func TestActivitySplitsByType(t *testing.T) {
	now := time.Now()

	var listed []core.MemoryRecord
	for i := 0; i < 5; i++ {
		listed = append(listed, recordAt(fmt.Sprintf("tool-%d", i), now.Add(-time.Duration(i)*time.Hour), core.MemoryToolSuccess))
	}
	for i := 0; i < 5; i++ {
		listed = append(listed, recordAt(fmt.Sprintf("conv-%d", i), now.Add(-time.Duration(i)*time.Minute), core.MemoryConversation))
	}

	store := &stubStore{available: true, listResults: listed}
	r := NewRouter(store, "u1")

	records := r.Recall(context.Background(), "what did i do recently", 4)
	require.Len(t, records, 4)

	var tools, convs int
	for _, rec := range records {
		switch rec.Type() {
		case core.MemoryToolSuccess:
			tools++
		case core.MemoryConversation:
			convs++
		}
	}
	assert.Equal(t, 2, tools)
	assert.Equal(t, 2, convs)
}

func TestWorkDedupeByID(t *testing.T) {
	now := time.Now()
	shared := recordAt("shared", now, core.MemoryToolSuccess)

	store := &stubStore{
		available:   true,
		listResults: []core.MemoryRecord{shared},
		searchResults: map[string][]core.MemoryRecord{
			"code": {shared, recordAt("extra", now, core.MemoryConversation)},
		},
	}

	r := NewRouter(store, "u1")
	records := r.Recall(context.Background(), "show me the code we wrote", 10)

	require.Len(t, records, 2)
	assert.Equal(t, "shared", records[0].ID)
	assert.Equal(t, "extra", records[1].ID)
	assert.Contains(t, store.searchCalls, "code")
}

func TestGenericRelevanceFloor(t *testing.T) {
	store := &stubStore{
		available: true,
		searchResults: map[string][]core.MemoryRecord{
			"favorite sandwich": {
				{ID: "good", Content: "likes pastrami", Score: 0.9},
				{ID: "weak", Content: "noise", Score: 0.1},
				{ID: "unscored", Content: "unscored but kept", Score: 0},
			},
		},
	}

	r := NewRouter(store, "u1")
	records := r.Recall(context.Background(), "favorite sandwich", 10)

	require.Len(t, records, 2)
	assert.Equal(t, "good", records[0].ID)
	assert.Equal(t, "unscored", records[1].ID)
}

func TestTemporalOutranksPersonal(t *testing.T) {
	store := &stubStore{available: true}
	r := NewRouter(store, "u1")

	r.Recall(context.Background(), "what did you learn about me yesterday", 5)

	// Temporal strategy lists, it never searches.
	assert.Empty(t, store.searchCalls)
}

func TestRecallDegradesOnFailure(t *testing.T) {
	store := &stubStore{
		available: true,
		listErr:   errors.New("service down"),
		searchErr: errors.New("service down"),
	}
	r := NewRouter(store, "u1")

	assert.Empty(t, r.Recall(context.Background(), "what happened yesterday", 5))
	assert.Empty(t, r.Recall(context.Background(), "tell me about my projects", 5))
	assert.Empty(t, r.Recall(context.Background(), "anything at all", 5))
}

func TestRecallUnavailableStore(t *testing.T) {
	r := NewRouter(&stubStore{available: false}, "u1")
	assert.Nil(t, r.Recall(context.Background(), "my name", 5))
}
