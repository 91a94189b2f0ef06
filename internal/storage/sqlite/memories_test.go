package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/chainbot/internal/core"
)

func newTestRepo(t *testing.T) *MemoriesRepo {
	t.Helper()

	db, err := NewDB(context.Background(), t.TempDir()+"/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewMemoriesRepo(db)
}

func TestMemoriesAddSearch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.Add(ctx, []core.Message{
		{Role: core.RoleUser, Content: "what is my favorite color"},
		{Role: core.RoleAssistant, Content: "Your favorite color is teal."},
	}, "u1", map[string]any{"type": core.MemoryConversation})
	require.NoError(t, err)

	records, err := repo.Search(ctx, "favorite color", "u1", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Contains(t, records[0].Content, "User asked: what is my favorite color")
	assert.Contains(t, records[0].Content, "Assistant responded: Your favorite color is teal.")
	assert.Equal(t, 1.0, records[0].Score)
	assert.Equal(t, core.MemoryConversation, records[0].Type())

	_, ok := records[0].ParseCreatedAt()
	assert.True(t, ok)

	// Other users must not see it.
	records, err = repo.Search(ctx, "favorite color", "u2", 5)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoriesPartialMatchScore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.Add(ctx, []core.Message{
		{Role: core.RoleUser, Content: "remind me about the deployment checklist"},
	}, "u1", nil)
	require.NoError(t, err)

	records, err := repo.Search(ctx, "deployment pipeline", "u1", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0.5, records[0].Score)
}

func TestMemoriesListDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, text := range []string{"first note", "second note", "third note"} {
		err := repo.Add(ctx, []core.Message{{Role: core.RoleUser, Content: text}}, "u1", nil)
		require.NoError(t, err)
	}

	records, err := repo.List(ctx, "u1", 1, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	err = repo.Delete(ctx, records[0].ID)
	require.NoError(t, err)

	records, err = repo.List(ctx, "u1", 1, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	ids := []string{records[0].ID, records[1].ID}
	require.NoError(t, repo.BatchDelete(ctx, ids))

	records, err = repo.List(ctx, "u1", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Empty(t, summarize(nil))
	assert.Empty(t, summarize([]core.Message{{Role: core.RoleSystem, Content: "you are helpful"}}))
}
