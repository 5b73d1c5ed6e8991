package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahadazizz/knowledg-rag/rag"
)

func makeTurn(threadID string, index int) rag.Turn {
	return rag.Turn{
		ThreadID:    threadID,
		Index:       index,
		Query:       fmt.Sprintf("question %d", index),
		Answer:      fmt.Sprintf("answer %d", index),
		Citations:   []string{"c1"},
		EvidenceIDs: []string{"c1", "c2"},
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, index, 0, time.UTC),
	}
}

// storeUnderTest runs the shared SessionStore contract against an
// implementation.
func storeUnderTest(t *testing.T, store rag.SessionStore) {
	ctx := context.Background()

	t.Run("unknown thread is empty, not an error", func(t *testing.T) {
		turns, err := store.Load(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, turns)
	})

	t.Run("turns come back in append order", func(t *testing.T) {
		for i := range 3 {
			require.NoError(t, store.Append(ctx, "t1", makeTurn("t1", i)))
		}
		turns, err := store.Load(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, turns, 3)
		for i, turn := range turns {
			assert.Equal(t, i, turn.Index)
			assert.Equal(t, fmt.Sprintf("question %d", i), turn.Query)
		}
		assert.Equal(t, []string{"c1"}, turns[0].Citations)
		assert.Equal(t, []string{"c1", "c2"}, turns[0].EvidenceIDs)
	})

	t.Run("threads are independent", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "t2", makeTurn("t2", 0)))
		turns, err := store.Load(ctx, "t2")
		require.NoError(t, err)
		assert.Len(t, turns, 1)

		other, err := store.Load(ctx, "t1")
		require.NoError(t, err)
		assert.Len(t, other, 3)
	})
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemoryStore())
}

func TestMemoryStoreWindowEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithWindow(2))

	for i := range 4 {
		require.NoError(t, store.Append(ctx, "t1", makeTurn("t1", i)))
	}

	turns, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, 2, turns[0].Index, "oldest turns are evicted first")
	assert.Equal(t, 3, turns[1].Index)
}

func TestMemoryStoreConcurrentThreads(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := range 8 {
		threadID := fmt.Sprintf("thread-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 10 {
				_ = store.Append(ctx, threadID, makeTurn(threadID, j))
			}
		}()
	}
	wg.Wait()

	for i := range 8 {
		turns, err := store.Load(ctx, fmt.Sprintf("thread-%d", i))
		require.NoError(t, err)
		require.Len(t, turns, 10)
		for j, turn := range turns {
			assert.Equal(t, j, turn.Index)
		}
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, RedisOptions{})

	storeUnderTest(t, store)
}

func TestRedisStoreWindowEviction(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, RedisOptions{Window: 2})

	for i := range 4 {
		require.NoError(t, store.Append(ctx, "t1", makeTurn("t1", i)))
	}

	turns, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, 2, turns[0].Index)
	assert.Equal(t, 3, turns[1].Index)
}

func TestSqliteStore(t *testing.T) {
	store, err := NewSqliteStore(SqliteOptions{Path: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	storeUnderTest(t, store)
}

func TestSqliteStoreWindowEviction(t *testing.T) {
	ctx := context.Background()
	store, err := NewSqliteStore(SqliteOptions{Path: ":memory:", Window: 2})
	require.NoError(t, err)
	defer store.Close()

	for i := range 4 {
		require.NoError(t, store.Append(ctx, "t1", makeTurn("t1", i)))
	}

	turns, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, 2, turns[0].Index)
	assert.Equal(t, 3, turns[1].Index)
}
