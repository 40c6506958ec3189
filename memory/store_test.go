package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisStore(t *testing.T, max int) (*miniredis.Miniredis, *RedisStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client, "test:", max, zap.NewNop())
}

func backends(t *testing.T, max int) map[string]Store {
	_, rs := newRedisStore(t, max)
	return map[string]Store{
		"memory": NewInMemoryStore(max),
		"redis":  rs,
	}
}

func TestStores_AppendQueryClear(t *testing.T) {
	for name, s := range backends(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Append(ctx, "hat_a", "the ocean is deep and blue", RoleUser, []string{"sea"}))
			time.Sleep(2 * time.Millisecond)
			require.NoError(t, s.Append(ctx, "hat_a", "mountains are tall", RoleAssistant, nil))
			require.NoError(t, s.Append(ctx, "hat_b", "ocean ocean ocean", RoleUser, nil))

			matches, err := s.Query(ctx, "hat_a", "how deep is the ocean", 1)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, "the ocean is deep and blue", matches[0].Text)
			assert.Greater(t, matches[0].Score, 0.0)
			assert.Equal(t, []string{"sea"}, matches[0].Tags)
			assert.Equal(t, RoleUser, matches[0].Role)

			recent, err := s.Query(ctx, "hat_a", "", 5)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, "mountains are tall", recent[0].Text)

			require.NoError(t, s.Clear(ctx, "hat_a"))
			empty, err := s.Query(ctx, "hat_a", "ocean", 3)
			require.NoError(t, err)
			assert.Empty(t, empty)

			other, err := s.Query(ctx, "hat_b", "ocean", 3)
			require.NoError(t, err)
			assert.Len(t, other, 1)

			assert.ErrorIs(t, s.Append(ctx, "", "x", RoleUser, nil), ErrInvalidInput)
		})
	}
}

func TestStores_BoundedHistory(t *testing.T) {
	for name, s := range backends(t, 2) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, text := range []string{"one", "two", "three"} {
				require.NoError(t, s.Append(ctx, "hat", text, RoleUser, nil))
			}
			all, err := s.Query(ctx, "hat", "", 10)
			require.NoError(t, err)
			texts := []string{}
			for _, m := range all {
				texts = append(texts, m.Text)
			}
			assert.ElementsMatch(t, []string{"two", "three"}, texts)
		})
	}
}

func TestRedisStore_SkipsCorruptEntries(t *testing.T) {
	mr, s := newRedisStore(t, 0)
	_, err := mr.RPush("test:memory:hat", "not-json")
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), "hat", "valid entry", RoleUser, nil))

	matches, err := s.Query(context.Background(), "hat", "valid", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "valid entry", matches[0].Text)
}

func TestRank(t *testing.T) {
	base := time.Now()
	entries := []Entry{
		{Text: "alpha beta", Timestamp: base},
		{Text: "gamma", Timestamp: base.Add(time.Second)},
		{Text: "alpha alpha", Timestamp: base.Add(2 * time.Second)},
	}

	assert.Empty(t, rank(entries, "alpha", 0))
	top := rank(entries, "alpha", 2)
	require.Len(t, top, 2)
	assert.Equal(t, "alpha alpha", top[0].Text)
	assert.Equal(t, "alpha beta", top[1].Text)

	assert.InDelta(t, 1.0, cosineSimilarity(termVector("A b"), termVector("b a")), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity(termVector(""), termVector("x")))
}
