package teamflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/chin3/hat-manager/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotStores(t *testing.T) map[string]SnapshotStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]SnapshotStore{
		"memory": NewMemorySnapshotStore(),
		"redis":  NewRedisSnapshotStore(client, "test:", time.Hour),
	}
}

func sampleSnapshot(sessionID string) *Snapshot {
	return &Snapshot{
		SessionID: sessionID,
		RunID:     "run-1",
		TeamID:    "team_alpha",
		Goal:      "goal",
		Steps: []types.FlowStep{
			{HatID: "hat_research", HatName: "Researcher", Input: "goal", Output: "Draft A", Kind: types.StepInitial},
		},
		RevisionRequired: true,
		Pending:          "Draft A",
		Verdict:          VerdictRevisionRequired.String(),
		CreatedAt:        fixedNow,
	}
}

func TestSnapshotStores(t *testing.T) {
	for name, store := range snapshotStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "s1")
			assert.ErrorIs(t, err, ErrSnapshotNotFound)

			require.NoError(t, store.Create(ctx, sampleSnapshot("s1")))
			assert.ErrorIs(t, store.Create(ctx, sampleSnapshot("s1")), ErrSnapshotExists)

			got, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "Draft A", got.Pending)
			assert.True(t, got.RevisionRequired)
			require.Len(t, got.Steps, 1)
			assert.Equal(t, "Draft A", got.Steps[0].Output)

			require.NoError(t, store.Delete(ctx, "s1"))
			assert.ErrorIs(t, store.Delete(ctx, "s1"), ErrSnapshotNotFound)
		})
	}
}

func TestSnapshotStores_ConsumedOnce(t *testing.T) {
	for name, store := range snapshotStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, sampleSnapshot("s1")))

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if store.Delete(ctx, "s1") == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestMemorySnapshotStore_ReturnsCopies(t *testing.T) {
	store := NewMemorySnapshotStore()
	ctx := context.Background()
	snap := sampleSnapshot("s1")
	require.NoError(t, store.Create(ctx, snap))

	snap.Steps[0].Output = "mutated"
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Draft A", got.Steps[0].Output)
}

func TestRedisSnapshotStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisSnapshotStore(client, "", time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, sampleSnapshot("s1")))
	assert.True(t, mr.Exists("hatflow:snapshot:s1"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
