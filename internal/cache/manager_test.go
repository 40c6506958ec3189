package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/chin3/hat-manager/config"
	"github.com/chin3/hat-manager/memory"
	"github.com/chin3/hat-manager/teamflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	mr := miniredis.RunT(t)

	cfg := config.DefaultRedisConfig()
	cfg.Addr = mr.Addr()

	manager, err := NewManager(cfg, Options{HealthCheckInterval: time.Hour}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return mr, manager
}

func TestNewManager(t *testing.T) {
	_, manager := setupTestRedis(t)

	require.NotNil(t, manager.Client())
	assert.NoError(t, manager.Ping(context.Background()))
}

func TestNewManager_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.DefaultRedisConfig()
	cfg.Addr = addr
	_, err := NewManager(cfg, Options{DialTimeout: 200 * time.Millisecond}, nil)
	assert.Error(t, err)
}

func TestManager_Close(t *testing.T) {
	_, manager := setupTestRedis(t)

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())
	assert.Error(t, manager.Ping(context.Background()))
}

func TestManager_Stats(t *testing.T) {
	_, manager := setupTestRedis(t)

	require.NoError(t, manager.Client().Set(context.Background(), "k", "v", 0).Err())
	stats := manager.GetStats()
	assert.GreaterOrEqual(t, stats.TotalConns, uint32(1))
}

// 同一个连接同时服务记忆与快照存储
func TestManager_SharedByStores(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	mem := memory.NewRedisStore(manager.Client(), "hatflow:", 10, zap.NewNop())
	require.NoError(t, mem.Append(ctx, "hat_a", "drafted the outline", memory.RoleAssistant, nil))

	snaps := teamflow.NewRedisSnapshotStore(manager.Client(), "hatflow:", time.Minute)
	require.NoError(t, snaps.Create(ctx, &teamflow.Snapshot{SessionID: "s1", TeamID: "team_alpha", Goal: "g"}))

	matches, err := mem.Query(ctx, "hat_a", "outline", 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, mr.Exists("hatflow:snapshot:s1"))
}
