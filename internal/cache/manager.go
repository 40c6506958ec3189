package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chin3/hat-manager/config"
	"github.com/chin3/hat-manager/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 Redis 连接管理器
// =============================================================================

// Manager 管理共享 Redis 客户端及其健康检查
type Manager struct {
	redis  *redis.Client
	cfg    config.RedisConfig
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

// Options 连接选项
type Options struct {
	// 建立连接时的探活超时
	DialTimeout time.Duration
	// 健康检查间隔，0 表示关闭
	HealthCheckInterval time.Duration
}

// DefaultOptions 返回默认连接选项
func DefaultOptions() Options {
	return Options{
		DialTimeout:         5 * time.Second,
		HealthCheckInterval: 30 * time.Second,
	}
}

// NewManager 连接 Redis，探活失败时返回错误
func NewManager(cfg config.RedisConfig, opts Options, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultOptions().DialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		TLSConfig:    tlsutil.RedisTLSConfig(cfg.TLSEnabled),
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	m := &Manager{
		redis:  client,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "redis")),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	if opts.HealthCheckInterval > 0 {
		go m.healthCheckLoop(opts.HealthCheckInterval)
	} else {
		close(m.done)
	}

	m.logger.Info("redis connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.Bool("tls", cfg.TLSEnabled),
	)
	return m, nil
}

// Client 返回底层客户端
func (m *Manager) Client() *redis.Client {
	return m.redis
}

// Ping 检查连接
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("redis manager is closed")
	}
	return m.redis.Ping(ctx).Err()
}

// Stats 连接池统计
type Stats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

// GetStats 返回连接池统计
func (m *Manager) GetStats() Stats {
	s := m.redis.PoolStats()
	return Stats{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Timeouts:   s.Timeouts,
		TotalConns: s.TotalConns,
		IdleConns:  s.IdleConns,
	}
}

// Close 停止健康检查并关闭客户端
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.stop)
	m.mu.Unlock()

	<-m.done
	m.logger.Info("closing redis connection")
	return m.redis.Close()
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func (m *Manager) healthCheckLoop(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.redis.Ping(ctx).Err(); err != nil {
			m.logger.Error("redis health check failed", zap.Error(err))
		} else {
			stats := m.redis.PoolStats()
			m.logger.Debug("redis health check passed",
				zap.Uint32("total_conns", stats.TotalConns),
				zap.Uint32("idle_conns", stats.IdleConns),
			)
		}
		cancel()
	}
}
