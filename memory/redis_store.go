package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps each hat's memory as a Redis list of JSON entries.
// Ranking happens client side over the most recent MaxPerHat entries.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	maxPerHat int
	logger    *zap.Logger
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, keyPrefix string, maxPerHat int, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyPrefix == "" {
		keyPrefix = "hatflow:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "memory:",
		maxPerHat: maxPerHat,
		logger:    logger.With(zap.String("component", "memory_redis")),
	}
}

func (s *RedisStore) key(hatID string) string {
	return s.keyPrefix + hatID
}

func (s *RedisStore) Append(ctx context.Context, hatID, text string, role Role, tags []string) error {
	if hatID == "" {
		return ErrInvalidInput
	}
	data, err := json.Marshal(Entry{
		ID:        uuid.NewString(),
		HatID:     hatID,
		Role:      role,
		Text:      text,
		Tags:      tags,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key(hatID), data)
	if s.maxPerHat > 0 {
		pipe.LTrim(ctx, s.key(hatID), int64(-s.maxPerHat), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append memory: %w", err)
	}
	return nil
}

func (s *RedisStore) Query(ctx context.Context, hatID, text string, k int) ([]Match, error) {
	raw, err := s.client.LRange(ctx, s.key(hatID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load memory: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			s.logger.Warn("skipping undecodable memory entry",
				zap.String("hat_id", hatID),
				zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return rank(entries, text, k), nil
}

func (s *RedisStore) Clear(ctx context.Context, hatID string) error {
	return s.client.Del(ctx, s.key(hatID)).Err()
}
