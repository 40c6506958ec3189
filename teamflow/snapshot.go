package teamflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chin3/hat-manager/types"
	"github.com/redis/go-redis/v9"
)

// Snapshot errors
var (
	ErrSnapshotExists   = errors.New("suspended flow already exists for session")
	ErrSnapshotNotFound = errors.New("no suspended flow for session")
)

// Snapshot is the state of a flow paused at an approval point.
type Snapshot struct {
	SessionID        string           `json:"session_id"`
	RunID            string           `json:"run_id"`
	TeamID           string           `json:"team_id"`
	Goal             string           `json:"goal"`
	Steps            []types.FlowStep `json:"log"`
	MissionSuccess   bool             `json:"mission_success"`
	RevisionRequired bool             `json:"revision_required"`
	Pending          string           `json:"pending"`
	Verdict          string           `json:"verdict"`
	PreviousHatID    string           `json:"previous_hat_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// SnapshotStore holds at most one snapshot per session.
type SnapshotStore interface {
	// Create stores snap. It fails with ErrSnapshotExists instead of overwriting.
	Create(ctx context.Context, snap *Snapshot) error

	// Get returns the session's snapshot or ErrSnapshotNotFound.
	Get(ctx context.Context, sessionID string) (*Snapshot, error)

	// Delete consumes the snapshot. Only one caller succeeds; the rest
	// get ErrSnapshotNotFound.
	Delete(ctx context.Context, sessionID string) error
}

func cloneSnapshot(s *Snapshot) *Snapshot {
	c := *s
	c.Steps = types.CloneSteps(s.Steps)
	return &c
}

// MemorySnapshotStore keeps snapshots in process memory.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]*Snapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[string]*Snapshot)}
}

func (s *MemorySnapshotStore) Create(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[snap.SessionID]; ok {
		return ErrSnapshotExists
	}
	s.snaps[snap.SessionID] = cloneSnapshot(snap)
	return nil
}

func (s *MemorySnapshotStore) Get(ctx context.Context, sessionID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[sessionID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return cloneSnapshot(snap), nil
}

func (s *MemorySnapshotStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[sessionID]; !ok {
		return ErrSnapshotNotFound
	}
	delete(s.snaps, sessionID)
	return nil
}

// RedisSnapshotStore shares snapshots between replicas. A zero TTL keeps
// snapshots until they are consumed or the session is closed.
type RedisSnapshotStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisSnapshotStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSnapshotStore {
	if keyPrefix == "" {
		keyPrefix = "hatflow:"
	}
	return &RedisSnapshotStore{client: client, keyPrefix: keyPrefix + "snapshot:", ttl: ttl}
}

func (s *RedisSnapshotStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *RedisSnapshotStore) Create(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(snap.SessionID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	if !ok {
		return ErrSnapshotExists
	}
	return nil
}

func (s *RedisSnapshotStore) Get(ctx context.Context, sessionID string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	n, err := s.client.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}
