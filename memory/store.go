package memory

import (
	"context"
	"errors"
	"time"
)

// Role tags who produced a remembered text.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrInvalidInput is returned for entries without a hat id.
var ErrInvalidInput = errors.New("memory: hat id is required")

// BackendType selects the memory backend.
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendRedis  BackendType = "redis"
)

// Entry is one remembered text for a hat.
type Entry struct {
	ID        string    `json:"id"`
	HatID     string    `json:"hat_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Tags      []string  `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Match is an entry with its relevance score for a query.
type Match struct {
	Entry
	Score float64 `json:"score"`
}

// Store is a per-hat, append-only text memory with relevance lookup.
type Store interface {
	// Append remembers text for a hat under the given tags.
	Append(ctx context.Context, hatID, text string, role Role, tags []string) error

	// Query returns up to k entries of the hat ranked by relevance to text.
	// An empty text returns the k most recent entries.
	Query(ctx context.Context, hatID, text string, k int) ([]Match, error)

	// Clear forgets everything remembered for a hat.
	Clear(ctx context.Context, hatID string) error
}
