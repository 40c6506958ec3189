package mission

import (
	"context"
	"errors"
)

// BackendType selects where mission records go.
type BackendType string

const (
	BackendFile     BackendType = "file"
	BackendDatabase BackendType = "database"
)

// ErrInvalidRecord is returned for nil records or records without a timestamp.
var ErrInvalidRecord = errors.New("mission: invalid record")

// Archive stores completed mission records. Records are never rewritten;
// a colliding id gets a numeric suffix.
type Archive interface {
	// Save persists rec, assigning rec.ID, and returns where it was stored.
	Save(ctx context.Context, rec *Record) (string, error)

	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Record, error)
}
