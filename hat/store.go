package hat

import (
	"context"
	"errors"
	"sort"
)

// Common errors
var (
	ErrNotFound     = errors.New("hat not found")
	ErrInvalidInput = errors.New("invalid hat")
)

// StoreType represents the type of persona storage backend.
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeFile     StoreType = "file"
	StoreTypeDatabase StoreType = "database"
)

// Store persists hat definitions. Implementations return copies so callers
// never share state with the store.
type Store interface {
	// Get returns the hat with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*Hat, error)

	// List returns every hat in store order.
	List(ctx context.Context) ([]*Hat, error)

	// ListByTeam returns active hats of a team sorted by flow order.
	ListByTeam(ctx context.Context, teamID string) ([]*Hat, error)

	// Put inserts or replaces a hat.
	Put(ctx context.Context, h *Hat) error

	// Delete removes a hat. Deleting a missing hat returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// TeamMembers filters hats to the active members of teamID and sorts them by
// flow order. Hats without a flow order go last; ties keep their input order.
func TeamMembers(hats []*Hat, teamID string) []*Hat {
	members := make([]*Hat, 0, len(hats))
	for _, h := range hats {
		if h != nil && h.Active && h.InTeam(teamID) {
			members = append(members, h)
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i].FlowOrder, members[j].FlowOrder
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return members
}

func validate(h *Hat) error {
	if h == nil || h.ID == "" {
		return ErrInvalidInput
	}
	return nil
}
