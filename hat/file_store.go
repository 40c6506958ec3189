package hat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// FileStore keeps one JSON file per hat under a directory (<dir>/<hat_id>.json).
// Files that fail to decode are skipped with a warning.
type FileStore struct {
	dir    string
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create hat directory: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With(zap.String("component", "hat_file_store")),
	}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Get(ctx context.Context, id string) (*Hat, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(s.path(id))
}

func (s *FileStore) read(path string) (*Hat, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(filepath.Base(path), ".json"))
	}
	if err != nil {
		return nil, err
	}
	var h Hat
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &h, nil
}

func (s *FileStore) List(ctx context.Context) ([]*Hat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	hats := make([]*Hat, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		h, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable hat file",
				zap.String("file", e.Name()),
				zap.Error(err))
			continue
		}
		hats = append(hats, h)
	}
	return hats, nil
}

func (s *FileStore) ListByTeam(ctx context.Context, teamID string) ([]*Hat, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return TeamMembers(all, teamID), nil
}

func (s *FileStore) Put(ctx context.Context, h *Hat) error {
	if err := validate(h); err != nil {
		return err
	}
	if strings.ContainsAny(h.ID, `/\`) {
		return fmt.Errorf("%w: id %q", ErrInvalidInput, h.ID)
	}
	c := h.Clone()
	Normalize(c)
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 原子写: 写入临时文件后重命名
	target := s.path(c.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}
