package mission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const maxIDSuffix = 1000

// FileArchive writes one JSON document per mission:
// <dir>/mission_YYYYMMDDhhmmss.json
type FileArchive struct {
	dir    string
	logger *zap.Logger
}

// NewFileArchive creates the directory if needed.
func NewFileArchive(dir string, logger *zap.Logger) (*FileArchive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mission directory: %w", err)
	}
	return &FileArchive{dir: dir, logger: logger.With(zap.String("component", "mission_archive"))}, nil
}

func (a *FileArchive) Save(ctx context.Context, rec *Record) (string, error) {
	if rec == nil || rec.Timestamp.IsZero() {
		return "", ErrInvalidRecord
	}
	base := IDFor(rec.Timestamp)

	for i := 0; i < maxIDSuffix; i++ {
		id := base
		if i > 0 {
			id = fmt.Sprintf("%s-%d", base, i)
		}
		rec.ID = id
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return "", err
		}

		path := filepath.Join(a.dir, id+".json")
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			_ = os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		a.logger.Info("mission archived", zap.String("mission_id", id), zap.String("path", path))
		return path, nil
	}
	return "", fmt.Errorf("no free mission id for %s", base)
}

func (a *FileArchive) List(ctx context.Context, limit int) ([]*Record, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "mission_") && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	// 新的在前：先按时间戳，同一秒内按冲突序号
	sort.Slice(names, func(i, j int) bool {
		bi, si := fileOrder(names[i])
		bj, sj := fileOrder(names[j])
		if bi != bj {
			return bi > bj
		}
		return si > sj
	})

	out := make([]*Record, 0, len(names))
	for _, name := range names {
		if limit > 0 && len(out) >= limit {
			break
		}
		data, err := os.ReadFile(filepath.Join(a.dir, name))
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			a.logger.Warn("skipping unreadable mission file", zap.String("file", name), zap.Error(err))
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// fileOrder splits mission_<ts>[-N].json into its timestamp part and suffix N
// (0 when absent).
func fileOrder(name string) (string, int) {
	base := strings.TrimSuffix(name, ".json")
	if i := strings.LastIndexByte(base, '-'); i > 0 {
		if n, err := strconv.Atoi(base[i+1:]); err == nil {
			return base[:i], n
		}
	}
	return base, 0
}
