package mission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// missionRow 是 missions 表的行
type missionRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	TeamID    string    `gorm:"index;size:128"`
	Outcome   string    `gorm:"size:32"`
	Timestamp time.Time `gorm:"index"`
	Data      string    `gorm:"type:text;not null"`
}

func (missionRow) TableName() string { return "missions" }

// GormArchive stores mission records in a SQL table.
type GormArchive struct {
	db *gorm.DB
}

// NewGormArchive migrates the missions table.
func NewGormArchive(db *gorm.DB) (*GormArchive, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.AutoMigrate(&missionRow{}); err != nil {
		return nil, fmt.Errorf("migrate missions table: %w", err)
	}
	return &GormArchive{db: db}, nil
}

func (a *GormArchive) Save(ctx context.Context, rec *Record) (string, error) {
	if rec == nil || rec.Timestamp.IsZero() {
		return "", ErrInvalidRecord
	}
	base := IDFor(rec.Timestamp)

	for i := 0; i < maxIDSuffix; i++ {
		id := base
		if i > 0 {
			id = fmt.Sprintf("%s-%d", base, i)
		}
		var count int64
		if err := a.db.WithContext(ctx).Model(&missionRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", err
		}
		if count > 0 {
			continue
		}

		rec.ID = id
		data, err := json.Marshal(rec)
		if err != nil {
			return "", err
		}
		row := missionRow{
			ID:        id,
			TeamID:    rec.TeamID,
			Outcome:   string(rec.Outcome),
			Timestamp: rec.Timestamp,
			Data:      string(data),
		}
		if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
			return "", err
		}
		return "missions/" + id, nil
	}
	return "", fmt.Errorf("no free mission id for %s", base)
}

func (a *GormArchive) List(ctx context.Context, limit int) ([]*Record, error) {
	q := a.db.WithContext(ctx).Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []missionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		var rec Record
		if err := json.Unmarshal([]byte(row.Data), &rec); err != nil {
			return nil, fmt.Errorf("decode mission %s: %w", row.ID, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}
