package hat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// hatRecord is the table row behind GormStore. The full hat is kept as JSON;
// team, order and active are duplicated into columns for filtering.
type hatRecord struct {
	ID        string  `gorm:"primaryKey;size:64"`
	TeamID    *string `gorm:"index;size:128"`
	FlowOrder *int
	Active    bool
	Data      string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 返回表名
func (hatRecord) TableName() string { return "hats" }

// GormStore persists hats in a SQL database (postgres, mysql or sqlite).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the hats table and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.AutoMigrate(&hatRecord{}); err != nil {
		return nil, fmt.Errorf("migrate hats table: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*Hat, error) {
	var rec hatRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(rec)
}

func (s *GormStore) List(ctx context.Context) ([]*Hat, error) {
	var recs []hatRecord
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, err
	}
	return decodeRecords(recs)
}

func (s *GormStore) ListByTeam(ctx context.Context, teamID string) ([]*Hat, error) {
	var recs []hatRecord
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND active = ?", teamID, true).
		Order("created_at, id").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	hats, err := decodeRecords(recs)
	if err != nil {
		return nil, err
	}
	return TeamMembers(hats, teamID), nil
}

func (s *GormStore) Put(ctx context.Context, h *Hat) error {
	if err := validate(h); err != nil {
		return err
	}
	c := h.Clone()
	Normalize(c)
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	rec := hatRecord{
		ID:        c.ID,
		TeamID:    c.TeamID,
		FlowOrder: c.FlowOrder,
		Active:    c.Active,
		Data:      string(data),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"team_id", "flow_order", "active", "data", "updated_at"}),
	}).Create(&rec).Error
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&hatRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func decodeRecord(rec hatRecord) (*Hat, error) {
	var h Hat
	if err := json.Unmarshal([]byte(rec.Data), &h); err != nil {
		return nil, fmt.Errorf("decode hat %s: %w", rec.ID, err)
	}
	return &h, nil
}

func decodeRecords(recs []hatRecord) ([]*Hat, error) {
	out := make([]*Hat, 0, len(recs))
	for _, rec := range recs {
		h, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
