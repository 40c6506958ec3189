package mission

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chin3/hat-manager/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func sampleRecord(ts time.Time, goal string) *Record {
	return &Record{
		Timestamp:        ts,
		TeamID:           "team_alpha",
		Goal:             goal,
		Outcome:          OutcomePartialSuccess,
		OutcomeLabel:     OutcomePartialSuccess.Label(),
		MissionSuccess:   true,
		RevisionRequired: true,
		Steps: []types.FlowStep{
			{HatID: "hat_r", HatName: "Researcher", Input: goal, Output: "Draft A"},
		},
		Debrief: "went fine",
	}
}

func archives(t *testing.T) map[string]Archive {
	fa, err := NewFileArchive(filepath.Join(t.TempDir(), "missions"), nil)
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "missions.db")), &gorm.Config{})
	require.NoError(t, err)
	ga, err := NewGormArchive(db)
	require.NoError(t, err)

	return map[string]Archive{"file": fa, "gorm": ga}
}

func TestArchives_SaveAndList(t *testing.T) {
	for name, a := range archives(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

			first := sampleRecord(ts, "first")
			loc, err := a.Save(ctx, first)
			require.NoError(t, err)
			assert.Equal(t, "mission_20260304050607", first.ID)
			assert.Contains(t, loc, "mission_20260304050607")

			second := sampleRecord(ts, "second")
			_, err = a.Save(ctx, second)
			require.NoError(t, err)
			assert.Equal(t, "mission_20260304050607-1", second.ID)

			later := sampleRecord(ts.Add(time.Hour), "later")
			_, err = a.Save(ctx, later)
			require.NoError(t, err)

			all, err := a.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "later", all[0].Goal)
			assert.Equal(t, "second", all[1].Goal)
			assert.Equal(t, "first", all[2].Goal)

			limited, err := a.List(ctx, 1)
			require.NoError(t, err)
			require.Len(t, limited, 1)
			assert.Equal(t, OutcomePartialSuccess, limited[0].Outcome)
			require.Len(t, limited[0].Steps, 1)
			assert.Equal(t, "Draft A", limited[0].Steps[0].Output)

			_, err = a.Save(ctx, nil)
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestFileArchive_WritesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileArchive(dir, nil)
	require.NoError(t, err)

	path, err := a.Save(context.Background(), sampleRecord(time.Now(), "goal"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "PARTIAL_SUCCESS", raw["outcome"])
	assert.Contains(t, raw, "log")
	assert.Contains(t, raw, "debrief")
}

func TestFileArchive_ListOrdersCollisionsNewestFirst(t *testing.T) {
	a, err := NewFileArchive(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	for i := 0; i < 12; i++ {
		_, err := a.Save(ctx, sampleRecord(ts, fmt.Sprintf("goal %d", i)))
		require.NoError(t, err)
	}

	all, err := a.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 12)
	for i, rec := range all {
		assert.Equal(t, fmt.Sprintf("goal %d", 11-i), rec.Goal)
	}
	assert.Equal(t, "mission_20260304050607-11", all[0].ID)
	assert.Equal(t, "mission_20260304050607", all[11].ID)
}

func TestGormArchive_TableName(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "missions.db")), &gorm.Config{})
	require.NoError(t, err)
	_, err = NewGormArchive(db)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable("missions"))
}

func TestFileOrder(t *testing.T) {
	base, n := fileOrder("mission_20260304050607.json")
	assert.Equal(t, "mission_20260304050607", base)
	assert.Equal(t, 0, n)

	base, n = fileOrder("mission_20260304050607-10.json")
	assert.Equal(t, "mission_20260304050607", base)
	assert.Equal(t, 10, n)
}

func TestFileArchive_UnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileArchive(dir, nil)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a dir"), 0644))

	_, err = a.Save(context.Background(), sampleRecord(time.Now(), "goal"))
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Classify(true, false))
	assert.Equal(t, OutcomePartialSuccess, Classify(true, true))
	assert.Equal(t, OutcomeFailed, Classify(false, true))
	assert.Equal(t, OutcomeFailed, Classify(false, false))
	assert.Equal(t, "Partial Success", OutcomePartialSuccess.Label())
	assert.Equal(t, "Failed", OutcomeFailed.Label())
}
