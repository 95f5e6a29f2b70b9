package spark

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thevault-app/thevault/internal/apperr"
	"github.com/thevault-app/thevault/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Spark{}, &models.SparkPreference{}))
	return db
}

func seedSparks(t *testing.T, db *gorm.DB, category string, n int) []uint {
	t.Helper()
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		s := &models.Spark{
			Text:     fmt.Sprintf("%s card %d", category, i),
			Category: category,
			Vibe:     models.VibeWildcard,
		}
		require.NoError(t, db.Create(s).Error)
		ids = append(ids, s.ID)
	}
	return ids
}

func TestRandomValidatesCategory(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.Random(context.Background(), 1, "bogus", "", nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidCategory)
}

func TestRandomEmptyPool(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.Random(context.Background(), 1, models.SparkCategoryDate, "", nil)
	assert.ErrorIs(t, err, apperr.ErrNoSparksInPool)
}

func TestRandomStaysInCategory(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	seedSparks(t, db, models.SparkCategoryDate, 3)
	seedSparks(t, db, models.SparkCategoryGame, 3)

	for i := 0; i < 10; i++ {
		s, err := svc.Random(ctx, 1, models.SparkCategoryGame, "", nil)
		require.NoError(t, err)
		assert.Equal(t, models.SparkCategoryGame, s.Category)
	}
}

func TestRandomVibeFilter(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	seedSparks(t, db, models.SparkCategoryDate, 2) // wildcard vibe
	spicy := &models.Spark{Text: "spicy card", Category: models.SparkCategoryDate, Vibe: models.VibeSpicy}
	require.NoError(t, db.Create(spicy).Error)

	for i := 0; i < 10; i++ {
		s, err := svc.Random(ctx, 1, models.SparkCategoryDate, models.VibeSpicy, nil)
		require.NoError(t, err)
		assert.Equal(t, spicy.ID, s.ID)
	}

	t.Run("unknown vibe rejected", func(t *testing.T) {
		_, err := svc.Random(ctx, 1, models.SparkCategoryDate, "moody", nil)
		assert.ErrorIs(t, err, apperr.ErrInvalidVibe)
	})

	t.Run("empty vibe pool", func(t *testing.T) {
		_, err := svc.Random(ctx, 1, models.SparkCategoryDate, models.VibeGrind, nil)
		assert.ErrorIs(t, err, apperr.ErrNoSparksInPool)
	})
}

func TestRandomExcludesRecent(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	ids := seedSparks(t, db, models.SparkCategoryConvo, 3)

	// Excluding all but one forces a deterministic draw.
	s, err := svc.Random(ctx, 1, models.SparkCategoryConvo, "", ids[:2])
	require.NoError(t, err)
	assert.Equal(t, ids[2], s.ID)
}

func TestRandomFallsBackWhenPoolExhausted(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	ids := seedSparks(t, db, models.SparkCategoryWYR, 2)

	// Every card was seen recently; the draw must still deal one rather
	// than report an empty pool.
	s, err := svc.Random(ctx, 1, models.SparkCategoryWYR, "", ids)
	require.NoError(t, err)
	assert.Contains(t, ids, s.ID)
}

func TestArchiveExcludesFromDraws(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	ids := seedSparks(t, db, models.SparkCategoryDate, 2)
	require.NoError(t, svc.Archive(ctx, 1, ids[0]))

	for i := 0; i < 10; i++ {
		s, err := svc.Random(ctx, 1, models.SparkCategoryDate, "", nil)
		require.NoError(t, err)
		assert.Equal(t, ids[1], s.ID)
	}

	// Archiving the whole category does not dead-end the draw: the archive
	// filter is shed as a last resort.
	require.NoError(t, svc.Archive(ctx, 1, ids[1]))
	s, err := svc.Random(ctx, 1, models.SparkCategoryDate, "", nil)
	require.NoError(t, err)
	assert.Contains(t, ids, s.ID)

	// Another user's pool is unaffected.
	s, err = svc.Random(ctx, 2, models.SparkCategoryDate, "", nil)
	require.NoError(t, err)
	assert.Contains(t, ids, s.ID)
}

func TestArchiveUnarchiveIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	ids := seedSparks(t, db, models.SparkCategoryGame, 1)

	require.NoError(t, svc.Archive(ctx, 1, ids[0]))
	require.NoError(t, svc.Archive(ctx, 1, ids[0]))

	var count int64
	require.NoError(t, db.Model(&models.SparkPreference{}).Where("user_id = ?", 1).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	require.NoError(t, svc.Unarchive(ctx, 1, ids[0]))
	require.NoError(t, svc.Unarchive(ctx, 1, ids[0]))

	s, err := svc.Random(ctx, 1, models.SparkCategoryGame, "", nil)
	require.NoError(t, err)
	assert.Equal(t, ids[0], s.ID)
}

func TestArchiveUnknownSpark(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	err := svc.Archive(context.Background(), 1, 999)
	assert.ErrorIs(t, err, apperr.ErrSparkNotFound)
}

func TestArchivedList(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	ids := seedSparks(t, db, models.SparkCategoryConvo, 3)
	require.NoError(t, svc.Archive(ctx, 1, ids[0]))
	require.NoError(t, svc.Archive(ctx, 1, ids[2]))

	sparks, err := svc.Archived(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sparks, 2)

	got := []uint{sparks[0].ID, sparks[1].ID}
	assert.ElementsMatch(t, []uint{ids[0], ids[2]}, got)
}

func TestCategoryCounts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	dateIDs := seedSparks(t, db, models.SparkCategoryDate, 3)
	seedSparks(t, db, models.SparkCategoryWYR, 1)
	require.NoError(t, svc.Archive(ctx, 1, dateIDs[0]))

	counts, err := svc.CategoryCounts(ctx, 1)
	require.NoError(t, err)

	assert.EqualValues(t, 2, counts[models.SparkCategoryDate])
	assert.EqualValues(t, 1, counts[models.SparkCategoryWYR])
	assert.EqualValues(t, 0, counts[models.SparkCategoryConvo])
	assert.EqualValues(t, 0, counts[models.SparkCategoryGame])
}

func TestHistoryQueue(t *testing.T) {
	h := &History{}

	for i := 1; i <= 25; i++ {
		h.Push(uint(i))
	}
	assert.Len(t, h.IDs, historyLimit)
	assert.EqualValues(t, 6, h.IDs[0])
	assert.EqualValues(t, 25, h.Last())

	t.Run("recent window is smaller than the queue", func(t *testing.T) {
		recent := h.Recent()
		assert.Len(t, recent, recencyWindow)
		assert.EqualValues(t, 16, recent[0])
		assert.EqualValues(t, 25, recent[len(recent)-1])

		short := &History{IDs: []uint{3, 4}}
		assert.Equal(t, []uint{3, 4}, short.Recent())
	})

	t.Run("duplicate head collapsed", func(t *testing.T) {
		h.Push(25)
		assert.Len(t, h.IDs, historyLimit)
	})

	t.Run("previous walks back", func(t *testing.T) {
		prev := h.Previous()
		assert.EqualValues(t, 24, prev)
		assert.EqualValues(t, 24, h.Last())
	})

	t.Run("previous bottoms out", func(t *testing.T) {
		single := &History{IDs: []uint{7}}
		assert.EqualValues(t, 0, single.Previous())
		empty := &History{}
		assert.EqualValues(t, 0, empty.Previous())
	})
}
