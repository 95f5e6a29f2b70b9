// Package spark serves the activity-card deck: random draws with per-session
// recency exclusion, per-user archiving, and backward navigation.
package spark

import (
	"context"
	"errors"

	"github.com/thevault-app/thevault/internal/apperr"
	"github.com/thevault-app/thevault/internal/models"
	"gorm.io/gorm"
)

// Service draws sparks and manages archive preferences.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Random draws a spark from the category pool, optionally narrowed to one
// vibe. Exclusions are best-effort, shed in two stages when they empty the
// pool: first the recency window, then the caller's archive. A non-empty
// category/vibe pool always deals a card.
func (s *Service) Random(ctx context.Context, userID uint, category, vibe string, exclude []uint) (*models.Spark, error) {
	if !models.ValidSparkCategory(category) {
		return nil, apperr.ErrInvalidCategory
	}
	if vibe != "" && !models.ValidVibe(vibe) {
		return nil, apperr.ErrInvalidVibe
	}

	spark, err := s.draw(ctx, category, vibe, exclude, s.archivedIDs(userID))
	if errors.Is(err, gorm.ErrRecordNotFound) && len(exclude) > 0 {
		// Everything in the pool was seen recently; drop the recency filter.
		spark, err = s.draw(ctx, category, vibe, nil, s.archivedIDs(userID))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The user archived the whole pool; drop the archive filter too.
		spark, err = s.draw(ctx, category, vibe, nil, nil)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNoSparksInPool
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to draw spark", err)
	}
	return spark, nil
}

func (s *Service) draw(ctx context.Context, category, vibe string, exclude []uint, archived *gorm.DB) (*models.Spark, error) {
	q := s.db.WithContext(ctx).Where("category = ?", category)
	if archived != nil {
		q = q.Where("id NOT IN (?)", archived)
	}
	if vibe != "" {
		q = q.Where("vibe = ?", vibe)
	}
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}

	var spark models.Spark
	if err := q.Order("RANDOM()").First(&spark).Error; err != nil {
		return nil, err
	}
	return &spark, nil
}

// archivedIDs is a subquery of the user's archived spark ids.
func (s *Service) archivedIDs(userID uint) *gorm.DB {
	return s.db.Model(&models.SparkPreference{}).
		Select("spark_id").
		Where("user_id = ? AND archived = ?", userID, true)
}

// Get loads a single spark by id, for backward navigation.
func (s *Service) Get(ctx context.Context, sparkID uint) (*models.Spark, error) {
	var spark models.Spark
	err := s.db.WithContext(ctx).First(&spark, sparkID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrSparkNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load spark", err)
	}
	return &spark, nil
}

// Archive marks a spark hidden for this user. Idempotent.
func (s *Service) Archive(ctx context.Context, userID, sparkID uint) error {
	return s.setArchived(ctx, userID, sparkID, true)
}

// Unarchive returns an archived spark to the user's pool. Idempotent.
func (s *Service) Unarchive(ctx context.Context, userID, sparkID uint) error {
	return s.setArchived(ctx, userID, sparkID, false)
}

func (s *Service) setArchived(ctx context.Context, userID, sparkID uint, archived bool) error {
	if _, err := s.Get(ctx, sparkID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pref models.SparkPreference
		err := tx.Where("user_id = ? AND spark_id = ?", userID, sparkID).First(&pref).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			pref = models.SparkPreference{UserID: userID, SparkID: sparkID, Archived: archived}
			return tx.Create(&pref).Error
		}
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, "failed to load preference", err)
		}
		if pref.Archived == archived {
			return nil
		}
		return tx.Model(&pref).Update("archived", archived).Error
	})
}

// Archived lists the user's archived sparks, most recently archived first.
func (s *Service) Archived(ctx context.Context, userID uint) ([]models.Spark, error) {
	var sparks []models.Spark
	err := s.db.WithContext(ctx).
		Joins("JOIN spark_preferences sp ON sp.spark_id = sparks.id").
		Where("sp.user_id = ? AND sp.archived = ? AND sp.deleted_at IS NULL", userID, true).
		Order("sp.updated_at DESC").
		Find(&sparks).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to list archived sparks", err)
	}
	return sparks, nil
}

// CategoryCounts returns, per category, how many sparks remain in the user's
// unarchived pool.
func (s *Service) CategoryCounts(ctx context.Context, userID uint) (map[string]int64, error) {
	type row struct {
		Category string
		N        int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Spark{}).
		Select("category, COUNT(*) AS n").
		Where("id NOT IN (?)", s.archivedIDs(userID)).
		Group("category").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to count sparks", err)
	}

	counts := make(map[string]int64, len(models.SparkCategories))
	for _, c := range models.SparkCategories {
		counts[c] = 0
	}
	for _, r := range rows {
		counts[r.Category] = r.N
	}
	return counts, nil
}
