package wrapped

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/thevault-app/thevault/internal/apperr"
	"github.com/thevault-app/thevault/internal/models"
	"gorm.io/gorm"
)

// Service generates wrapped summaries and caches completed years.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Generate returns the summary for (vault, year). The current year is always
// computed fresh since entries keep arriving; past years are served from the
// snapshot cache and computed once on first request.
func (s *Service) Generate(ctx context.Context, couple *models.Couple, userID uint, year int) (*Summary, error) {
	if !couple.IncludesUser(userID) {
		return nil, apperr.ErrNotVaultMember
	}

	currentYear := time.Now().UTC().Year()
	if year >= currentYear {
		return NewAnalytics(s.db, couple, year).Generate(ctx)
	}

	if cached, err := s.loadSnapshot(ctx, couple.ID, year); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	summary, err := NewAnalytics(s.db, couple, year).Generate(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.storeSnapshot(ctx, couple.ID, year, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) loadSnapshot(ctx context.Context, coupleID uint, year int) (*Summary, error) {
	var snap models.WrappedSnapshot
	err := s.db.WithContext(ctx).
		Where("couple_id = ? AND year = ?", coupleID, year).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load snapshot", err)
	}

	var summary Summary
	if err := json.Unmarshal(snap.Data, &summary); err != nil {
		// A corrupt snapshot is recomputed, not fatal.
		return nil, nil
	}
	return &summary, nil
}

func (s *Service) storeSnapshot(ctx context.Context, coupleID uint, year int, summary *Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to encode snapshot", err)
	}

	snap := models.WrappedSnapshot{
		CoupleID:    coupleID,
		Year:        year,
		Data:        raw,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&snap).Error; err != nil {
		// A concurrent request already cached this year.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return apperr.Wrap(apperr.CodeInternal, "failed to store snapshot", err)
	}
	return nil
}
