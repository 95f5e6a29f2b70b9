// Package profile manages per-user settings: display name, timezone, and
// notification preferences.
package profile

import (
	"context"
	"strings"
	"time"

	"github.com/thevault-app/thevault/internal/apperr"
	"github.com/thevault-app/thevault/internal/models"
	"github.com/thevault-app/thevault/internal/vault"
	"gorm.io/gorm"
)

// Service reads and updates profiles. Timezone changes ripple into the
// user's vaults through the vault service.
type Service struct {
	db     *gorm.DB
	vaults *vault.Service
}

func NewService(db *gorm.DB, vaults *vault.Service) *Service {
	return &Service{db: db, vaults: vaults}
}

// Update carries the editable profile fields; nil means leave unchanged.
type Update struct {
	DisplayName           *string
	Timezone              *string
	NotifyPartnerAnswered *bool
}

// Get loads the user's profile.
func (s *Service) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load profile", err)
	}
	return &profile, nil
}

// Apply validates and writes the update. A timezone change recomputes the
// shared timezone of every vault the user belongs to.
func (s *Service) Apply(ctx context.Context, userID uint, upd Update) (*models.Profile, error) {
	updates := map[string]interface{}{}

	if upd.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*upd.DisplayName)
	}
	timezoneChanged := false
	if upd.Timezone != nil {
		tz := strings.TrimSpace(*upd.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return nil, apperr.ErrInvalidTimezone
		}
		updates["timezone"] = tz
		timezoneChanged = true
	}
	if upd.NotifyPartnerAnswered != nil {
		updates["notify_partner_answered"] = *upd.NotifyPartnerAnswered
	}

	if len(updates) > 0 {
		err := s.db.WithContext(ctx).Model(&models.Profile{}).
			Where("user_id = ?", userID).
			Updates(updates).Error
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "failed to update profile", err)
		}
	}

	if timezoneChanged {
		if err := s.recomputeVaultTimezones(ctx, userID); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, userID)
}

func (s *Service) recomputeVaultTimezones(ctx context.Context, userID uint) error {
	couples, err := s.vaults.ListForUser(ctx, userID)
	if err != nil {
		return err
	}
	for i := range couples {
		if err := s.vaults.RecomputeTimezone(ctx, couples[i].ID); err != nil {
			return apperr.Wrap(apperr.CodeInternal, "failed to update vault timezone", err)
		}
	}
	return nil
}
