// Package vault implements the couple pairing lifecycle: solo vaults with
// invite codes, pairing, ending, and the reactivation handshake.
package vault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/thevault-app/thevault/internal/apperr"
	"github.com/thevault-app/thevault/internal/models"
	"gorm.io/gorm"
)

// ReactivationStatus reports the outcome of a reactivation request.
type ReactivationStatus string

const (
	ReactivationRequested        ReactivationStatus = "requested"
	ReactivationAlreadyRequested ReactivationStatus = "already_requested"
	// The other member already asked; this member should approve or
	// decline instead of filing a second request.
	ReactivationAwaitingApproval ReactivationStatus = "awaiting_your_approval"
)

const inviteCodeAttempts = 5

// Service owns all vault state transitions.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create opens a new solo vault for the creator and makes it their active
// vault. Invite-code collisions are retried internally.
func (s *Service) Create(ctx context.Context, creatorID uint) (*models.Couple, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", creatorID).First(&profile).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load profile", err)
	}

	tz := profile.Timezone
	if tz == "" {
		tz = "UTC"
	}

	var couple *models.Couple
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "failed to generate invite code", err)
		}

		candidate := &models.Couple{
			Member1ID:  creatorID,
			InviteCode: code,
			Timezone:   tz,
		}
		err = s.db.WithContext(ctx).Create(candidate).Error
		if err == nil {
			couple = candidate
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Wrap(apperr.CodeInternal, "failed to create vault", err)
		}
		// Collision on the invite code, try a fresh one.
	}
	if couple == nil {
		return nil, apperr.ErrCodeGeneration
	}

	if err := s.setActiveVault(ctx, creatorID, couple.ID); err != nil {
		return nil, err
	}
	return couple, nil
}

// JoinWithCode pairs the user into the vault matching the invite code.
// The member2 slot is claimed with a conditional update inside a transaction
// so two concurrent redemptions cannot both succeed; the loser observes
// AlreadyPaired.
func (s *Service) JoinWithCode(ctx context.Context, userID uint, code string) (*models.Couple, error) {
	if code == "" {
		return nil, apperr.ErrMissingInvite
	}

	var couple models.Couple
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invite_code = ?", code).First(&couple).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrInvalidCode
			}
			return apperr.Wrap(apperr.CodeInternal, "failed to look up invite code", err)
		}

		if couple.Member2ID != nil {
			return apperr.ErrAlreadyPaired
		}
		if couple.Member1ID == userID {
			return apperr.ErrSelfJoin
		}

		res := tx.Model(&models.Couple{}).
			Where("id = ? AND member2_id IS NULL", couple.ID).
			Update("member2_id", userID)
		if res.Error != nil {
			return apperr.Wrap(apperr.CodeInternal, "failed to join vault", res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race to another redemption.
			return apperr.ErrAlreadyPaired
		}
		couple.Member2ID = &userID

		return s.recomputeTimezone(tx, &couple)
	})
	if err != nil {
		return nil, err
	}

	if err := s.setActiveVault(ctx, userID, couple.ID); err != nil {
		return nil, err
	}
	return &couple, nil
}

// Get loads a vault and verifies the user is a member.
func (s *Service) Get(ctx context.Context, coupleID, userID uint) (*models.Couple, error) {
	var couple models.Couple
	if err := s.db.WithContext(ctx).First(&couple, coupleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrVaultNotFound
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load vault", err)
	}
	if !couple.IncludesUser(userID) {
		return nil, apperr.ErrNotVaultMember
	}
	return &couple, nil
}

// ListForUser returns every vault the user belongs to, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.Couple, error) {
	var couples []models.Couple
	err := s.db.WithContext(ctx).
		Where("member1_id = ? OR member2_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&couples).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to list vaults", err)
	}
	return couples, nil
}

// ActiveForUser resolves the user's active vault. When the profile pointer is
// unset (or stale) it falls back to the user's most recent vault and repairs
// the pointer.
func (s *Service) ActiveForUser(ctx context.Context, userID uint) (*models.Couple, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load profile", err)
	}

	if profile.ActiveCoupleID != nil {
		couple, err := s.Get(ctx, *profile.ActiveCoupleID, userID)
		if err == nil {
			return couple, nil
		}
		if !errors.Is(err, apperr.ErrVaultNotFound) && !errors.Is(err, apperr.ErrNotVaultMember) {
			return nil, err
		}
	}

	var couple models.Couple
	err := s.db.WithContext(ctx).
		Where("member1_id = ? OR member2_id = ?", userID, userID).
		Order("created_at DESC").
		First(&couple).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrVaultNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to resolve active vault", err)
	}

	if err := s.setActiveVault(ctx, userID, couple.ID); err != nil {
		return nil, err
	}
	return &couple, nil
}

// Select switches the user's active vault pointer. The pointer is a UI
// convenience only; every operation still receives the vault explicitly.
func (s *Service) Select(ctx context.Context, userID, coupleID uint) error {
	if _, err := s.Get(ctx, coupleID, userID); err != nil {
		return err
	}
	return s.setActiveVault(ctx, userID, coupleID)
}

// End marks the relationship as ended. Either member may end it
// unilaterally; no confirmation from the other member is required. The vault
// stays readable but rejects new writes. Ending an already-ended vault is a
// no-op.
func (s *Service) End(ctx context.Context, coupleID, initiatorID uint) (*models.Couple, error) {
	couple, err := s.Get(ctx, coupleID, initiatorID)
	if err != nil {
		return nil, err
	}
	if couple.IsEnded {
		return couple, nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"is_ended":                  true,
		"ended_date":                now,
		"reactivation_requested_by": nil,
	}
	if err := s.db.WithContext(ctx).Model(couple).Updates(updates).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to end relationship", err)
	}
	couple.IsEnded = true
	couple.EndedDate = &now
	couple.ReactivationRequestedBy = nil
	return couple, nil
}

// RequestReactivation records that a member wants the ended vault back.
// Repeating the request is a no-op. A request from the member whose partner
// already asked does NOT auto-approve; they are directed to the approval
// path instead.
func (s *Service) RequestReactivation(ctx context.Context, coupleID, requesterID uint) (ReactivationStatus, error) {
	couple, err := s.Get(ctx, coupleID, requesterID)
	if err != nil {
		return "", err
	}
	if !couple.IsEnded {
		return "", apperr.ErrVaultNotEnded
	}

	if couple.ReactivationRequestedBy != nil {
		if *couple.ReactivationRequestedBy == requesterID {
			return ReactivationAlreadyRequested, nil
		}
		return ReactivationAwaitingApproval, nil
	}

	err = s.db.WithContext(ctx).Model(couple).
		Update("reactivation_requested_by", requesterID).Error
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "failed to record reactivation request", err)
	}
	couple.ReactivationRequestedBy = &requesterID
	return ReactivationRequested, nil
}

// ApproveReactivation moves the vault back to its paired state. Only the
// member who did not file the pending request may approve it.
func (s *Service) ApproveReactivation(ctx context.Context, coupleID, approverID uint) (*models.Couple, error) {
	couple, err := s.Get(ctx, coupleID, approverID)
	if err != nil {
		return nil, err
	}
	if !couple.IsEnded {
		return nil, apperr.ErrVaultNotEnded
	}
	if couple.ReactivationRequestedBy == nil {
		return nil, apperr.ErrNoReactivation
	}
	if *couple.ReactivationRequestedBy == approverID {
		return nil, apperr.ErrOwnReactivation
	}

	updates := map[string]interface{}{
		"is_ended":                  false,
		"ended_date":                nil,
		"reactivation_requested_by": nil,
	}
	if err := s.db.WithContext(ctx).Model(couple).Updates(updates).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to reactivate vault", err)
	}
	couple.IsEnded = false
	couple.EndedDate = nil
	couple.ReactivationRequestedBy = nil
	return couple, nil
}

// DeclineReactivation clears the pending request. The requester may use it
// to withdraw, the other member to decline.
func (s *Service) DeclineReactivation(ctx context.Context, coupleID, memberID uint) error {
	couple, err := s.Get(ctx, coupleID, memberID)
	if err != nil {
		return err
	}
	if !couple.IsEnded {
		return apperr.ErrVaultNotEnded
	}
	if couple.ReactivationRequestedBy == nil {
		return apperr.ErrNoReactivation
	}

	err = s.db.WithContext(ctx).Model(couple).
		Update("reactivation_requested_by", nil).Error
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to clear reactivation request", err)
	}
	return nil
}

// UpdateSettings writes couple-level settings (anniversary date).
func (s *Service) UpdateSettings(ctx context.Context, coupleID, userID uint, anniversary *time.Time) (*models.Couple, error) {
	couple, err := s.Get(ctx, coupleID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(couple).Update("anniversary_date", anniversary).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to update settings", err)
	}
	couple.AnniversaryDate = anniversary
	return couple, nil
}

// Partner returns the other member with profile preloaded, or nil when the
// vault is still solo.
func (s *Service) Partner(ctx context.Context, couple *models.Couple, userID uint) (*models.User, error) {
	partnerID := couple.PartnerID(userID)
	if partnerID == nil {
		if !couple.IncludesUser(userID) {
			return nil, apperr.ErrNotVaultMember
		}
		return nil, nil
	}

	var partner models.User
	err := s.db.WithContext(ctx).Preload("Profile").First(&partner, *partnerID).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load partner", err)
	}
	return &partner, nil
}

// RecomputeTimezone refreshes the vault's shared timezone after a member
// profile change.
func (s *Service) RecomputeTimezone(ctx context.Context, coupleID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var couple models.Couple
		if err := tx.First(&couple, coupleID).Error; err != nil {
			return err
		}
		return s.recomputeTimezone(tx, &couple)
	})
}

// recomputeTimezone applies the derivation policy: if both members' profile
// timezones agree use that zone, otherwise member1's timezone wins.
func (s *Service) recomputeTimezone(tx *gorm.DB, couple *models.Couple) error {
	var m1 models.Profile
	if err := tx.Where("user_id = ?", couple.Member1ID).First(&m1).Error; err != nil {
		return err
	}

	tz := m1.Timezone
	if tz == "" {
		tz = "UTC"
	}

	if tz == couple.Timezone {
		return nil
	}
	if err := tx.Model(couple).Update("timezone", tz).Error; err != nil {
		return err
	}
	couple.Timezone = tz
	return nil
}

func (s *Service) setActiveVault(ctx context.Context, userID, coupleID uint) error {
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("active_couple_id", coupleID).Error
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to select vault", err)
	}
	return nil
}

// generateInviteCode returns an 11-character URL-safe random token.
func generateInviteCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
