package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is the identity record, created on first OAuth login.
type User struct {
	gorm.Model
	Email       string `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null"`
	Username    string `gorm:"uniqueIndex:idx_users_username_not_deleted,where:deleted_at IS NULL;not null"`
	LastLoginAt *time.Time

	// Associations
	Profile        Profile        `gorm:"constraint:OnDelete:CASCADE;"`
	AuthIdentities []AuthIdentity `gorm:"constraint:OnDelete:CASCADE;"`
	Entries        []Entry        `gorm:"constraint:OnDelete:CASCADE;"`
}

// AfterCreate creates the user's profile in the same transaction.
// Every user has exactly one profile from the moment it exists.
func (u *User) AfterCreate(tx *gorm.DB) error {
	return tx.Create(&Profile{
		UserID:                u.ID,
		Timezone:              "UTC",
		NotifyPartnerAnswered: true,
	}).Error
}

// Profile holds per-user preferences. ActiveCoupleID is a weak pointer used
// only as a UI convenience; core operations always receive the vault
// explicitly.
type Profile struct {
	gorm.Model
	UserID                uint   `gorm:"not null;uniqueIndex:idx_profiles_user_not_deleted,where:deleted_at IS NULL"`
	DisplayName           string `gorm:"size:50;not null;default:''"`
	Timezone              string `gorm:"size:50;not null;default:'UTC'"`
	NotifyPartnerAnswered bool   `gorm:"not null;default:true"`
	ActiveCoupleID        *uint
}

// DisplayNameFor returns the profile's display name, falling back to the
// user's username when unset.
func (p *Profile) DisplayNameFor(u *User) string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return u.Username
}
