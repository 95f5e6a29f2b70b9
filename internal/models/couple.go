package models

import (
	"time"

	"gorm.io/gorm"
)

// MembershipRole identifies a user's slot within a couple. It replaces
// scattered equality checks against the two member columns.
type MembershipRole int

const (
	RoleNone MembershipRole = iota
	RoleMember1
	RoleMember2
)

// Couple pairs two users into a shared vault. Member2 stays null until a
// partner redeems the invite code. Vaults are never deleted; entries
// reference them with ON DELETE RESTRICT.
type Couple struct {
	gorm.Model
	Member1ID uint  `gorm:"not null;index"`
	Member1   User  `gorm:"foreignKey:Member1ID"`
	Member2ID *uint `gorm:"index"`
	Member2   *User `gorm:"foreignKey:Member2ID"`

	InviteCode string `gorm:"size:20;not null;uniqueIndex:idx_couples_invite_code_not_deleted,where:deleted_at IS NULL"`

	AnniversaryDate *time.Time

	IsEnded   bool `gorm:"not null;default:false;index"`
	EndedDate *time.Time

	// Set while a reactivation request from one member is pending.
	ReactivationRequestedBy *uint

	// Shared timezone used to resolve "today" for the daily prompt.
	// Derived from the members' profile timezones, member1 wins on
	// disagreement.
	Timezone string `gorm:"size:50;not null;default:'UTC'"`
}

// RoleOf returns which member slot the given user occupies, or RoleNone.
func (c *Couple) RoleOf(userID uint) MembershipRole {
	if userID == c.Member1ID {
		return RoleMember1
	}
	if c.Member2ID != nil && userID == *c.Member2ID {
		return RoleMember2
	}
	return RoleNone
}

// IncludesUser reports whether the user is one of the two members.
func (c *Couple) IncludesUser(userID uint) bool {
	return c.RoleOf(userID) != RoleNone
}

// PartnerID returns the other member's id, or nil when the user is not a
// member or no partner has joined yet.
func (c *Couple) PartnerID(userID uint) *uint {
	switch c.RoleOf(userID) {
	case RoleMember1:
		return c.Member2ID
	case RoleMember2:
		id := c.Member1ID
		return &id
	default:
		return nil
	}
}

// IsPaired reports whether both member slots are filled.
func (c *Couple) IsPaired() bool {
	return c.Member2ID != nil
}
