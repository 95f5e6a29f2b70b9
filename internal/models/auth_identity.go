package models

import (
	"time"

	"github.com/thevault-app/thevault/internal/crypto"
	"gorm.io/gorm"
)

var encryptor *crypto.TokenEncryptor

// InitEncryption wires the token encryptor used by AuthIdentity hooks.
// Must be called before any database operation touching AuthIdentity.
func InitEncryption(encryptionKey string) error {
	var err error
	encryptor, err = crypto.NewTokenEncryptor(encryptionKey)
	return err
}

// AuthIdentity links a user to an OAuth provider account. Tokens are stored
// encrypted at rest.
type AuthIdentity struct {
	gorm.Model
	UserID       uint   `gorm:"not null;index"`
	User         User   `gorm:"constraint:OnDelete:CASCADE;"`
	Provider     string `gorm:"size:30;not null;uniqueIndex:idx_auth_identities_provider_subject,where:deleted_at IS NULL"`
	Subject      string `gorm:"not null;uniqueIndex:idx_auth_identities_provider_subject,where:deleted_at IS NULL"`
	AccessToken  string `gorm:"type:text"`
	RefreshToken string `gorm:"type:text"`
	TokenExpiry  *time.Time
}

// BeforeSave encrypts both tokens. GCM output differs per call because of the
// random nonce, so re-saving an identity is safe.
func (a *AuthIdentity) BeforeSave(tx *gorm.DB) error {
	return a.applyTokens(func(t string) (string, error) { return encryptor.Encrypt(t) })
}

// AfterFind decrypts both tokens.
func (a *AuthIdentity) AfterFind(tx *gorm.DB) error {
	return a.applyTokens(func(t string) (string, error) { return encryptor.Decrypt(t) })
}

func (a *AuthIdentity) applyTokens(fn func(string) (string, error)) error {
	if encryptor == nil {
		// Encryption not configured (tests); store tokens as-is.
		return nil
	}
	if a.AccessToken != "" {
		out, err := fn(a.AccessToken)
		if err != nil {
			return err
		}
		a.AccessToken = out
	}
	if a.RefreshToken != "" {
		out, err := fn(a.RefreshToken)
		if err != nil {
			return err
		}
		a.RefreshToken = out
	}
	return nil
}
