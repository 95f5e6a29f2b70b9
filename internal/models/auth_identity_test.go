package models

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	require.NoError(t, db.AutoMigrate(&User{}, &Profile{}, &AuthIdentity{}))
	return db
}

func TestAuthIdentityUniquePerProvider(t *testing.T) {
	db := newTestDB(t)

	user := &User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(user).Error)

	require.NoError(t, db.Create(&AuthIdentity{
		UserID: user.ID, Provider: "google", Subject: "sub-1",
	}).Error)

	// The same subject from another provider is a different account.
	require.NoError(t, db.Create(&AuthIdentity{
		UserID: user.ID, Provider: "github", Subject: "sub-1",
	}).Error)

	err := db.Create(&AuthIdentity{
		UserID: user.ID, Provider: "google", Subject: "sub-1",
	}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
