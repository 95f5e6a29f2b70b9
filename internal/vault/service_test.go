package vault

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
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Couple{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		Email:    fmt.Sprintf("%s@example.com", name),
		Username: name,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCreateVault(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")

	couple, err := svc.Create(ctx, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, alice.ID, couple.Member1ID)
	assert.Nil(t, couple.Member2ID)
	assert.NotEmpty(t, couple.InviteCode)
	assert.False(t, couple.IsEnded)
	assert.Equal(t, "UTC", couple.Timezone)

	// Creating becomes the user's active vault.
	var profile models.Profile
	require.NoError(t, db.Where("user_id = ?", alice.ID).First(&profile).Error)
	require.NotNil(t, profile.ActiveCoupleID)
	assert.Equal(t, couple.ID, *profile.ActiveCoupleID)
}

func TestCreateVaultInheritsCreatorTimezone(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	require.NoError(t, db.Model(&models.Profile{}).
		Where("user_id = ?", alice.ID).
		Update("timezone", "America/New_York").Error)

	couple, err := svc.Create(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", couple.Timezone)
}

func TestJoinWithCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	couple, err := svc.Create(ctx, alice.ID)
	require.NoError(t, err)

	joined, err := svc.JoinWithCode(ctx, bob.ID, couple.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, couple.ID, joined.ID)
	require.NotNil(t, joined.Member2ID)
	assert.Equal(t, bob.ID, *joined.Member2ID)
	assert.True(t, joined.IsPaired())
}

func TestJoinWithCodeErrors(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	couple, err := svc.Create(ctx, alice.ID)
	require.NoError(t, err)

	t.Run("empty code", func(t *testing.T) {
		_, err := svc.JoinWithCode(ctx, bob.ID, "")
		assert.ErrorIs(t, err, apperr.ErrMissingInvite)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.JoinWithCode(ctx, bob.ID, "nope-nope-nope")
		assert.ErrorIs(t, err, apperr.ErrInvalidCode)
	})

	t.Run("self join", func(t *testing.T) {
		_, err := svc.JoinWithCode(ctx, alice.ID, couple.InviteCode)
		assert.ErrorIs(t, err, apperr.ErrSelfJoin)
	})

	t.Run("already paired", func(t *testing.T) {
		_, err := svc.JoinWithCode(ctx, bob.ID, couple.InviteCode)
		require.NoError(t, err)
		_, err = svc.JoinWithCode(ctx, carol.ID, couple.InviteCode)
		assert.ErrorIs(t, err, apperr.ErrAlreadyPaired)
	})
}

func TestEndRelationship(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	couple, _ := svc.Create(ctx, alice.ID)
	_, err := svc.JoinWithCode(ctx, bob.ID, couple.InviteCode)
	require.NoError(t, err)

	// Either member can end unilaterally.
	ended, err := svc.End(ctx, couple.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ended.IsEnded)
	require.NotNil(t, ended.EndedDate)

	// Ending again is a no-op, the original end date survives.
	first := *ended.EndedDate
	again, err := svc.End(ctx, couple.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Unix(), again.EndedDate.Unix())
}

func TestEndRequiresMembership(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	mallory := createUser(t, db, "mallory")
	couple, _ := svc.Create(ctx, alice.ID)

	_, err := svc.End(ctx, couple.ID, mallory.ID)
	assert.ErrorIs(t, err, apperr.ErrNotVaultMember)
}

func TestReactivationFlow(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	couple, _ := svc.Create(ctx, alice.ID)
	_, err := svc.JoinWithCode(ctx, bob.ID, couple.InviteCode)
	require.NoError(t, err)

	t.Run("request requires ended vault", func(t *testing.T) {
		_, err := svc.RequestReactivation(ctx, couple.ID, alice.ID)
		assert.ErrorIs(t, err, apperr.ErrVaultNotEnded)
	})

	_, err = svc.End(ctx, couple.ID, alice.ID)
	require.NoError(t, err)

	t.Run("approve without request", func(t *testing.T) {
		_, err := svc.ApproveReactivation(ctx, couple.ID, bob.ID)
		assert.ErrorIs(t, err, apperr.ErrNoReactivation)
	})

	status, err := svc.RequestReactivation(ctx, couple.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ReactivationRequested, status)

	t.Run("repeat request is a no-op", func(t *testing.T) {
		status, err := svc.RequestReactivation(ctx, couple.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, ReactivationAlreadyRequested, status)
	})

	t.Run("partner request does not auto-approve", func(t *testing.T) {
		status, err := svc.RequestReactivation(ctx, couple.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, ReactivationAwaitingApproval, status)
	})

	t.Run("requester cannot approve own request", func(t *testing.T) {
		_, err := svc.ApproveReactivation(ctx, couple.ID, alice.ID)
		assert.ErrorIs(t, err, apperr.ErrOwnReactivation)
	})

	reactivated, err := svc.ApproveReactivation(ctx, couple.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, reactivated.IsEnded)
	assert.Nil(t, reactivated.EndedDate)
	assert.Nil(t, reactivated.ReactivationRequestedBy)
}

func TestDeclineReactivation(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	couple, _ := svc.Create(ctx, alice.ID)
	_, err := svc.JoinWithCode(ctx, bob.ID, couple.InviteCode)
	require.NoError(t, err)
	_, err = svc.End(ctx, couple.ID, alice.ID)
	require.NoError(t, err)

	_, err = svc.RequestReactivation(ctx, couple.ID, alice.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeclineReactivation(ctx, couple.ID, bob.ID))

	// The vault stays ended and the slate is clean for a new request.
	got, err := svc.Get(ctx, couple.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.IsEnded)
	assert.Nil(t, got.ReactivationRequestedBy)

	status, err := svc.RequestReactivation(ctx, couple.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, ReactivationRequested, status)
}

func TestSelectVault(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	first, _ := svc.Create(ctx, alice.ID)
	second, _ := svc.Create(ctx, alice.ID)

	require.NoError(t, svc.Select(ctx, alice.ID, first.ID))

	var profile models.Profile
	require.NoError(t, db.Where("user_id = ?", alice.ID).First(&profile).Error)
	require.NotNil(t, profile.ActiveCoupleID)
	assert.Equal(t, first.ID, *profile.ActiveCoupleID)

	t.Run("cannot select someone else's vault", func(t *testing.T) {
		err := svc.Select(ctx, bob.ID, second.ID)
		assert.ErrorIs(t, err, apperr.ErrNotVaultMember)
	})
}

func TestVaultTimezoneFollowsMember1(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	require.NoError(t, db.Model(&models.Profile{}).
		Where("user_id = ?", alice.ID).
		Update("timezone", "Europe/Paris").Error)
	require.NoError(t, db.Model(&models.Profile{}).
		Where("user_id = ?", bob.ID).
		Update("timezone", "Asia/Tokyo").Error)

	couple, err := svc.Create(ctx, alice.ID)
	require.NoError(t, err)
	joined, err := svc.JoinWithCode(ctx, bob.ID, couple.InviteCode)
	require.NoError(t, err)

	// Disagreement resolves in member1's favor.
	assert.Equal(t, "Europe/Paris", joined.Timezone)

	require.NoError(t, db.Model(&models.Profile{}).
		Where("user_id = ?", alice.ID).
		Update("timezone", "Asia/Tokyo").Error)
	require.NoError(t, svc.RecomputeTimezone(ctx, couple.ID))

	got, err := svc.Get(ctx, couple.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", got.Timezone)
}

func TestPartner(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	couple, _ := svc.Create(ctx, alice.ID)

	partner, err := svc.Partner(ctx, couple, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, partner)

	joined, err := svc.JoinWithCode(ctx, bob.ID, couple.InviteCode)
	require.NoError(t, err)

	partner, err = svc.Partner(ctx, joined, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, partner)
	assert.Equal(t, bob.ID, partner.ID)

	partner, err = svc.Partner(ctx, joined, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, partner)
	assert.Equal(t, alice.ID, partner.ID)
}

func TestInviteCodesAreUnique(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		couple, err := svc.Create(ctx, alice.ID)
		require.NoError(t, err)
		assert.False(t, seen[couple.InviteCode])
		seen[couple.InviteCode] = true
	}
}
