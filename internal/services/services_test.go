package services

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewProfileFor(t *testing.T) {
	tests := []struct {
		name         string
		identity     models.Identity
		wantUsername string
		wantFullName string
		wantCredits  int
	}{
		{
			name: "metadata user_name and full_name",
			identity: models.Identity{ID: "u1", Email: "a@b.c", Metadata: map[string]any{
				"user_name": "mrclick", "full_name": "Mister Click",
			}},
			wantUsername: "mrclick",
			wantFullName: "Mister Click",
			wantCredits:  models.UserInitialCredits,
		},
		{
			name: "fallback keys",
			identity: models.Identity{ID: "u2", Metadata: map[string]any{
				"preferred_username": "pref", "name": "Named",
			}},
			wantUsername: "pref",
			wantFullName: "Named",
			wantCredits:  models.UserInitialCredits,
		},
		{
			name:         "beta role",
			identity:     models.Identity{ID: "u3", Role: models.RoleBeta, Metadata: map[string]any{"user_name": "b"}},
			wantUsername: "b",
			wantFullName: "Creator",
			wantCredits:  models.BetaInitialCredits,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProfileFor(tt.identity)
			assert.Equal(t, tt.identity.ID, p.ID)
			assert.Equal(t, tt.wantUsername, p.Username)
			assert.Equal(t, tt.wantFullName, p.FullName)
			assert.Equal(t, tt.wantCredits, p.Credits)
			assert.Equal(t, models.PlanFree, p.Plan)
			assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed="+tt.wantUsername, p.AvatarURL)
		})
	}
}

func TestNewProfileFor_RandomUsername(t *testing.T) {
	p := NewProfileFor(models.Identity{ID: "u"})
	assert.True(t, strings.HasPrefix(p.Username, "user_"))
	assert.Equal(t, "Creator", p.FullName)
	assert.Equal(t, models.RoleUser, p.Role)
	assert.Equal(t, 50, p.Credits)
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "mrclick", NormalizeUsername("  MrClick "))
	assert.Equal(t, "", NormalizeUsername("   "))
}

func TestGuestStore(t *testing.T) {
	ctx := context.Background()
	store := NewGuestStore()

	guest, err := store.GetOrCreateProfile(ctx, models.Identity{ID: models.GuestUserID})
	require.NoError(t, err)
	assert.Equal(t, "Creator Guest", guest.FullName)
	assert.Equal(t, "guest_creator", guest.Username)
	assert.Equal(t, 50, guest.Credits)

	assert.True(t, store.IsUsernameTaken(ctx, "Guest_Creator"))
	assert.False(t, store.IsUsernameTaken(ctx, "someone"))

	remaining, err := store.Deduct(ctx, models.GuestUserID)
	require.NoError(t, err)
	assert.Equal(t, 49, remaining)

	balance, err := store.AddCredits(ctx, models.GuestUserID, 10)
	require.NoError(t, err)
	assert.Equal(t, 59, balance)

	_, err = store.Balance(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGuestStore_DeductFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := NewGuestStore()
	_, err := store.AddCredits(ctx, models.GuestUserID, -1000)
	require.NoError(t, err)

	remaining, err := store.Deduct(ctx, models.GuestUserID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestGuestStore_UnlimitedRoleNotCharged(t *testing.T) {
	ctx := context.Background()
	store := NewGuestStore()
	_, err := store.GetOrCreateProfile(ctx, models.Identity{ID: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)

	remaining, err := store.Deduct(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.AdminInitialCredits, remaining)
}

func TestGuestStore_UnlimitedBalanceAtZero(t *testing.T) {
	ctx := context.Background()
	store := NewGuestStore()
	_, err := store.GetOrCreateProfile(ctx, models.Identity{ID: "beta", Role: models.RoleBeta})
	require.NoError(t, err)
	_, err = store.AddCredits(ctx, "beta", -models.BetaInitialCredits)
	require.NoError(t, err)

	balance, err := store.Balance(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, models.CreditBalance{Credits: 0, Unlimited: true}, balance)
	assert.True(t, balance.CanAfford())

	guest, err := store.Balance(ctx, models.GuestUserID)
	require.NoError(t, err)
	assert.False(t, guest.Unlimited)
}

func TestCreditBalance_CanAfford(t *testing.T) {
	assert.True(t, models.CreditBalance{Credits: 1}.CanAfford())
	assert.False(t, models.CreditBalance{Credits: 0}.CanAfford())
	assert.True(t, models.CreditBalance{Credits: 0, Unlimited: true}.CanAfford())
}

func TestGuestStore_Thumbnails(t *testing.T) {
	ctx := context.Background()
	store := NewGuestStore()

	err := store.SaveThumbnails(ctx, "u", []models.ThumbnailVariation{
		{ImageData: "data:1", SourcePrompt: "p", Style: "s", Title: "first"},
		{ImageData: "data:2", SourcePrompt: "p", Style: "s", Title: "second"},
	})
	require.NoError(t, err)

	rows, err := store.ListThumbnails(ctx, "u", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "second", rows[0].Title)
	assert.Equal(t, "data:2", rows[0].URL)

	rows, err = store.ListThumbnails(ctx, "other", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// openTestDB connects to TEST_DATABASE_URL or skips
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Profile{}, &models.Thumbnail{}))
	return db
}

func TestDBStore_Integration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewDBStore(db)

	id := uuid.New().String()
	username := "it_" + id[:8]
	identity := models.Identity{ID: id, Email: "it@example.com", Metadata: map[string]any{"user_name": username}}
	t.Cleanup(func() {
		db.Where("user_id = ?", id).Delete(&models.Thumbnail{})
		db.Where("id = ?", id).Delete(&models.Profile{})
	})

	first, err := store.GetOrCreateProfile(ctx, identity)
	require.NoError(t, err)
	again, err := store.GetOrCreateProfile(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, username, again.Username)
	assert.Equal(t, models.UserInitialCredits, again.Credits)

	assert.True(t, store.IsUsernameTaken(ctx, strings.ToUpper(username)))

	remaining, err := store.Deduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.UserInitialCredits-1, remaining)

	balance, err := store.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.CreditBalance{Credits: remaining}, balance)

	require.NoError(t, store.SaveThumbnails(ctx, id, []models.ThumbnailVariation{{ImageData: "data:x", Title: "t"}}))
	rows, err := store.ListThumbnails(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t", rows[0].Title)
}
