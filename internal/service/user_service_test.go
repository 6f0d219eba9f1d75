package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/shuttle-bracket/internal/store"
	users "github.com/AdamBeresnev/shuttle-bracket/internal/user"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureGuestUser(t *testing.T) {
	db := setupTestDB(t)
	userService := NewUserService(db, store.NewUserStore(db))
	ctx := context.Background()

	guest, err := userService.EnsureGuestUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, users.GuestID, guest.ID)

	again, err := userService.EnsureGuestUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, guest.ID, again.ID)
	assert.Equal(t, "Guest User", again.Username)
}

func TestFindOrCreateUserByProvider(t *testing.T) {
	db := setupTestDB(t)
	userStore := store.NewUserStore(db)
	userService := NewUserService(db, userStore)
	ctx := context.Background()

	gothUser := goth.User{
		Provider:  "discord",
		UserID:    "4242",
		Email:     "shuttler@example.com",
		NickName:  "shuttler",
		AvatarURL: "https://cdn.example.com/a.png",
	}

	created, err := userService.FindOrCreateUserByProvider(ctx, gothUser)
	require.NoError(t, err)
	assert.Equal(t, "shuttler", created.Username)

	gothUser.NickName = "smash"
	gothUser.AvatarURL = "https://cdn.example.com/b.png"
	found, err := userService.FindOrCreateUserByProvider(ctx, gothUser)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	stored, err := userStore.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "smash", stored.Username)
	require.NotNil(t, stored.AvatarURL)
	assert.Equal(t, "https://cdn.example.com/b.png", *stored.AvatarURL)
}
