package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/shuttle-bracket/internal/store"
	users "github.com/AdamBeresnev/shuttle-bracket/internal/user"
	"github.com/AdamBeresnev/shuttle-bracket/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth"
)

type UserService struct {
	db    *sqlx.DB
	store *store.UserStore
}

func NewUserService(db *sqlx.DB, store *store.UserStore) *UserService {
	return &UserService{db: db, store: store}
}

// displayNameOf is what other players see in brackets, so a nickname wins over the legal name.
func displayNameOf(gothUser goth.User) string {
	if gothUser.NickName != "" {
		return gothUser.NickName
	}
	if gothUser.Name != "" {
		return gothUser.Name
	}
	return gothUser.Email
}

// FindOrCreateUserByProvider links an OAuth login to a local user, refreshing the
// name and avatar when the provider reports new ones.
func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user, err := s.store.UpsertProviderUser(ctx, &users.User{
		ID:         uuid.New(),
		Email:      gothUser.Email,
		Username:   displayNameOf(gothUser),
		Provider:   utils.Ptr(gothUser.Provider),
		ProviderID: utils.Ptr(gothUser.UserID),
		AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store %s user: %w", gothUser.Provider, err)
	}
	return user, nil
}

func (s *UserService) EnsureGuestUser(ctx context.Context) (*users.User, error) {
	user, err := s.store.EnsureUser(ctx, &users.User{
		ID:       users.GuestID,
		Email:    "guest@shuttle-bracket.local",
		Username: "Guest User",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure guest user: %w", err)
	}
	return user, nil
}
