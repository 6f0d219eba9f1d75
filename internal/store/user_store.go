package store

import (
	"context"

	users "github.com/AdamBeresnev/shuttle-bracket/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserStore struct {
	db *sqlx.DB
}

const (
	userColumns            = "id, email, username, created_at, provider, provider_id, avatar_url"
	getUserQuery           = "SELECT " + userColumns + " FROM users WHERE id = ?"
	getUserByProviderQuery = "SELECT " + userColumns + " FROM users WHERE provider = ? AND provider_id = ?"

	// Logging in again through the same provider account refreshes the profile fields.
	upsertProviderUserQuery = `
		INSERT INTO users (id, email, username, provider, provider_id, avatar_url)
		VALUES (:id, :email, :username, :provider, :provider_id, :avatar_url)
		ON CONFLICT (provider, provider_id) DO UPDATE SET
			username = excluded.username,
			avatar_url = excluded.avatar_url
	`

	insertUserIfMissingQuery = `
		INSERT INTO users (id, email, username, provider, provider_id, avatar_url)
		VALUES (:id, :email, :username, :provider, :provider_id, :avatar_url)
		ON CONFLICT (id) DO NOTHING
	`
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var user users.User
	if err := s.db.GetContext(ctx, &user, s.db.Rebind(getUserQuery), id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByProvider(ctx context.Context, provider, providerID string) (*users.User, error) {
	var user users.User
	if err := s.db.GetContext(ctx, &user, s.db.Rebind(getUserByProviderQuery), provider, providerID); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertProviderUser stores an OAuth user keyed by (provider, provider_id) and returns the
// stored row, whose id is the existing one when the account was seen before.
func (s *UserStore) UpsertProviderUser(ctx context.Context, user *users.User) (*users.User, error) {
	if _, err := s.db.NamedExecContext(ctx, upsertProviderUserQuery, user); err != nil {
		return nil, err
	}
	return s.GetUserByProvider(ctx, *user.Provider, *user.ProviderID)
}

// EnsureUser inserts user unless a row with its id exists, then returns the stored row.
func (s *UserStore) EnsureUser(ctx context.Context, user *users.User) (*users.User, error) {
	if _, err := s.db.NamedExecContext(ctx, insertUserIfMissingQuery, user); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, user.ID)
}
