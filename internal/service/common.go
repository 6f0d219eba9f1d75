package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/AdamBeresnev/shuttle-bracket/internal/middleware"
	"github.com/AdamBeresnev/shuttle-bracket/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func actorFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrNotAuthenticated
	}
	return userID, nil
}

// lockTournament bumps the tournament revision and reads it back inside tx, so every
// check that follows sees the state this transaction is going to write over.
func lockTournament(ctx context.Context, tx *sqlx.Tx, tournaments *store.TournamentStore, id uuid.UUID) (*bracket.Tournament, error) {
	if err := tournaments.LockTournament(ctx, tx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, storeError("failed to lock tournament", err)
	}

	tournament, err := tournaments.GetTournament(ctx, tx, id)
	if err != nil {
		return nil, storeError("failed to get tournament", err)
	}
	return tournament, nil
}

func requireOrganizer(tournament *bracket.Tournament, actor uuid.UUID) error {
	if !tournament.IsOrganizer(actor) {
		return ErrNotOrganizer
	}
	return nil
}

// requireActive rejects tournaments that reached a terminal status.
func requireActive(tournament *bracket.Tournament) error {
	switch tournament.Status {
	case bracket.TournamentCompleted:
		return ErrTournamentCompleted
	case bracket.TournamentCancelled:
		return ErrTournamentCancelled
	}
	return nil
}

// storeError turns errors caused by a concurrent writer into ErrConflict and wraps the rest.
func storeError(msg string, err error) error {
	if store.IsConflict(err) {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func commit(tx *sqlx.Tx) error {
	if err := tx.Commit(); err != nil {
		return storeError("failed to commit", err)
	}
	return nil
}

// commitWith commits tx and hands back v only when the commit went through.
func commitWith[T any](tx *sqlx.Tx, v T) (T, error) {
	if err := commit(tx); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func now() time.Time {
	return time.Now().UTC()
}
