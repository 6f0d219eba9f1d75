package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/AdamBeresnev/shuttle-bracket/internal/store"
	"github.com/AdamBeresnev/shuttle-bracket/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	db    *sqlx.DB
	store *store.TournamentStore
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore) *MatchService {
	return &MatchService{db: db, store: store}
}

func (s *MatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*bracket.Match, error) {
	match, err := s.store.GetMatch(ctx, nil, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// UpdateScore records a result. Completed matches can be corrected until one of their
// teams has been paired into a later round.
func (s *MatchService) UpdateScore(ctx context.Context, matchID uuid.UUID, score1, score2 int) (*bracket.Match, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if score1 < 0 || score2 < 0 || score1 == score2 {
		return nil, ErrInvalidScore
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.lockMatch(ctx, tx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if match.IsBye() || match.Team1Number == nil {
		return nil, ErrMatchNotEditable
	}

	consumed, err := s.store.TeamsPlayAfterStage(ctx, tx, match.TournamentID, match.Stage, *match.Team1Number, *match.Team2Number)
	if err != nil {
		return nil, storeError("failed to check later matches", err)
	}
	if consumed {
		return nil, ErrMatchNotEditable
	}

	match.Team1Score = utils.Ptr(score1)
	match.Team2Score = utils.Ptr(score2)
	if score1 > score2 {
		match.WinnerTeamNumber = utils.Clone(match.Team1Number)
	} else {
		match.WinnerTeamNumber = utils.Clone(match.Team2Number)
	}
	match.Status = bracket.MatchCompleted
	match.UpdatedAt = now()

	if err := s.store.UpdateMatchResult(ctx, tx, match); err != nil {
		return nil, storeError("failed to update match", err)
	}

	if err := commit(tx); err != nil {
		return nil, err
	}
	slog.Info("match scored", "match_id", match.ID, "winner", *match.WinnerTeamNumber, "score1", score1, "score2", score2)
	return match, nil
}

// StartMatch marks an upcoming match as being played.
func (s *MatchService) StartMatch(ctx context.Context, matchID uuid.UUID) (*bracket.Match, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.lockMatch(ctx, tx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if match.IsBye() || match.Status != bracket.MatchUpcoming {
		return nil, ErrMatchNotEditable
	}

	match.Status = bracket.MatchOngoing
	match.UpdatedAt = now()
	if err := s.store.UpdateMatchResult(ctx, tx, match); err != nil {
		return nil, storeError("failed to update match", err)
	}

	return commitWith(tx, match)
}

// lockMatch loads the match, locks its tournament and checks the actor may edit it.
func (s *MatchService) lockMatch(ctx context.Context, tx *sqlx.Tx, actor, matchID uuid.UUID) (*bracket.Match, error) {
	match, err := s.store.GetMatch(ctx, tx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, storeError("failed to get match", err)
	}

	tournament, err := lockTournament(ctx, tx, s.store, match.TournamentID)
	if err != nil {
		return nil, err
	}
	if err := requireOrganizer(tournament, actor); err != nil {
		return nil, err
	}
	if err := requireActive(tournament); err != nil {
		return nil, err
	}

	// Re-read under the lock; a reset may have removed the match in the meantime.
	match, err = s.store.GetMatch(ctx, tx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, storeError("failed to get match", err)
	}
	return match, nil
}
