package service

import (
	"context"
	"log/slog"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/AdamBeresnev/shuttle-bracket/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type RankingService struct {
	db           *sqlx.DB
	store        *store.TournamentStore
	achievements *store.AchievementStore
}

func NewRankingService(db *sqlx.DB, store *store.TournamentStore, achievements *store.AchievementStore) *RankingService {
	return &RankingService{db: db, store: store, achievements: achievements}
}

// EndTournament writes the final standings, completes the tournament and awards achievements.
// It can only succeed once.
func (s *RankingService) EndTournament(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Ranking, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := lockTournament(ctx, tx, s.store, tournamentID)
	if err != nil {
		return nil, err
	}
	if err := requireOrganizer(tournament, actor); err != nil {
		return nil, err
	}
	if err := requireActive(tournament); err != nil {
		return nil, err
	}
	if !tournament.BracketGenerated {
		return nil, ErrBracketNotGenerated
	}

	matches, err := s.store.GetMatches(ctx, tx, tournamentID)
	if err != nil {
		return nil, storeError("failed to get matches", err)
	}

	rankings, err := computeRankings(matches)
	if err != nil {
		return nil, err
	}
	ts := now()
	for i := range rankings {
		rankings[i].ID = uuid.New()
		rankings[i].TournamentID = tournamentID
		rankings[i].CreatedAt = ts
	}

	if err := s.store.CreateRankings(ctx, tx, rankings); err != nil {
		return nil, storeError("failed to save rankings", err)
	}

	completed, err := s.store.TransitionStatus(ctx, tx, tournamentID, bracket.TournamentOngoing, bracket.TournamentCompleted)
	if err != nil {
		return nil, storeError("failed to complete tournament", err)
	}
	if !completed {
		return nil, ErrConflict
	}

	awarded, err := s.award(ctx, tx, tournamentID, rankings)
	if err != nil {
		return nil, err
	}

	if err := commit(tx); err != nil {
		return nil, err
	}
	slog.Info("tournament ended", "tournament_id", tournamentID, "champion", rankings[0].TeamNumber, "achievements", len(awarded))
	return rankings, nil
}
