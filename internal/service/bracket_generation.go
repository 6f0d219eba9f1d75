package service

import (
	"context"
	"log/slog"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/AdamBeresnev/shuttle-bracket/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BracketService struct {
	db           *sqlx.DB
	store        *store.TournamentStore
	achievements *store.AchievementStore
}

func NewBracketService(db *sqlx.DB, store *store.TournamentStore, achievements *store.AchievementStore) *BracketService {
	return &BracketService{db: db, store: store, achievements: achievements}
}

// seedableTeams returns the numbers of teams with at least one member, in team number order.
// Empty teams forfeit and are left out of the bracket.
func seedableTeams(teams []bracket.Team) []int {
	seeds := make([]int, 0, len(teams))
	for _, t := range teams {
		if t.MemberCount > 0 {
			seeds = append(seeds, t.TeamNumber)
		}
	}
	return seeds
}

// GenerateFirstRound creates winners bracket round 1 and starts the tournament. Unless
// allowIncomplete is set, any partial or empty team blocks generation with an
// IncompleteTeamsError so the organizer can decide whether to go ahead.
func (s *BracketService) GenerateFirstRound(ctx context.Context, tournamentID uuid.UUID, allowIncomplete bool) ([]bracket.Match, error) {
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
	if tournament.BracketGenerated {
		return nil, ErrAlreadyGenerated
	}

	teams, err := s.store.GetTeams(ctx, tx, tournamentID)
	if err != nil {
		return nil, storeError("failed to get teams", err)
	}
	seeds := seedableTeams(teams)
	if len(seeds) < 2 {
		return nil, ErrNoTeamsToPair
	}
	if summary := bracket.SummarizeTeams(teams, tournament.TeamSize); summary.Incomplete() > 0 && !allowIncomplete {
		return nil, &IncompleteTeamsError{Summary: summary}
	}

	matches := pairRound(bracket.WinnersSide, 1, seeds, nil)
	stampMatches(matches, tournamentID, 1)

	// The latch is the compare-and-swap that keeps two generators from both succeeding.
	generated, err := s.store.MarkBracketGenerated(ctx, tx, tournamentID)
	if err != nil {
		return nil, storeError("failed to mark bracket generated", err)
	}
	if !generated {
		return nil, ErrAlreadyGenerated
	}

	if err := s.store.CreateMatches(ctx, tx, matches); err != nil {
		return nil, storeError("failed to create matches", err)
	}

	if err := commit(tx); err != nil {
		return nil, err
	}
	slog.Info("first round generated", "tournament_id", tournamentID, "teams", len(seeds), "matches", len(matches))
	return matches, nil
}

// GenerateNextRound advances every bracket once the current rounds are closed.
func (s *BracketService) GenerateNextRound(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
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

	existing, err := s.store.GetMatches(ctx, tx, tournamentID)
	if err != nil {
		return nil, storeError("failed to get matches", err)
	}

	next, err := planNextRound(existing)
	if err != nil {
		return nil, err
	}
	stampMatches(next, tournamentID, maxStage(existing)+1)

	if err := s.store.CreateMatches(ctx, tx, next); err != nil {
		return nil, storeError("failed to create matches", err)
	}

	if err := commit(tx); err != nil {
		return nil, err
	}
	slog.Info("next round generated", "tournament_id", tournamentID, "matches", len(next))
	return next, nil
}

// ResetAllMatches throws the bracket away and reopens the tournament for registration.
// Teams and draws are kept.
func (s *BracketService) ResetAllMatches(ctx context.Context, tournamentID uuid.UUID) error {
	return s.reset(ctx, tournamentID, false)
}

// ResetTournamentTeams does what ResetAllMatches does and also recreates the teams,
// leaving every participant unassigned.
func (s *BracketService) ResetTournamentTeams(ctx context.Context, tournamentID uuid.UUID) error {
	return s.reset(ctx, tournamentID, true)
}

func (s *BracketService) reset(ctx context.Context, tournamentID uuid.UUID, teams bool) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := lockTournament(ctx, tx, s.store, tournamentID)
	if err != nil {
		return err
	}
	if err := requireOrganizer(tournament, actor); err != nil {
		return err
	}
	if err := requireActive(tournament); err != nil {
		return err
	}

	if _, err := s.achievements.DeleteTournamentAchievements(ctx, tx, tournamentID); err != nil {
		return storeError("failed to delete achievements", err)
	}
	if err := s.store.DeleteRankings(ctx, tx, tournamentID); err != nil {
		return storeError("failed to delete rankings", err)
	}
	if err := s.store.DeleteMatches(ctx, tx, tournamentID); err != nil {
		return storeError("failed to delete matches", err)
	}
	if err := s.store.ClearBracket(ctx, tx, tournamentID); err != nil {
		return storeError("failed to clear bracket", err)
	}

	if teams {
		if err := s.store.ClearAssignments(ctx, tx, tournamentID); err != nil {
			return storeError("failed to clear team assignments", err)
		}
		if err := s.store.DeleteTeams(ctx, tx, tournamentID); err != nil {
			return storeError("failed to delete teams", err)
		}
		if err := s.store.CreateTeams(ctx, tx, newTeams(tournamentID, tournament.TeamCount())); err != nil {
			return storeError("failed to recreate teams", err)
		}
	}

	if err := commit(tx); err != nil {
		return err
	}
	slog.Info("tournament reset", "tournament_id", tournamentID, "teams", teams)
	return nil
}

func stampMatches(matches []bracket.Match, tournamentID uuid.UUID, stage int) {
	ts := now()
	for i := range matches {
		matches[i].ID = uuid.New()
		matches[i].TournamentID = tournamentID
		matches[i].Stage = stage
		matches[i].CreatedAt = ts
		matches[i].UpdatedAt = ts
	}
}

func maxStage(matches []bracket.Match) int {
	stage := 0
	for _, m := range matches {
		stage = max(stage, m.Stage)
	}
	return stage
}
