package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/google/uuid"
)

// Draw seats the current user on a random team that still has a free seat and returns its
// team number. A participant that was already drawn gets their existing team number back.
// One lost race for the last seat of a team is retried before giving up.
func (s *TournamentService) Draw(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return 0, err
	}

	teamNumber, err := s.draw(ctx, tournamentID, actor)
	if errors.Is(err, ErrConflict) {
		slog.Info("draw conflict, retrying", "tournament_id", tournamentID, "user_id", actor)
		teamNumber, err = s.draw(ctx, tournamentID, actor)
	}
	return teamNumber, err
}

func (s *TournamentService) draw(ctx context.Context, tournamentID, actor uuid.UUID) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, storeError("failed to begin draw", err)
	}
	defer tx.Rollback()

	tournament, err := lockTournament(ctx, tx, s.store, tournamentID)
	if err != nil {
		return 0, err
	}

	participant, err := s.store.GetParticipantByUser(ctx, tx, tournamentID, actor)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotRegistered
	}
	if err != nil {
		return 0, storeError("failed to get participant", err)
	}
	if participant.TeamNumber != nil {
		return *participant.TeamNumber, nil
	}

	switch tournament.Status {
	case bracket.TournamentUpcoming:
	case bracket.TournamentCancelled:
		return 0, ErrTournamentCancelled
	default:
		return 0, ErrRegistrationClosed
	}

	available, err := s.store.GetAvailableTeams(ctx, tx, tournamentID, tournament.TeamSize)
	if err != nil {
		return 0, storeError("failed to get available teams", err)
	}
	if len(available) == 0 {
		return 0, ErrNoAvailableTeam
	}

	team, err := s.pick(available)
	if err != nil {
		return 0, err
	}

	claimed, err := s.store.ClaimTeam(ctx, tx, team.ID)
	if err != nil {
		return 0, storeError("failed to claim team", err)
	}
	if !claimed {
		return 0, ErrConflict
	}

	members, err := s.store.CountTeamMembers(ctx, tx, team.ID)
	if err != nil {
		return 0, storeError("failed to count team members", err)
	}
	if members >= tournament.TeamSize {
		return 0, ErrConflict
	}

	assigned, err := s.store.AssignParticipant(ctx, tx, participant.ID, team)
	if err != nil {
		return 0, storeError("failed to assign participant", err)
	}
	if !assigned {
		return 0, ErrConflict
	}

	if err := s.store.RefreshTeamFullness(ctx, tx, team.ID, tournament.TeamSize); err != nil {
		return 0, storeError("failed to update team", err)
	}

	if err := commit(tx); err != nil {
		return 0, err
	}
	slog.Info("participant drawn", "tournament_id", tournamentID, "user_id", actor, "team_number", team.TeamNumber)
	return team.TeamNumber, nil
}

// pickTeam chooses uniformly among the given teams.
func pickTeam(teams []bracket.Team) (bracket.Team, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(teams))))
	if err != nil {
		return bracket.Team{}, fmt.Errorf("failed to read random source: %w", err)
	}
	return teams[n.Int64()], nil
}
