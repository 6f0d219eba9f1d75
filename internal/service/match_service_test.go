package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateScore(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.seedTournament(t, 2, 2)
	matches, err := env.bracketService.GenerateFirstRound(env.organizer, tournament.ID, false)
	require.NoError(t, err)
	match := matches[0]

	updated, err := env.matchService.UpdateScore(env.organizer, match.ID, 18, 21)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchCompleted, updated.Status)
	assert.Equal(t, 18, *updated.Team1Score)
	assert.Equal(t, 21, *updated.Team2Score)
	assert.Equal(t, *match.Team2Number, *updated.WinnerTeamNumber)

	// Corrections are allowed until the result is used by a later round
	corrected, err := env.matchService.UpdateScore(env.organizer, match.ID, 21, 18)
	require.NoError(t, err)
	assert.Equal(t, *match.Team1Number, *corrected.WinnerTeamNumber)

	stored, err := env.matchService.GetMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, *match.Team1Number, *stored.WinnerTeamNumber)
	assert.Equal(t, 21, *stored.Team1Score)
}

func TestUpdateScore_InvalidScores(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.seedTournament(t, 2, 1)
	matches, err := env.bracketService.GenerateFirstRound(env.organizer, tournament.ID, false)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		score1 int
		score2 int
	}{
		{name: "draw", score1: 21, score2: 21},
		{name: "zero draw", score1: 0, score2: 0},
		{name: "negative first", score1: -1, score2: 21},
		{name: "negative second", score1: 21, score2: -3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.matchService.UpdateScore(env.organizer, matches[0].ID, tc.score1, tc.score2)
			assert.ErrorIs(t, err, ErrInvalidScore)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}

	stored, err := env.matchService.GetMatch(context.Background(), matches[0].ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchUpcoming, stored.Status)
	assert.Nil(t, stored.WinnerTeamNumber)
}

func TestUpdateScore_NotEditable(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.seedTournament(t, 3, 1)
	first, err := env.bracketService.GenerateFirstRound(env.organizer, tournament.ID, false)
	require.NoError(t, err)
	require.Len(t, first, 2)

	bye := first[1]
	require.True(t, bye.IsBye())
	_, err = env.matchService.UpdateScore(env.organizer, bye.ID, 21, 0)
	assert.ErrorIs(t, err, ErrMatchNotEditable)

	_, err = env.matchService.UpdateScore(asUser(uuid.New()), first[0].ID, 21, 10)
	assert.ErrorIs(t, err, ErrNotOrganizer)

	_, err = env.matchService.UpdateScore(env.organizer, uuid.New(), 21, 10)
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = env.matchService.UpdateScore(env.organizer, first[0].ID, 21, 10)
	require.NoError(t, err)
	_, err = env.bracketService.GenerateNextRound(env.organizer, tournament.ID)
	require.NoError(t, err)

	// Team 1 now plays in winners round 2, so its first round result is locked in
	_, err = env.matchService.UpdateScore(env.organizer, first[0].ID, 10, 21)
	assert.ErrorIs(t, err, ErrMatchNotEditable)
	assert.Equal(t, KindPrecondition, KindOf(err))
}

func TestStartMatch(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.seedTournament(t, 3, 1)
	first, err := env.bracketService.GenerateFirstRound(env.organizer, tournament.ID, false)
	require.NoError(t, err)

	started, err := env.matchService.StartMatch(env.organizer, first[0].ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchOngoing, started.Status)

	_, err = env.matchService.StartMatch(env.organizer, first[0].ID)
	assert.ErrorIs(t, err, ErrMatchNotEditable)

	_, err = env.matchService.StartMatch(env.organizer, first[1].ID)
	assert.ErrorIs(t, err, ErrMatchNotEditable, "byes are never played")

	_, err = env.bracketService.GenerateNextRound(env.organizer, tournament.ID)
	assert.ErrorIs(t, err, ErrRoundNotClosed, "an ongoing match keeps the round open")

	scored, err := env.matchService.UpdateScore(env.organizer, first[0].ID, 21, 11)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchCompleted, scored.Status)
}
