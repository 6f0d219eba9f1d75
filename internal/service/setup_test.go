package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	appdb "github.com/AdamBeresnev/shuttle-bracket/internal/db"
	"github.com/AdamBeresnev/shuttle-bracket/internal/middleware"
	"github.com/AdamBeresnev/shuttle-bracket/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// Every new connection would open a fresh empty database
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, appdb.RunMigrations(database, "../../migrations"), "Failed to apply migrations")

	t.Cleanup(func() { database.Close() })
	return database
}

// setupFileTestDB opens a SQLite file with the same locking settings the server uses and
// several pooled connections, so transactions from different goroutines really contend.
func setupFileTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "bracket.db") +
		"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	database, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err, "Failed to open file DB")
	database.SetMaxOpenConns(8)

	require.NoError(t, appdb.RunMigrations(database, "../../migrations"), "Failed to apply migrations")

	t.Cleanup(func() { database.Close() })
	return database
}

type testEnv struct {
	db           *sqlx.DB
	tournaments  *store.TournamentStore
	achievements *store.AchievementStore

	tournamentService *TournamentService
	bracketService    *BracketService
	matchService      *MatchService
	rankingService    *RankingService

	organizer context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(setupTestDB(t))
}

// newConcurrentTestEnv is backed by a multi-connection database for tests that race writers.
func newConcurrentTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(setupFileTestDB(t))
}

func newTestEnvOn(db *sqlx.DB) *testEnv {
	tournaments := store.NewTournamentStore(db)
	achievements := store.NewAchievementStore(db)

	return &testEnv{
		db:                db,
		tournaments:       tournaments,
		achievements:      achievements,
		tournamentService: NewTournamentService(db, tournaments, achievements),
		bracketService:    NewBracketService(db, tournaments, achievements),
		matchService:      NewMatchService(db, tournaments),
		rankingService:    NewRankingService(db, tournaments, achievements),
		organizer:         asUser(uuid.New()),
	}
}

func asUser(userID uuid.UUID) context.Context {
	return context.WithValue(context.Background(), middleware.UserIDKey, userID)
}

// createTournament sets up a tournament with room for exactly teamCount teams.
func (e *testEnv) createTournament(t *testing.T, teamCount, teamSize int) *bracket.Tournament {
	t.Helper()

	tournament, err := e.tournamentService.CreateTournament(e.organizer, TournamentInput{
		Name:            fmt.Sprintf("Club Open %d", teamCount),
		MaxParticipants: teamCount * teamSize,
		TeamSize:        teamSize,
	})
	require.NoError(t, err)
	return tournament
}

// register signs up n new players and returns their contexts.
func (e *testEnv) register(t *testing.T, tournamentID uuid.UUID, n int) []context.Context {
	t.Helper()

	players := make([]context.Context, 0, n)
	for i := 0; i < n; i++ {
		ctx := asUser(uuid.New())
		_, err := e.tournamentService.RegisterParticipant(ctx, tournamentID, fmt.Sprintf("Player %d", i+1))
		require.NoError(t, err)
		players = append(players, ctx)
	}
	return players
}

// seedTournament creates a tournament and fills every team through the draw.
func (e *testEnv) seedTournament(t *testing.T, teamCount, teamSize int) *bracket.Tournament {
	t.Helper()

	tournament := e.createTournament(t, teamCount, teamSize)
	for _, ctx := range e.register(t, tournament.ID, teamCount*teamSize) {
		_, err := e.tournamentService.Draw(ctx, tournament.ID)
		require.NoError(t, err)
	}
	return tournament
}

func lowerTeamWins(m bracket.Match) int {
	return min(*m.Team1Number, *m.Team2Number)
}

// playOpenMatches scores every match that is not completed yet.
func (e *testEnv) playOpenMatches(t *testing.T, tournamentID uuid.UUID, winner func(bracket.Match) int) {
	t.Helper()

	matches, err := e.tournaments.GetMatches(context.Background(), nil, tournamentID)
	require.NoError(t, err)
	for _, m := range matches {
		if m.IsCompleted() {
			continue
		}
		score1, score2 := 21, 15
		if winner(m) == *m.Team2Number {
			score1, score2 = 15, 21
		}
		_, err := e.matchService.UpdateScore(e.organizer, m.ID, score1, score2)
		require.NoError(t, err)
	}
}

// playUntilGrandFinal advances the bracket until the first grand final has been created.
func (e *testEnv) playUntilGrandFinal(t *testing.T, tournamentID uuid.UUID, winner func(bracket.Match) int) bracket.Match {
	t.Helper()

	for i := 0; i < 20; i++ {
		e.playOpenMatches(t, tournamentID, winner)
		next, err := e.bracketService.GenerateNextRound(e.organizer, tournamentID)
		require.NoError(t, err)
		for _, m := range next {
			if m.Bracket == bracket.FinalsSide {
				return m
			}
		}
	}
	t.Fatal("grand final was never created")
	return bracket.Match{}
}

func countBy(matches []bracket.Match, side bracket.BracketSide) int {
	n := 0
	for _, m := range matches {
		if m.Bracket == side {
			n++
		}
	}
	return n
}
