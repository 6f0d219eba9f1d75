package service

import (
	"fmt"
	"testing"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/AdamBeresnev/shuttle-bracket/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairing is a compact form of a match for fixtures: team2 0 means a bye.
type pairing struct {
	side   bracket.BracketSide
	round  int
	number int
	team1  int
	team2  int
}

func pairingsOf(matches []bracket.Match) []pairing {
	out := make([]pairing, 0, len(matches))
	for _, m := range matches {
		out = append(out, pairing{
			side:   m.Bracket,
			round:  m.Round,
			number: m.MatchNumber,
			team1:  utils.OrZero(m.Team1Number),
			team2:  utils.OrZero(m.Team2Number),
		})
	}
	return out
}

func seq(n int) []int {
	teams := make([]int, n)
	for i := range teams {
		teams[i] = i + 1
	}
	return teams
}

func complete(matches []bracket.Match, winner func(bracket.Match) int) {
	for i := range matches {
		m := &matches[i]
		if m.IsCompleted() {
			continue
		}
		w := winner(*m)
		m.WinnerTeamNumber = utils.Ptr(w)
		if w == *m.Team1Number {
			m.Team1Score, m.Team2Score = utils.Ptr(21), utils.Ptr(10)
		} else {
			m.Team1Score, m.Team2Score = utils.Ptr(10), utils.Ptr(21)
		}
		m.Status = bracket.MatchCompleted
	}
}

// simulate runs a whole bracket in memory and returns the matches created by every stage.
func simulate(t *testing.T, teams int, winner func(bracket.Match) int) [][]bracket.Match {
	t.Helper()

	first := pairRound(bracket.WinnersSide, 1, seq(teams), nil)
	complete(first, winner)
	stages := [][]bracket.Match{first}
	all := append([]bracket.Match(nil), first...)

	for i, n := 0, 4*teams; i < n; i++ {
		next, err := planNextRound(all)
		if err == ErrGrandFinalDecided {
			return stages
		}
		require.NoError(t, err)
		complete(next, winner)
		stages = append(stages, next)
		all = append(all, next...)
	}
	t.Fatalf("bracket with %d teams did not finish", teams)
	return nil
}

func TestPairRound(t *testing.T) {
	testCases := []struct {
		name     string
		entrants []int
		hadBye   map[int]bool
		expected []pairing
	}{
		{
			name:     "even count pairs adjacent teams",
			entrants: []int{1, 2, 3, 4},
			expected: []pairing{
				{bracket.WinnersSide, 1, 1, 1, 2},
				{bracket.WinnersSide, 1, 2, 3, 4},
			},
		},
		{
			name:     "odd count gives the last team a bye",
			entrants: []int{1, 2, 3, 4, 5},
			expected: []pairing{
				{bracket.WinnersSide, 1, 1, 1, 2},
				{bracket.WinnersSide, 1, 2, 3, 4},
				{bracket.WinnersSide, 1, 3, 5, 0},
			},
		},
		{
			name:     "bye skips a team that already had one",
			entrants: []int{1, 3, 5},
			hadBye:   map[int]bool{5: true},
			expected: []pairing{
				{bracket.WinnersSide, 1, 1, 1, 5},
				{bracket.WinnersSide, 1, 2, 3, 0},
			},
		},
		{
			name:     "falls back to the last team when everyone had a bye",
			entrants: []int{2, 4, 6},
			hadBye:   map[int]bool{2: true, 4: true, 6: true},
			expected: []pairing{
				{bracket.WinnersSide, 1, 1, 2, 4},
				{bracket.WinnersSide, 1, 2, 6, 0},
			},
		},
		{
			name:     "single team only gets a bye",
			entrants: []int{7},
			expected: []pairing{
				{bracket.WinnersSide, 1, 1, 7, 0},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			matches := pairRound(bracket.WinnersSide, 1, tc.entrants, tc.hadBye)
			assert.Equal(t, tc.expected, pairingsOf(matches))

			for _, m := range matches {
				if m.IsBye() {
					assert.Equal(t, bracket.MatchCompleted, m.Status)
					assert.Equal(t, *m.Team1Number, *m.WinnerTeamNumber)
				} else {
					assert.Equal(t, bracket.MatchUpcoming, m.Status)
					assert.Nil(t, m.WinnerTeamNumber)
				}
			}
		})
	}
}

func TestPlanNextRound_FirstRoundCounts(t *testing.T) {
	for n := 2; n <= 16; n++ {
		t.Run(fmt.Sprintf("%d teams", n), func(t *testing.T) {
			matches := pairRound(bracket.WinnersSide, 1, seq(n), nil)
			assert.Len(t, matches, (n+1)/2)

			byes := 0
			for _, m := range matches {
				if m.IsBye() {
					byes++
				}
			}
			assert.Equal(t, n%2, byes)
		})
	}
}

// The losers bracket rule pinned by these fixtures: winners bracket losers wait until the
// losers bracket has no more survivors than drop-ins, then survivor i meets drop-in i in
// bracket order. Surplus drop-ins play each other.
func TestPlanNextRound_Fixtures(t *testing.T) {
	W, L, GF := bracket.WinnersSide, bracket.LosersSide, bracket.FinalsSide

	testCases := []struct {
		name   string
		teams  int
		stages [][]pairing
	}{
		{
			name:  "2 teams",
			teams: 2,
			stages: [][]pairing{
				{{W, 1, 1, 1, 2}},
				{{GF, 1, 1, 1, 2}},
			},
		},
		{
			name:  "3 teams",
			teams: 3,
			stages: [][]pairing{
				{{W, 1, 1, 1, 2}, {W, 1, 2, 3, 0}},
				{{W, 2, 1, 1, 3}},
				{{L, 1, 1, 2, 3}},
				{{GF, 1, 1, 1, 2}},
			},
		},
		{
			name:  "4 teams",
			teams: 4,
			stages: [][]pairing{
				{{W, 1, 1, 1, 2}, {W, 1, 2, 3, 4}},
				{{W, 2, 1, 1, 3}, {L, 1, 1, 2, 4}},
				{{L, 2, 1, 2, 3}},
				{{GF, 1, 1, 1, 2}},
			},
		},
		{
			name:  "5 teams",
			teams: 5,
			stages: [][]pairing{
				{{W, 1, 1, 1, 2}, {W, 1, 2, 3, 4}, {W, 1, 3, 5, 0}},
				{{W, 2, 1, 1, 5}, {W, 2, 2, 3, 0}, {L, 1, 1, 2, 4}},
				{{W, 3, 1, 1, 3}, {L, 2, 1, 2, 5}},
				{{L, 3, 1, 2, 3}},
				{{GF, 1, 1, 1, 2}},
			},
		},
		{
			name:  "6 teams",
			teams: 6,
			stages: [][]pairing{
				{{W, 1, 1, 1, 2}, {W, 1, 2, 3, 4}, {W, 1, 3, 5, 6}},
				{{W, 2, 1, 1, 3}, {W, 2, 2, 5, 0}, {L, 1, 1, 2, 4}, {L, 1, 2, 6, 0}},
				{{W, 3, 1, 1, 5}, {L, 2, 1, 2, 6}},
				{{L, 3, 1, 2, 3}, {L, 3, 2, 5, 0}},
				{{L, 4, 1, 2, 5}},
				{{GF, 1, 1, 1, 2}},
			},
		},
		{
			name:  "8 teams",
			teams: 8,
			stages: [][]pairing{
				{{W, 1, 1, 1, 2}, {W, 1, 2, 3, 4}, {W, 1, 3, 5, 6}, {W, 1, 4, 7, 8}},
				{{W, 2, 1, 1, 3}, {W, 2, 2, 5, 7}, {L, 1, 1, 2, 4}, {L, 1, 2, 6, 8}},
				{{W, 3, 1, 1, 5}, {L, 2, 1, 2, 3}, {L, 2, 2, 6, 7}},
				{{L, 3, 1, 2, 6}},
				{{L, 4, 1, 2, 5}},
				{{GF, 1, 1, 1, 2}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stages := simulate(t, tc.teams, lowerTeamWins)
			require.Len(t, stages, len(tc.stages))
			for i, expected := range tc.stages {
				assert.Equal(t, expected, pairingsOf(stages[i]), "stage %d", i+1)
			}
		})
	}
}

func TestPlanNextRound_EveryTeamButTheChampionLosesTwice(t *testing.T) {
	for n := 2; n <= 17; n++ {
		t.Run(fmt.Sprintf("%d teams", n), func(t *testing.T) {
			// Higher numbers win so the byes and drop-ins differ from the fixtures above
			stages := simulate(t, n, func(m bracket.Match) int { return max(*m.Team1Number, *m.Team2Number) })

			var all []bracket.Match
			for _, s := range stages {
				all = append(all, s...)
			}

			losses := make(map[int]int)
			var grandFinals []bracket.Match
			for _, m := range all {
				if loser, ok := m.Loser(); ok {
					losses[loser]++
				}
				if m.Bracket == bracket.FinalsSide {
					grandFinals = append(grandFinals, m)
				}
			}

			require.Len(t, grandFinals, 1, "exactly one grand final when the winners bracket champion wins it")
			runnerUp, ok := grandFinals[0].Loser()
			require.True(t, ok)

			// The runner-up lost once in the winners bracket and once in the grand final
			assert.Equal(t, 2, losses[runnerUp], "runner-up %d", runnerUp)
			assert.Equal(t, 0, losses[n], "the top team never loses")
			for team := 1; team < n; team++ {
				assert.Equal(t, 2, losses[team], "team %d", team)
			}

			rankings, err := computeRankings(all)
			require.NoError(t, err)
			assert.Len(t, rankings, n)
		})
	}
}

func TestPlanNextRound_RoundNotClosed(t *testing.T) {
	matches := pairRound(bracket.WinnersSide, 1, seq(4), nil)
	complete(matches[:1], lowerTeamWins)

	_, err := planNextRound(matches)
	assert.ErrorIs(t, err, ErrRoundNotClosed)
}

func TestPlanNextRound_NoMatches(t *testing.T) {
	_, err := planNextRound(nil)
	assert.ErrorIs(t, err, ErrBracketNotGenerated)
}

func TestPlanNextRound_GrandFinal(t *testing.T) {
	grandFinal := func(winner int) []bracket.Match {
		gf := newPairing(bracket.FinalsSide, 1, 1, 1, utils.Ptr(2))
		gf.Team1Score, gf.Team2Score = utils.Ptr(15), utils.Ptr(21)
		if winner == 1 {
			gf.Team1Score, gf.Team2Score = utils.Ptr(21), utils.Ptr(15)
		}
		gf.WinnerTeamNumber = utils.Ptr(winner)
		gf.Status = bracket.MatchCompleted
		return []bracket.Match{gf}
	}

	t.Run("winners bracket champion wins, nothing left", func(t *testing.T) {
		_, err := planNextRound(grandFinal(1))
		assert.ErrorIs(t, err, ErrGrandFinalDecided)
	})

	t.Run("losers bracket representative wins, reset match", func(t *testing.T) {
		matches := grandFinal(2)
		next, err := planNextRound(matches)
		require.NoError(t, err)
		require.Len(t, next, 1)

		reset := next[0]
		assert.True(t, reset.IsResetMatch)
		assert.Equal(t, bracket.FinalsSide, reset.Bracket)
		assert.Equal(t, 2, reset.Round)
		assert.Equal(t, 1, *reset.Team1Number)
		assert.Equal(t, 2, *reset.Team2Number)

		complete(next, lowerTeamWins)
		_, err = planNextRound(append(matches, next...))
		assert.ErrorIs(t, err, ErrGrandFinalDecided)
	})
}
