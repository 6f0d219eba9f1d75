package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchUpcoming  MatchStatus = "upcoming"
	MatchOngoing   MatchStatus = "ongoing"
	MatchCompleted MatchStatus = "completed"
)

type BracketSide string

const (
	WinnersSide BracketSide = "winners"
	LosersSide  BracketSide = "losers"
	FinalsSide  BracketSide = "grand_final"
)

type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`

	// Position in the tournament for reconstructing the view
	Bracket     BracketSide `db:"bracket" json:"bracket"`
	Round       int         `db:"round" json:"round"`
	MatchNumber int         `db:"match_number" json:"match_number"`
	// Advancement step that created the match, 1 for the first round
	Stage int `db:"stage" json:"stage"`

	Team1Number *int `db:"team1_number" json:"team1_number"`
	Team2Number *int `db:"team2_number" json:"team2_number"`

	Team1Score       *int        `db:"team1_score" json:"team1_score"`
	Team2Score       *int        `db:"team2_score" json:"team2_score"`
	WinnerTeamNumber *int        `db:"winner_team_number" json:"winner_team_number"`
	Status           MatchStatus `db:"status" json:"status"`
	IsResetMatch     bool        `db:"is_reset_match" json:"is_reset_match"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsBye reports whether the match only has one real team.
func (m *Match) IsBye() bool {
	return m.Team2Number == nil
}

func (m *Match) IsCompleted() bool {
	return m.Status == MatchCompleted && m.WinnerTeamNumber != nil
}

// Loser returns the losing team number of a completed, played match.
func (m *Match) Loser() (int, bool) {
	if !m.IsCompleted() || m.IsBye() || m.Team1Number == nil {
		return 0, false
	}
	if *m.WinnerTeamNumber == *m.Team1Number {
		return *m.Team2Number, true
	}
	return *m.Team1Number, true
}

func (m *Match) Winner() (int, bool) {
	if !m.IsCompleted() {
		return 0, false
	}
	return *m.WinnerTeamNumber, true
}

func (m *Match) HasTeam(teamNumber int) bool {
	return (m.Team1Number != nil && *m.Team1Number == teamNumber) ||
		(m.Team2Number != nil && *m.Team2Number == teamNumber)
}

// ScoreOf returns the points a team scored in this match.
func (m *Match) ScoreOf(teamNumber int) int {
	if m.Team1Number != nil && *m.Team1Number == teamNumber && m.Team1Score != nil {
		return *m.Team1Score
	}
	if m.Team2Number != nil && *m.Team2Number == teamNumber && m.Team2Score != nil {
		return *m.Team2Score
	}
	return 0
}
