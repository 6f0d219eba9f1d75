package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Ranking struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	TeamNumber   int       `db:"team_number" json:"team_number"`
	Position     int       `db:"position" json:"position"`
	Points       int       `db:"points" json:"points"`
	Wins         int       `db:"wins" json:"wins"`
	Losses       int       `db:"losses" json:"losses"`
	// Losers round of the second loss, 0 for the two finalists
	EliminatedRound int       `db:"eliminated_round" json:"eliminated_round"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type AchievementTier struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	Title        string    `db:"title" json:"title"`
	Color        string    `db:"color" json:"color"`
	Icon         string    `db:"icon" json:"icon"`
	MinPosition  int       `db:"min_position" json:"min_position"`
	MaxPosition  int       `db:"max_position" json:"max_position"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
}

func (t *AchievementTier) Covers(position int) bool {
	return position >= t.MinPosition && position <= t.MaxPosition
}

type Achievement struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	TierID       uuid.UUID `db:"tier_id" json:"tier_id"`
	TeamNumber   int       `db:"team_number" json:"team_number"`
	Position     int       `db:"position" json:"position"`
	AwardedAt    time.Time `db:"awarded_at" json:"awarded_at"`
}
