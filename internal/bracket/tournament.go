package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCancelled TournamentStatus = "cancelled"
)

type Tournament struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	OrganizerID      uuid.UUID        `db:"organizer_id" json:"organizer_id"`
	Name             string           `db:"name" json:"name"`
	Slug             string           `db:"slug" json:"slug"`
	MaxParticipants  int              `db:"max_participants" json:"max_participants"`
	TeamSize         int              `db:"team_size" json:"team_size"`
	Status           TournamentStatus `db:"status" json:"status"`
	BracketGenerated bool             `db:"bracket_generated" json:"bracket_generated"`
	Revision         int              `db:"revision" json:"-"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`

	// Derived from the participants table on every read
	CurrentParticipants int `db:"current_participants" json:"current_participants"`
}

func (t *Tournament) IsOrganizer(userID uuid.UUID) bool {
	return userID != uuid.Nil && t.OrganizerID == userID
}

// TeamCount is the number of teams needed to seat every registrant.
func (t *Tournament) TeamCount() int {
	if t.TeamSize <= 0 {
		return 0
	}
	return (t.MaxParticipants + t.TeamSize - 1) / t.TeamSize
}

type Team struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	TeamNumber   int       `db:"team_number" json:"team_number"`
	IsFull       bool      `db:"is_full" json:"is_full"`
	MemberCount  int       `db:"member_count" json:"member_count"`
}

type Participant struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TournamentID uuid.UUID  `db:"tournament_id" json:"tournament_id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	DisplayName  string     `db:"display_name" json:"display_name"`
	TeamID       *uuid.UUID `db:"team_id" json:"team_id,omitempty"`
	TeamNumber   *int       `db:"team_number" json:"team_number,omitempty"`
	RegisteredAt time.Time  `db:"registered_at" json:"registered_at"`
}

// TeamSummary counts teams by how many seats are taken.
type TeamSummary struct {
	Full    int `json:"full"`
	Partial int `json:"partial"`
	Empty   int `json:"empty"`
}

func (s TeamSummary) Incomplete() int {
	return s.Partial + s.Empty
}

func SummarizeTeams(teams []Team, teamSize int) TeamSummary {
	var s TeamSummary
	for _, t := range teams {
		switch {
		case t.MemberCount == 0:
			s.Empty++
		case t.MemberCount >= teamSize:
			s.Full++
		default:
			s.Partial++
		}
	}
	return s
}
