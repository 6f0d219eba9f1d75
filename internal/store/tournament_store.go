package store

import (
	"context"
	"database/sql"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

// Reads take an optional executor so they can run inside the caller's transaction.
func (s *TournamentStore) ext(q sqlx.ExtContext) sqlx.ExtContext {
	if q == nil {
		return s.db
	}
	return q
}

const (
	selectTournamentQuery = `
		SELECT t.id, t.organizer_id, t.name, t.slug, t.max_participants, t.team_size, t.status,
			t.bracket_generated, t.revision, t.created_at,
			(SELECT COUNT(*) FROM participants p WHERE p.tournament_id = t.id) AS current_participants
		FROM tournaments t`
	selectTeamQuery = `
		SELECT t.id, t.tournament_id, t.team_number, t.is_full,
			(SELECT COUNT(*) FROM participants p WHERE p.team_id = t.id) AS member_count
		FROM teams t`
	matchColumns = `id, tournament_id, bracket, round, match_number, stage, team1_number, team2_number,
		team1_score, team2_score, winner_team_number, status, is_reset_match, created_at, updated_at`
	participantColumns = `id, tournament_id, user_id, display_name, team_id, team_number, registered_at`
	rankingColumns     = `id, tournament_id, team_number, position, points, wins, losses, eliminated_round, created_at`
)

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, organizer_id, name, slug, max_participants, team_size, status, bracket_generated)
        VALUES (:id, :organizer_id, :name, :slug, :max_participants, :team_size, :status, :bracket_generated)`, tournament)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.Tournament, error) {
	q = s.ext(q)
	var tournament bracket.Tournament
	err := sqlx.GetContext(ctx, q, &tournament, q.Rebind(selectTournamentQuery+" WHERE t.id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) GetTournamentsByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments, s.db.Rebind(selectTournamentQuery+" WHERE t.organizer_id = ? ORDER BY t.created_at DESC"), organizerID)
	return tournaments, err
}

// LockTournament bumps the revision, which serializes every engine operation on the tournament.
func (s *TournamentStore) LockTournament(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE tournaments SET revision = revision + 1 WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return checkAffected(res, sql.ErrNoRows)
}

// MarkBracketGenerated flips the bracket latch and starts the tournament. It reports false when
// another caller already generated the bracket.
func (s *TournamentStore) MarkBracketGenerated(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE tournaments SET bracket_generated = TRUE, status = ?
		WHERE id = ? AND bracket_generated = FALSE`), bracket.TournamentOngoing, id)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

// ClearBracket releases the bracket latch and puts the tournament back into registration.
func (s *TournamentStore) ClearBracket(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE tournaments SET bracket_generated = FALSE, status = ? WHERE id = ?"),
		bracket.TournamentUpcoming, id)
	return err
}

// TransitionStatus moves the tournament from one status to another, reporting false if it was not in from.
func (s *TournamentStore) TransitionStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to bracket.TournamentStatus) (bool, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE tournaments SET status = ? WHERE id = ? AND status = ?"), to, id, from)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (s *TournamentStore) CreateTeams(ctx context.Context, tx *sqlx.Tx, teams []bracket.Team) error {
	if len(teams) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO teams (id, tournament_id, team_number, is_full)
            VALUES (:id, :tournament_id, :team_number, :is_full)`, teams)
	return err
}

func (s *TournamentStore) GetTeams(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Team, error) {
	q = s.ext(q)
	var teams []bracket.Team
	err := sqlx.SelectContext(ctx, q, &teams, q.Rebind(selectTeamQuery+" WHERE t.tournament_id = ? ORDER BY t.team_number ASC"), tournamentID)
	return teams, err
}

// GetAvailableTeams lists teams that still have a free seat.
func (s *TournamentStore) GetAvailableTeams(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID, teamSize int) ([]bracket.Team, error) {
	q = s.ext(q)
	var teams []bracket.Team
	err := sqlx.SelectContext(ctx, q, &teams, q.Rebind(selectTeamQuery+`
		WHERE t.tournament_id = ? AND t.is_full = FALSE
			AND (SELECT COUNT(*) FROM participants p WHERE p.team_id = t.id) < ?
		ORDER BY t.team_number ASC`), tournamentID, teamSize)
	return teams, err
}

// ClaimTeam takes the row lock on a team that is not full yet. It reports false when the team
// filled up in the meantime.
func (s *TournamentStore) ClaimTeam(ctx context.Context, tx *sqlx.Tx, teamID uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE teams SET is_full = is_full WHERE id = ? AND is_full = FALSE"), teamID)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (s *TournamentStore) CountTeamMembers(ctx context.Context, q sqlx.ExtContext, teamID uuid.UUID) (int, error) {
	q = s.ext(q)
	var count int
	err := sqlx.GetContext(ctx, q, &count, q.Rebind("SELECT COUNT(*) FROM participants WHERE team_id = ?"), teamID)
	return count, err
}

// RefreshTeamFullness recomputes is_full from the current roster.
func (s *TournamentStore) RefreshTeamFullness(ctx context.Context, tx *sqlx.Tx, teamID uuid.UUID, teamSize int) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE teams
		SET is_full = ((SELECT COUNT(*) FROM participants p WHERE p.team_id = teams.id) >= ?)
		WHERE id = ?`), teamSize, teamID)
	return err
}

func (s *TournamentStore) DeleteTeams(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM teams WHERE tournament_id = ?"), tournamentID)
	return err
}

func (s *TournamentStore) CreateParticipant(ctx context.Context, tx *sqlx.Tx, participant *bracket.Participant) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO participants (id, tournament_id, user_id, display_name)
		VALUES (:id, :tournament_id, :user_id, :display_name)`, participant)
	return err
}

func (s *TournamentStore) GetParticipantByUser(ctx context.Context, q sqlx.ExtContext, tournamentID, userID uuid.UUID) (*bracket.Participant, error) {
	q = s.ext(q)
	var participant bracket.Participant
	err := sqlx.GetContext(ctx, q, &participant,
		q.Rebind("SELECT "+participantColumns+" FROM participants WHERE tournament_id = ? AND user_id = ?"), tournamentID, userID)
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (s *TournamentStore) GetParticipants(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	q = s.ext(q)
	var participants []bracket.Participant
	err := sqlx.SelectContext(ctx, q, &participants,
		q.Rebind("SELECT "+participantColumns+" FROM participants WHERE tournament_id = ? ORDER BY registered_at ASC, id ASC"), tournamentID)
	return participants, err
}

// AssignParticipant seats a participant on a team unless they already have one.
func (s *TournamentStore) AssignParticipant(ctx context.Context, tx *sqlx.Tx, participantID uuid.UUID, team bracket.Team) (bool, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE participants SET team_id = ?, team_number = ? WHERE id = ? AND team_id IS NULL"),
		team.ID, team.TeamNumber, participantID)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (s *TournamentStore) ClearAssignments(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE participants SET team_id = NULL, team_number = NULL WHERE tournament_id = ?"), tournamentID)
	return err
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, tournament_id, bracket, round, match_number, stage, team1_number, team2_number,
			team1_score, team2_score, winner_team_number, status, is_reset_match, created_at, updated_at)
		VALUES (:id, :tournament_id, :bracket, :round, :match_number, :stage, :team1_number, :team2_number,
			:team1_score, :team2_score, :winner_team_number, :status, :is_reset_match, :created_at, :updated_at)`, matches)
	return err
}

func (s *TournamentStore) GetMatch(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.Match, error) {
	q = s.ext(q)
	var match bracket.Match
	err := sqlx.GetContext(ctx, q, &match, q.Rebind("SELECT "+matchColumns+" FROM matches WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) GetMatches(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Match, error) {
	q = s.ext(q)
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, q, &matches,
		q.Rebind("SELECT "+matchColumns+" FROM matches WHERE tournament_id = ? ORDER BY stage ASC, bracket ASC, round ASC, match_number ASC"), tournamentID)
	return matches, err
}

func (s *TournamentStore) UpdateMatchResult(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) error {
	res, err := tx.NamedExecContext(ctx, `UPDATE matches SET
			team1_score = :team1_score,
			team2_score = :team2_score,
			winner_team_number = :winner_team_number,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id`, match)
	if err != nil {
		return err
	}
	return checkAffected(res, sql.ErrNoRows)
}

// TeamsPlayAfterStage reports whether any of the teams appears in a match created after stage.
func (s *TournamentStore) TeamsPlayAfterStage(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID, stage int, teamNumbers ...int) (bool, error) {
	if len(teamNumbers) == 0 {
		return false, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM matches
		WHERE tournament_id = ? AND stage > ? AND (team1_number IN (?) OR team2_number IN (?))`,
		tournamentID, stage, teamNumbers, teamNumbers)
	if err != nil {
		return false, err
	}
	q = s.ext(q)
	var count int
	if err := sqlx.GetContext(ctx, q, &count, q.Rebind(query), args...); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *TournamentStore) DeleteMatches(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM matches WHERE tournament_id = ?"), tournamentID)
	return err
}

func (s *TournamentStore) CreateRankings(ctx context.Context, tx *sqlx.Tx, rankings []bracket.Ranking) error {
	if len(rankings) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO rankings (id, tournament_id, team_number, position, points, wins, losses, eliminated_round, created_at)
		VALUES (:id, :tournament_id, :team_number, :position, :points, :wins, :losses, :eliminated_round, :created_at)`, rankings)
	return err
}

func (s *TournamentStore) GetRankings(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Ranking, error) {
	q = s.ext(q)
	var rankings []bracket.Ranking
	err := sqlx.SelectContext(ctx, q, &rankings,
		q.Rebind("SELECT "+rankingColumns+" FROM rankings WHERE tournament_id = ? ORDER BY position ASC"), tournamentID)
	return rankings, err
}

func (s *TournamentStore) DeleteRankings(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM rankings WHERE tournament_id = ?"), tournamentID)
	return err
}

func checkAffected(res sql.Result, notFound error) error {
	ok, err := affectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
