package store

import (
	"context"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type AchievementStore struct {
	db *sqlx.DB
}

const (
	tierColumns        = `id, tournament_id, title, color, icon, min_position, max_position, display_order`
	achievementColumns = `id, user_id, tournament_id, tier_id, team_number, position, awarded_at`
)

func NewAchievementStore(db *sqlx.DB) *AchievementStore {
	return &AchievementStore{db: db}
}

func (s *AchievementStore) ext(q sqlx.ExtContext) sqlx.ExtContext {
	if q == nil {
		return s.db
	}
	return q
}

func (s *AchievementStore) CreateTiers(ctx context.Context, tx *sqlx.Tx, tiers []bracket.AchievementTier) error {
	if len(tiers) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO achievement_tiers (id, tournament_id, title, color, icon, min_position, max_position, display_order)
		VALUES (:id, :tournament_id, :title, :color, :icon, :min_position, :max_position, :display_order)`, tiers)
	return err
}

func (s *AchievementStore) GetTiers(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.AchievementTier, error) {
	q = s.ext(q)
	var tiers []bracket.AchievementTier
	err := sqlx.SelectContext(ctx, q, &tiers,
		q.Rebind("SELECT "+tierColumns+" FROM achievement_tiers WHERE tournament_id = ? ORDER BY display_order ASC"), tournamentID)
	return tiers, err
}

// DeleteTiers removes the tournament's tiers; achievements pointing at them cascade.
func (s *AchievementStore) DeleteTiers(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM achievement_tiers WHERE tournament_id = ?"), tournamentID)
	return err
}

func (s *AchievementStore) CreateAchievements(ctx context.Context, tx *sqlx.Tx, achievements []bracket.Achievement) error {
	if len(achievements) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO achievements (id, user_id, tournament_id, tier_id, team_number, position, awarded_at)
		VALUES (:id, :user_id, :tournament_id, :tier_id, :team_number, :position, :awarded_at)`, achievements)
	return err
}

// DeleteTournamentAchievements removes exactly the rows awarded by one tournament.
func (s *AchievementStore) DeleteTournamentAchievements(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) (int64, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM achievements WHERE tournament_id = ?"), tournamentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AchievementStore) GetTournamentAchievements(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Achievement, error) {
	q = s.ext(q)
	var achievements []bracket.Achievement
	err := sqlx.SelectContext(ctx, q, &achievements,
		q.Rebind("SELECT "+achievementColumns+" FROM achievements WHERE tournament_id = ? ORDER BY position ASC, user_id ASC"), tournamentID)
	return achievements, err
}

func (s *AchievementStore) GetUserAchievements(ctx context.Context, userID uuid.UUID) ([]bracket.Achievement, error) {
	var achievements []bracket.Achievement
	err := s.db.SelectContext(ctx, &achievements,
		s.db.Rebind("SELECT "+achievementColumns+" FROM achievements WHERE user_id = ? ORDER BY awarded_at DESC"), userID)
	return achievements, err
}
