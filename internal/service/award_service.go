package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TierInput struct {
	Title        string `json:"title"`
	Color        string `json:"color"`
	Icon         string `json:"icon"`
	MinPosition  int    `json:"min_position"`
	MaxPosition  int    `json:"max_position"`
	DisplayOrder int    `json:"display_order"`
}

// AwardTournamentAchievements replaces the tournament's achievements with the ones its final
// standings earn. Running it again on the same standings gives the same records.
func (s *RankingService) AwardTournamentAchievements(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Achievement, error) {
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

	rankings, err := s.store.GetRankings(ctx, tx, tournamentID)
	if err != nil {
		return nil, storeError("failed to get rankings", err)
	}
	if len(rankings) == 0 {
		return nil, ErrTournamentNotCompleted
	}

	awarded, err := s.award(ctx, tx, tournamentID, rankings)
	if err != nil {
		return nil, err
	}
	return commitWith(tx, awarded)
}

// RevokeAllTournamentAchievements deletes the achievements this tournament awarded and
// returns how many there were.
func (s *RankingService) RevokeAllTournamentAchievements(ctx context.Context, tournamentID uuid.UUID) (int64, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	tournament, err := lockTournament(ctx, tx, s.store, tournamentID)
	if err != nil {
		return 0, err
	}
	if err := requireOrganizer(tournament, actor); err != nil {
		return 0, err
	}

	revoked, err := s.achievements.DeleteTournamentAchievements(ctx, tx, tournamentID)
	if err != nil {
		return 0, storeError("failed to revoke achievements", err)
	}

	if err := commit(tx); err != nil {
		return 0, err
	}
	slog.Info("achievements revoked", "tournament_id", tournamentID, "count", revoked)
	return revoked, nil
}

// SetAchievementTiers replaces the tournament's tiers. Finished tournaments are re-awarded
// against the new tiers straight away.
func (s *RankingService) SetAchievementTiers(ctx context.Context, tournamentID uuid.UUID, inputs []TierInput) ([]bracket.AchievementTier, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateTiers(inputs); err != nil {
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
	if tournament.Status == bracket.TournamentCancelled {
		return nil, ErrTournamentCancelled
	}

	if _, err := s.achievements.DeleteTournamentAchievements(ctx, tx, tournamentID); err != nil {
		return nil, storeError("failed to delete achievements", err)
	}
	if err := s.achievements.DeleteTiers(ctx, tx, tournamentID); err != nil {
		return nil, storeError("failed to delete tiers", err)
	}

	tiers := make([]bracket.AchievementTier, 0, len(inputs))
	for _, in := range inputs {
		tiers = append(tiers, bracket.AchievementTier{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Title:        strings.TrimSpace(in.Title),
			Color:        in.Color,
			Icon:         in.Icon,
			MinPosition:  in.MinPosition,
			MaxPosition:  in.MaxPosition,
			DisplayOrder: in.DisplayOrder,
		})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].DisplayOrder < tiers[j].DisplayOrder })
	if err := s.achievements.CreateTiers(ctx, tx, tiers); err != nil {
		return nil, storeError("failed to create tiers", err)
	}

	rankings, err := s.store.GetRankings(ctx, tx, tournamentID)
	if err != nil {
		return nil, storeError("failed to get rankings", err)
	}
	if len(rankings) > 0 {
		if _, err := s.award(ctx, tx, tournamentID, rankings); err != nil {
			return nil, err
		}
	}

	return commitWith(tx, tiers)
}

func (s *RankingService) ListUserAchievements(ctx context.Context) ([]bracket.Achievement, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	achievements, err := s.achievements.GetUserAchievements(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	return achievements, nil
}

// award deletes and re-creates the tournament's achievements inside tx.
func (s *RankingService) award(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, rankings []bracket.Ranking) ([]bracket.Achievement, error) {
	tiers, err := s.achievements.GetTiers(ctx, tx, tournamentID)
	if err != nil {
		return nil, storeError("failed to get tiers", err)
	}
	participants, err := s.store.GetParticipants(ctx, tx, tournamentID)
	if err != nil {
		return nil, storeError("failed to get participants", err)
	}

	positions := make(map[int]int, len(rankings))
	for _, r := range rankings {
		positions[r.TeamNumber] = r.Position
	}

	if _, err := s.achievements.DeleteTournamentAchievements(ctx, tx, tournamentID); err != nil {
		return nil, storeError("failed to clear achievements", err)
	}

	ts := now()
	var achievements []bracket.Achievement
	for _, p := range participants {
		if p.TeamNumber == nil {
			continue
		}
		position, ok := positions[*p.TeamNumber]
		if !ok {
			continue
		}
		tier := tierFor(tiers, position)
		if tier == nil {
			continue
		}
		achievements = append(achievements, bracket.Achievement{
			ID:           uuid.New(),
			UserID:       p.UserID,
			TournamentID: tournamentID,
			TierID:       tier.ID,
			TeamNumber:   *p.TeamNumber,
			Position:     position,
			AwardedAt:    ts,
		})
	}

	if err := s.achievements.CreateAchievements(ctx, tx, achievements); err != nil {
		return nil, storeError("failed to create achievements", err)
	}
	return achievements, nil
}

func validateTiers(inputs []TierInput) error {
	orders := make(map[int]bool, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.Title) == "" {
			return validationError("%s: every tier needs a title", ErrInvalidTiers)
		}
		if in.MinPosition < 1 || in.MaxPosition < in.MinPosition {
			return validationError("%s: tier %q has an invalid position range %d-%d", ErrInvalidTiers, in.Title, in.MinPosition, in.MaxPosition)
		}
		if orders[in.DisplayOrder] {
			return validationError("%s: display order %d is used twice", ErrInvalidTiers, in.DisplayOrder)
		}
		orders[in.DisplayOrder] = true
	}

	sorted := append([]TierInput(nil), inputs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinPosition < sorted[j].MinPosition })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinPosition <= sorted[i-1].MaxPosition {
			return validationError("%s: tiers %q and %q overlap", ErrInvalidTiers, sorted[i-1].Title, sorted[i].Title)
		}
	}
	return nil
}
