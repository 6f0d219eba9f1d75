package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/AdamBeresnev/shuttle-bracket/internal/store"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type TournamentService struct {
	db           *sqlx.DB
	store        *store.TournamentStore
	achievements *store.AchievementStore

	// pick chooses the team a draw tries to claim
	pick func([]bracket.Team) (bracket.Team, error)
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, achievements *store.AchievementStore) *TournamentService {
	return &TournamentService{db: db, store: store, achievements: achievements, pick: pickTeam}
}

type TournamentInput struct {
	Name            string `json:"name"`
	MaxParticipants int    `json:"max_participants"`
	TeamSize        int    `json:"team_size"`
}

func (in TournamentInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("tournament name is required")
	}
	if in.TeamSize != 1 && in.TeamSize != 2 {
		return validationError("team size must be 1 or 2")
	}
	if in.MaxParticipants < 2 {
		return validationError("a tournament needs room for at least 2 participants")
	}
	if in.MaxParticipants < in.TeamSize*2 {
		return validationError("a tournament needs room for at least 2 teams")
	}
	return nil
}

type TournamentData struct {
	Tournament   *bracket.Tournament       `json:"tournament"`
	Teams        []bracket.Team            `json:"teams"`
	Participants []bracket.Participant     `json:"participants"`
	Matches      []bracket.Match           `json:"matches"`
	Rankings     []bracket.Ranking         `json:"rankings"`
	Tiers        []bracket.AchievementTier `json:"tiers"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, input TournamentInput) (*bracket.Tournament, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament := bracket.Tournament{
		ID:              uuid.New(),
		OrganizerID:     actor,
		Name:            strings.TrimSpace(input.Name),
		Slug:            slug.Make(input.Name),
		MaxParticipants: input.MaxParticipants,
		TeamSize:        input.TeamSize,
		Status:          bracket.TournamentUpcoming,
	}
	if err := s.store.CreateTournament(ctx, tx, &tournament); err != nil {
		return nil, storeError("failed to create tournament", err)
	}

	if err := s.store.CreateTeams(ctx, tx, newTeams(tournament.ID, tournament.TeamCount())); err != nil {
		return nil, storeError("failed to create teams", err)
	}

	if err := commit(tx); err != nil {
		return nil, err
	}
	slog.Info("tournament created", "tournament_id", tournament.ID, "teams", tournament.TeamCount())
	return &tournament, nil
}

// newTeams numbers teams densely from 1.
func newTeams(tournamentID uuid.UUID, count int) []bracket.Team {
	teams := make([]bracket.Team, 0, count)
	for i := 1; i <= count; i++ {
		teams = append(teams, bracket.Team{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			TeamNumber:   i,
		})
	}
	return teams
}

func (s *TournamentService) RegisterParticipant(ctx context.Context, tournamentID uuid.UUID, displayName string) (*bracket.Participant, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, validationError("display name is required")
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
	if tournament.Status != bracket.TournamentUpcoming {
		return nil, ErrRegistrationClosed
	}
	if tournament.CurrentParticipants >= tournament.MaxParticipants {
		return nil, ErrTournamentFull
	}

	_, err = s.store.GetParticipantByUser(ctx, tx, tournamentID, actor)
	if err == nil {
		return nil, ErrAlreadyRegistered
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}

	participant := bracket.Participant{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		UserID:       actor,
		DisplayName:  displayName,
		RegisteredAt: now(),
	}
	if err := s.store.CreateParticipant(ctx, tx, &participant); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, storeError("failed to register participant", err)
	}

	return commitWith(tx, &participant)
}

// CancelTournament is terminal; a cancelled tournament keeps its matches for reference.
func (s *TournamentService) CancelTournament(ctx context.Context, tournamentID uuid.UUID) error {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := lockTournament(ctx, tx, s.store, tournamentID)
	if err != nil {
		return err
	}
	if err := requireOrganizer(tournament, actor); err != nil {
		return err
	}
	if err := requireActive(tournament); err != nil {
		return err
	}

	ok, err := s.store.TransitionStatus(ctx, tx, tournamentID, tournament.Status, bracket.TournamentCancelled)
	if err != nil {
		return storeError("failed to cancel tournament", err)
	}
	if !ok {
		return ErrConflict
	}

	if err := commit(tx); err != nil {
		return err
	}
	slog.Info("tournament cancelled", "tournament_id", tournamentID)
	return nil
}

// TeamCompleteness counts full, partially filled and empty teams.
func (s *TournamentService) TeamCompleteness(ctx context.Context, tournamentID uuid.UUID) (bracket.TeamSummary, error) {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return bracket.TeamSummary{}, err
	}

	teams, err := s.store.GetTeams(ctx, nil, tournamentID)
	if err != nil {
		return bracket.TeamSummary{}, fmt.Errorf("failed to get teams: %w", err)
	}
	return bracket.SummarizeTeams(teams, tournament.TeamSize), nil
}

func (s *TournamentService) GetTournamentData(ctx context.Context, tournamentID uuid.UUID) (*TournamentData, error) {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	data := &TournamentData{Tournament: tournament}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		teams, err := s.store.GetTeams(gctx, nil, tournamentID)
		data.Teams = teams
		return err
	})
	g.Go(func() error {
		participants, err := s.store.GetParticipants(gctx, nil, tournamentID)
		data.Participants = participants
		return err
	})
	g.Go(func() error {
		matches, err := s.store.GetMatches(gctx, nil, tournamentID)
		data.Matches = matches
		return err
	})
	g.Go(func() error {
		rankings, err := s.store.GetRankings(gctx, nil, tournamentID)
		data.Rankings = rankings
		return err
	})
	g.Go(func() error {
		tiers, err := s.achievements.GetTiers(gctx, nil, tournamentID)
		data.Tiers = tiers
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament data: %w", err)
	}
	return data, nil
}

func (s *TournamentService) GetTournamentsForUser(ctx context.Context) ([]bracket.Tournament, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.GetTournamentsByOrganizer(ctx, actor)
}

func (s *TournamentService) getTournament(ctx context.Context, tournamentID uuid.UUID) (*bracket.Tournament, error) {
	tournament, err := s.store.GetTournament(ctx, nil, tournamentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return tournament, nil
}
