package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/shuttle-bracket/internal/httputil"
	"github.com/AdamBeresnev/shuttle-bracket/internal/middleware"
	"github.com/AdamBeresnev/shuttle-bracket/internal/service"
	"github.com/AdamBeresnev/shuttle-bracket/views"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type handlers struct {
	tournaments *service.TournamentService
	brackets    *service.BracketService
	matches     *service.MatchService
	rankings    *service.RankingService
}

type tournamentResponse struct {
	*service.TournamentData
	Bracket views.BracketData `json:"bracket"`
}

type registerRequest struct {
	DisplayName string `json:"display_name"`
}

type generateRequest struct {
	AllowIncomplete bool `json:"allow_incomplete"`
}

type scoreRequest struct {
	Team1Score *int `json:"team1_score"`
	Team2Score *int `json:"team2_score"`
}

type tiersRequest struct {
	Tiers []service.TierInput `json:"tiers"`
}

// writeServiceError maps a service failure to a status code. Anything the service
// did not classify is logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, msg string, err error) {
	var incomplete *service.IncompleteTeamsError
	if errors.As(err, &incomplete) {
		httputil.Conflict(w, http.StatusUnprocessableEntity, incomplete.Error(), incomplete.Summary)
		return
	}

	switch service.KindOf(err) {
	case service.KindAuthorization:
		if errors.Is(err, service.ErrNotAuthenticated) {
			httputil.Unauthorized(w, err.Error())
			return
		}
		httputil.Forbidden(w, err.Error())
	case service.KindNotFound:
		httputil.NotFound(w, err.Error(), nil)
	case service.KindValidation:
		httputil.BadRequest(w, err.Error(), nil)
	case service.KindPrecondition, service.KindConflict:
		httputil.Conflict(w, http.StatusConflict, err.Error(), nil)
	default:
		httputil.InternalServerError(w, msg, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+what+" ID", err)
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody fills v from the request body; an empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		httputil.BadRequest(w, "Invalid request body", err)
		return false
	}
	return true
}

func (h *handlers) listTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournaments.GetTournamentsForUser(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to get tournaments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournaments)
}

func (h *handlers) createTournament(w http.ResponseWriter, r *http.Request) {
	var input service.TournamentInput
	if !decodeBody(w, r, &input) {
		return
	}
	tournament, err := h.tournaments.CreateTournament(r.Context(), input)
	if err != nil {
		writeServiceError(w, "Failed to create tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tournament)
}

func (h *handlers) getTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	data, err := h.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to get tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournamentResponse{
		TournamentData: data,
		Bracket:        views.PrepareBracketData(data.Participants, data.Matches),
	})
}

func (h *handlers) teamCompleteness(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	summary, err := h.tournaments.TeamCompleteness(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to get team completeness", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DisplayName == "" {
		if user := middleware.GetAuthenticatedUser(r.Context()); user != nil {
			req.DisplayName = user.Username
		}
	}

	participant, err := h.tournaments.RegisterParticipant(r.Context(), id, req.DisplayName)
	if err != nil {
		writeServiceError(w, "Failed to register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, participant)
}

func (h *handlers) draw(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	teamNumber, err := h.tournaments.Draw(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to draw team", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"team_number": teamNumber})
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	if err := h.tournaments.CancelTournament(r.Context(), id); err != nil {
		writeServiceError(w, "Failed to cancel tournament", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) generateFirstRound(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if v := r.URL.Query().Get("allow_incomplete"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			httputil.BadRequest(w, "Invalid allow_incomplete value", err)
			return
		}
		req.AllowIncomplete = allow
	}

	matches, err := h.brackets.GenerateFirstRound(r.Context(), id, req.AllowIncomplete)
	if err != nil {
		writeServiceError(w, "Failed to generate bracket", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, matches)
}

func (h *handlers) generateNextRound(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	matches, err := h.brackets.GenerateNextRound(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to generate next round", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, matches)
}

func (h *handlers) resetMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	if err := h.brackets.ResetAllMatches(r.Context(), id); err != nil {
		writeServiceError(w, "Failed to reset matches", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) resetTeams(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	if err := h.brackets.ResetTournamentTeams(r.Context(), id); err != nil {
		writeServiceError(w, "Failed to reset teams", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) endTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	rankings, err := h.rankings.EndTournament(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to end tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rankings)
}

func (h *handlers) setTiers(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	var req tiersRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tiers, err := h.rankings.SetAchievementTiers(r.Context(), id, req.Tiers)
	if err != nil {
		writeServiceError(w, "Failed to set achievement tiers", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tiers)
}

func (h *handlers) awardAchievements(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	achievements, err := h.rankings.AwardTournamentAchievements(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to award achievements", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, achievements)
}

func (h *handlers) revokeAchievements(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tournament")
	if !ok {
		return
	}
	revoked, err := h.rankings.RevokeAllTournamentAchievements(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to revoke achievements", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"revoked": revoked})
}

func (h *handlers) listMyAchievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.rankings.ListUserAchievements(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list achievements", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, achievements)
}

func (h *handlers) getMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "match")
	if !ok {
		return
	}
	match, err := h.matches.GetMatch(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to get match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, match)
}

func (h *handlers) updateScore(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "match")
	if !ok {
		return
	}
	var req scoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Team1Score == nil || req.Team2Score == nil {
		httputil.BadRequest(w, "Both team1_score and team2_score are required", nil)
		return
	}

	match, err := h.matches.UpdateScore(r.Context(), id, *req.Team1Score, *req.Team2Score)
	if err != nil {
		writeServiceError(w, "Failed to update score", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, match)
}

func (h *handlers) startMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "match")
	if !ok {
		return
	}
	match, err := h.matches.StartMatch(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to start match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, match)
}
