package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/AdamBeresnev/shuttle-bracket/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteServiceError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{"not authenticated", service.ErrNotAuthenticated, http.StatusUnauthorized},
		{"not organizer", service.ErrNotOrganizer, http.StatusForbidden},
		{"not found", fmt.Errorf("lookup: %w", service.ErrTournamentNotFound), http.StatusNotFound},
		{"validation", service.ErrInvalidScore, http.StatusBadRequest},
		{"precondition", service.ErrRoundNotClosed, http.StatusConflict},
		{"conflict", service.ErrConflict, http.StatusConflict},
		{"internal", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, "failed", tc.err)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestWriteServiceError_IncompleteTeams(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &service.IncompleteTeamsError{Summary: bracket.TeamSummary{Full: 2, Partial: 1, Empty: 1}}

	writeServiceError(rec, "failed", err)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "2 teams still incomplete")
	assert.NotEmpty(t, body.Details)
}
