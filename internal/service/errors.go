package service

import (
	"errors"
	"fmt"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
)

type Kind int

const (
	KindInternal Kind = iota
	KindAuthorization
	KindPrecondition
	KindValidation
	KindConflict
	KindNotFound
)

// Error is a failure the caller can show to the user as is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrNotAuthenticated = &Error{KindAuthorization, "not authenticated"}
	ErrNotOrganizer     = &Error{KindAuthorization, "only the tournament organizer can do this"}

	ErrTournamentNotFound = &Error{KindNotFound, "tournament not found"}
	ErrMatchNotFound      = &Error{KindNotFound, "match not found"}

	ErrNotRegistered          = &Error{KindPrecondition, "you are not registered for this tournament"}
	ErrAlreadyRegistered      = &Error{KindPrecondition, "you are already registered for this tournament"}
	ErrRegistrationClosed     = &Error{KindPrecondition, "registration is only open while the tournament is upcoming"}
	ErrTournamentFull         = &Error{KindPrecondition, "tournament is full"}
	ErrAlreadyGenerated       = &Error{KindPrecondition, "bracket has already been generated"}
	ErrBracketNotGenerated    = &Error{KindPrecondition, "bracket has not been generated yet"}
	ErrRoundNotClosed         = &Error{KindPrecondition, "not all current round matches are complete"}
	ErrGrandFinalDecided      = &Error{KindPrecondition, "grand final already decided, nothing to generate"}
	ErrGrandFinalNotCompleted = &Error{KindPrecondition, "grand final is not completed"}
	ErrNothingToGenerate      = &Error{KindPrecondition, "nothing to generate"}
	ErrTournamentCompleted    = &Error{KindPrecondition, "tournament already completed"}
	ErrTournamentCancelled    = &Error{KindPrecondition, "tournament has been cancelled"}
	ErrTournamentNotCompleted = &Error{KindPrecondition, "tournament has not been completed yet"}
	ErrMatchNotEditable       = &Error{KindPrecondition, "match is not editable"}
	ErrIncompleteTeams        = &Error{KindPrecondition, "some teams are still incomplete"}

	ErrInvalidScore      = &Error{KindValidation, "invalid score: scores must be non-negative and not equal"}
	ErrNoTeamsToPair     = &Error{KindValidation, "at least two teams with members are needed to pair"}
	ErrNoAvailableTeam   = &Error{KindValidation, "no team has a free seat"}
	ErrInvalidTournament = &Error{KindValidation, "invalid tournament settings"}
	ErrInvalidTiers      = &Error{KindValidation, "invalid achievement tiers"}

	ErrConflict = &Error{KindConflict, "someone else changed this tournament at the same time, please try again"}
)

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// IncompleteTeamsError blocks bracket generation until the organizer confirms the override.
type IncompleteTeamsError struct {
	Summary bracket.TeamSummary
}

func (e *IncompleteTeamsError) Error() string {
	return fmt.Sprintf("%d teams still incomplete (%d partially filled, %d empty)",
		e.Summary.Incomplete(), e.Summary.Partial, e.Summary.Empty)
}

func (e *IncompleteTeamsError) Is(target error) bool {
	return target == ErrIncompleteTeams
}

// KindOf classifies err, defaulting to KindInternal for anything not raised by this package.
func KindOf(err error) Kind {
	var incomplete *IncompleteTeamsError
	if errors.As(err, &incomplete) {
		return KindPrecondition
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}
