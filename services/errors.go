package services

import "errors"

// Shared errors used across services and the HTTP mapping layer.
var (
	ErrNotFound = errors.New("requested resource not found")

	ErrValidationFailed       = errors.New("validation failed")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrTeamListRequired       = errors.New("tournament requires a finalized team list")
	ErrBracketNotGenerated    = errors.New("tournament has no generated bracket")
	ErrBracketLocked          = errors.New("bracket cannot be regenerated after the tournament started")
	ErrPoolsNotFinished       = errors.New("pool play is not finished")
	ErrNotPoolPlay            = errors.New("tournament is not a pool play tournament")

	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")

	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTeamNotFound       = errors.New("team not found")
)
