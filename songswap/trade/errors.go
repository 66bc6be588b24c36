package trade

import "errors"

// Validation errors surfaced to command handlers. Anything else coming out
// of the manager is an internal failure the handler renders generically.
var (
	// ErrNotEnoughParticipants means fewer than two users are opted in.
	ErrNotEnoughParticipants = errors.New("not enough opted-in participants")

	// ErrTradeNotFound means no trade has the given name, or it belongs to
	// another server.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrTradeEnded means the trade has already reached its done phase.
	ErrTradeEnded = errors.New("trade already ended")

	// ErrWrongPhase means a song or response was submitted outside its
	// submission window.
	ErrWrongPhase = errors.New("submission window closed")
)
