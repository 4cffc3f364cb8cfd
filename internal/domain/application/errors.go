package application

import "errors"

var (
	ErrApplicationNotFound  = errors.New("application not found")
	ErrApplicationExists    = errors.New("candidate already applied to this vacancy period")
	ErrHistoryEntryNotFound = errors.New("history entry not found")

	// Transition engine
	ErrInvalidTransition  = errors.New("invalid stage transition")
	ErrInconsistentState  = errors.New("inconsistent application state")
	ErrAlreadySuperseded  = errors.New("history entry already superseded")
	ErrTransactionMissing = errors.New("operation requires an active transaction")
)
