package domain

import "errors"

var (
	// ErrNotHydrated is returned when a transition is attempted before the
	// engine has finished loading persisted state.
	ErrNotHydrated = errors.New("session not hydrated")
	// ErrNoQuestions is returned when begin is called with an empty question list.
	ErrNoQuestions = errors.New("no questions loaded")
	// ErrNotActive is returned when submit is called outside an active attempt.
	ErrNotActive = errors.New("attempt not active")
	// ErrAttemptCompleted rejects transitions that require a retake first.
	ErrAttemptCompleted = errors.New("attempt already completed")
	// ErrSubmitPending rejects a submit while a previous one is still in flight.
	ErrSubmitPending = errors.New("submission already pending")
	// ErrQuestionNotFound indicates an answer references an unknown question ID.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a stored option key matches no current option.
	ErrOptionNotFound = errors.New("option not found")
	// ErrMissingOptionID indicates the resolved option carries no server
	// identifier and cannot be referenced in a submission. This is a data
	// contract violation, not a transient fault.
	ErrMissingOptionID = errors.New("option has no server identifier")
)
