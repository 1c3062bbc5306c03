package util

import "errors"

// Validation: structurally invalid requests.
var (
	ErrNoQuestions        = errors.New("batch contains no questions")
	ErrMissingAnswer      = errors.New("question is missing a submitted answer")
	ErrInvalidContentType = errors.New("unknown content type")
	ErrInvalidQuestion    = errors.New("invalid question definition")
)

// Conflict: attempt allocation collided with existing state.
var (
	ErrAttemptInProgress    = errors.New("an attempt is already in progress, resume or abandon it first")
	ErrAllocationContention = errors.New("attempt allocation retries exhausted")
)

// Not found: referenced entity absent or soft-deleted.
var (
	ErrTagNotFound       = errors.New("anchor tag not found")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrQuizGroupNotFound = errors.New("quiz group not found")
	ErrQuestionNotFound  = errors.New("quiz question not found")
)

// Invalid state: transition on a terminal or archived entity.
var (
	ErrAttemptTerminal = errors.New("attempt already finished")
	ErrTagArchived     = errors.New("anchor tag is archived")
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrNoQuestions) || errors.Is(err, ErrMissingAnswer) ||
		errors.Is(err, ErrInvalidContentType) || errors.Is(err, ErrInvalidQuestion)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrAttemptInProgress) || errors.Is(err, ErrAllocationContention)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrTagNotFound) || errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrQuizGroupNotFound) || errors.Is(err, ErrQuestionNotFound)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrAttemptTerminal) || errors.Is(err, ErrTagArchived)
}
