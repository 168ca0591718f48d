package domain

import "errors"

var (
	// ErrConfigurationInvalid is returned when a start request is malformed.
	ErrConfigurationInvalid = errors.New("invalid trivia configuration")
	// ErrInvalidAnswer is returned for empty or whitespace-only answers.
	ErrInvalidAnswer = errors.New("an answer (userAnswer) is required")
	// ErrSessionNotFound is returned when no live session has the given id.
	ErrSessionNotFound = errors.New("trivia session not found")
	// ErrAlreadyComplete is returned when a question is requested past the configured total.
	ErrAlreadyComplete = errors.New("all questions have already been generated")
	// ErrSessionNotComplete is returned when results are requested before the last answer.
	ErrSessionNotComplete = errors.New("trivia session is not complete yet")
	// ErrQuestionPending is returned when a new question is requested before the current one is answered.
	ErrQuestionPending = errors.New("the current question has not been answered yet")
	// ErrNoPendingQuestion is returned when an answer is submitted with no question outstanding.
	ErrNoPendingQuestion = errors.New("there is no current question to evaluate")
	// ErrSessionBusy is returned when another operation is in flight for the same session.
	ErrSessionBusy = errors.New("another operation is in progress for this session")
	// ErrOracleUnavailable indicates the question/evaluation service call itself failed.
	ErrOracleUnavailable = errors.New("trivia oracle unavailable")
)

// ProgressError carries the session progress alongside a lifecycle error so callers can poll.
type ProgressError struct {
	Err      error
	Progress Progress
}

func (e *ProgressError) Error() string { return e.Err.Error() }

func (e *ProgressError) Unwrap() error { return e.Err }
