package http

import (
	"errors"
	"net/http"

	"trivia-service/internal/domain"
)

// ErrCode identifies an error class in API responses.
type ErrCode string

const (
	ErrValidation         ErrCode = "VALIDATION_ERROR"
	ErrInvalidConfig      ErrCode = "INVALID_CONFIGURATION"
	ErrInvalidAnswer      ErrCode = "INVALID_ANSWER"
	ErrSessionNotFound    ErrCode = "SESSION_NOT_FOUND"
	ErrAlreadyComplete    ErrCode = "ALREADY_COMPLETE"
	ErrSessionNotComplete ErrCode = "SESSION_NOT_COMPLETE"
	ErrQuestionPending    ErrCode = "QUESTION_PENDING"
	ErrNoPendingQuestion  ErrCode = "NO_PENDING_QUESTION"
	ErrSessionBusy        ErrCode = "SESSION_BUSY"
	ErrOracleUnavailable  ErrCode = "ORACLE_UNAVAILABLE"
	ErrUnsupportedMessage ErrCode = "UNSUPPORTED_MESSAGE"
	ErrInternal           ErrCode = "INTERNAL_ERROR"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error    string            `json:"error"`
	Code     ErrCode           `json:"code"`
	Progress *domain.Progress  `json:"progress,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

var errorTable = []struct {
	target error
	status int
	code   ErrCode
}{
	{domain.ErrConfigurationInvalid, http.StatusBadRequest, ErrInvalidConfig},
	{domain.ErrInvalidAnswer, http.StatusBadRequest, ErrInvalidAnswer},
	{domain.ErrAlreadyComplete, http.StatusBadRequest, ErrAlreadyComplete},
	{domain.ErrSessionNotComplete, http.StatusBadRequest, ErrSessionNotComplete},
	{domain.ErrQuestionPending, http.StatusBadRequest, ErrQuestionPending},
	{domain.ErrNoPendingQuestion, http.StatusBadRequest, ErrNoPendingQuestion},
	{domain.ErrSessionNotFound, http.StatusNotFound, ErrSessionNotFound},
	{domain.ErrSessionBusy, http.StatusConflict, ErrSessionBusy},
	{domain.ErrOracleUnavailable, http.StatusInternalServerError, ErrOracleUnavailable},
}

// classify maps err to a status code and response body.
func classify(err error) (int, errorBody) {
	for _, m := range errorTable {
		if !errors.Is(err, m.target) {
			continue
		}
		body := errorBody{Error: err.Error(), Code: m.code}
		var perr *domain.ProgressError
		if errors.As(err, &perr) {
			p := perr.Progress
			body.Progress = &p
		}
		return m.status, body
	}
	return http.StatusInternalServerError, errorBody{Error: "internal server error", Code: ErrInternal}
}

func validationBody(fields map[string]string) errorBody {
	return errorBody{Error: "validation failed", Code: ErrValidation, Fields: fields}
}
