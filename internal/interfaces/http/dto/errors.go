package dto

import (
	"errors"
	"net/http"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
)

// Codes produced by the HTTP layer itself. Domain errors keep their own code.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeUnauthorized = "UNAUTHORIZED"
)

// kindStatus maps domain error kinds to HTTP status codes
var kindStatus = map[shared.ErrorKind]int{
	shared.KindNotFound:      http.StatusNotFound,
	shared.KindInvalidInput:  http.StatusBadRequest,
	shared.KindInvalidState:  http.StatusUnprocessableEntity,
	shared.KindConflict:      http.StatusConflict,
	shared.KindAlreadyExists: http.StatusConflict,
}

// StatusForKind returns the HTTP status of a domain error kind, 500 if unknown
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError converts err into a status code and response body. Errors that
// are not domain errors are reported as internal without their message.
func FromError(err error, requestID string) (int, Response) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := StatusForKind(domainErr.Kind)
		if status != http.StatusInternalServerError {
			return status, NewErrorResponse(domainErr.Code, domainErr.Message, requestID)
		}
	}
	return http.StatusInternalServerError, NewErrorResponse(ErrCodeInternal, "An unexpected error occurred", requestID)
}
