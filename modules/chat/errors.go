package chat

import (
	"errors"

	domain "github.com/OwlBoard/Chat-Service/domain/chat"
	"github.com/OwlBoard/Chat-Service/modules/store"
)

// Error classes surfaced to callers of the chat services.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// Service error codes carried in request-reply responses.
const (
	CodeNotFound = "not_found"
	CodeInvalid  = "validation_error"
	CodeConflict = "conflict"
	CodeInternal = "internal_error"
)

// ServiceError is the error half of a request-reply response. It survives
// serialization and unwraps to one of the error classes above.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	switch e.Code {
	case CodeNotFound:
		return ErrNotFound
	case CodeInvalid:
		return ErrInvalidInput
	case CodeConflict:
		return ErrConflict
	default:
		return ErrInternal
	}
}

// toServiceError classifies err. Internal causes are not exposed.
func toServiceError(err error) *ServiceError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrNotFound):
		return &ServiceError{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, store.ErrRoomExists), errors.Is(err, ErrConflict):
		return &ServiceError{Code: CodeConflict, Message: err.Error()}
	case errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrContentTooLong),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrInvalidIdentifier),
		errors.Is(err, ErrInvalidInput):
		return &ServiceError{Code: CodeInvalid, Message: err.Error()}
	default:
		return &ServiceError{Code: CodeInternal, Message: ErrInternal.Error()}
	}
}
