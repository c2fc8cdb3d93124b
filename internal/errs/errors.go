package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports a form field that failed a client-side check.
type ValidationError struct {
	Field   string // form label, e.g. "categoria"
	Message string // text shown to the user
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation returns a ValidationError for field.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// FieldIssue is a per-field problem reported by the backend.
type FieldIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
	Data    map[string]FieldIssue
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Unwrap maps the HTTP status to a sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error { return FromStatus(e.Status) }

// FromStatus returns the sentinel matching a non-2xx HTTP status.
func FromStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrInvalidFields
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrServer
	}
}

// NetworkError wraps a transport failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

// Is reports ErrNetwork in addition to the wrapped error chain.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

func (e *NetworkError) Unwrap() error { return e.Err }

// Network wraps err as a transport failure for operation op.
func Network(op string, err error) error {
	if err == nil {
		return nil
	}
	return &NetworkError{Op: op, Err: err}
}

// User-facing texts.
const (
	MsgInvalidFields = "Dados inválidos. Verifique todos os campos."
	MsgForbidden     = "Você não tem permissão para realizar esta ação."
	MsgNotFound      = "Coleção não encontrada. Verifique o PocketBase."
	MsgUnauthorized  = "Email ou senha inválidos."
	MsgAlreadyExists = "Este email já está em uso."
	MsgNetwork       = "Não foi possível conectar ao servidor. Verifique sua conexão."
	MsgCanceled      = "Operação cancelada."
	MsgGeneric       = "Não foi possível concluir a operação. Tente novamente."
)

// UserMessage maps err to the dismissible message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return MsgCanceled
	case errors.Is(err, ErrNetwork):
		return MsgNetwork
	case errors.Is(err, ErrInvalidFields):
		return MsgInvalidFields
	case errors.Is(err, ErrForbidden):
		return MsgForbidden
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrUnauthorized):
		return MsgUnauthorized
	case errors.Is(err, ErrAlreadyExists):
		return MsgAlreadyExists
	default:
		return MsgGeneric
	}
}
