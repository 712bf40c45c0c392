package api

import (
	"errors"
	"fmt"

	"github.com/bmbroch/payops/internal/recon"
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// Domain error codes in the server's reserved range
const (
	ErrNotFound          = -32001
	ErrBudgetExceeded    = -32002
	ErrLinkConflict      = -32003
	ErrAlreadyReconciled = -32004
	ErrPartialSave       = -32005
	ErrServerError       = -32000
)

// classifyError maps domain errors onto JSON-RPC error codes so the
// dashboard can branch on code instead of parsing messages
func classifyError(err error) (int, string) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message
	}

	var notFound *recon.NotFoundError
	if errors.As(err, &notFound) {
		return ErrNotFound, "Not found"
	}
	var budget *recon.BudgetExceededError
	if errors.As(err, &budget) {
		return ErrBudgetExceeded, "Selection exceeds payment amount"
	}
	var conflict *recon.LinkConflictError
	if errors.As(err, &conflict) {
		return ErrLinkConflict, "Post already reconciled against another payment"
	}
	if errors.Is(err, recon.ErrAlreadyReconciled) {
		return ErrAlreadyReconciled, "Payment already reconciled"
	}
	var partial *recon.PartialSaveError
	if errors.As(err, &partial) {
		return ErrPartialSave, "Reconciliation partially applied, retry to complete"
	}

	return ErrServerError, "Server error"
}
