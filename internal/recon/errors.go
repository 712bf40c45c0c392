package recon

import (
	"errors"
	"fmt"
)

// ErrAlreadyReconciled is returned when save is attempted on a payment
// that is already reconciled. Undo it first.
var ErrAlreadyReconciled = errors.New("payment already reconciled")

// BudgetExceededError reports a selection whose total would overrun the
// payment amount. Recoverable: the operator must adjust the selection.
type BudgetExceededError struct {
	PaymentID int64
	Amount    int64
	Selected  int64
}

// Error implements the error interface
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("selection total %d exceeds payment %d amount %d", e.Selected, e.PaymentID, e.Amount)
}

// LinkConflictError reports an attempt to link a post whose share of the
// given type is already covered by another payment. Recoverable: re-query
// available posts and retry.
type LinkConflictError struct {
	PostID      int64
	PaymentID   int64
	PaymentType string
}

// Error implements the error interface
func (e *LinkConflictError) Error() string {
	return fmt.Sprintf("post %d %s share already linked to payment %d", e.PostID, e.PaymentType, e.PaymentID)
}

// NotFoundError reports a missing record
type NotFoundError struct {
	Collection string
	ID         int64
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Collection, e.ID)
}

// PartialSaveError wraps a store failure that occurred after some links
// were already committed. The operator is told which post failed so state
// can be inspected before retrying; retrying the save is safe because
// link creation is idempotent per (post, payment, type).
type PartialSaveError struct {
	PaymentID int64
	PostID    int64
	Applied   int
	Err       error
}

// Error implements the error interface
func (e *PartialSaveError) Error() string {
	return fmt.Sprintf("reconciliation of payment %d may be partially applied: failed at post %d after %d links: %v",
		e.PaymentID, e.PostID, e.Applied, e.Err)
}

// Unwrap returns the underlying store error
func (e *PartialSaveError) Unwrap() error {
	return e.Err
}
