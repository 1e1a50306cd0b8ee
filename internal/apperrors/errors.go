package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidState indicates that a transition is not legal from the current state.
var ErrInvalidState = errors.New("invalid state")

// ErrConsistency indicates that a stock balance row no longer agrees with its ledger.
var ErrConsistency = errors.New("consistency error")

// ErrConflict indicates a concurrent modification (stale version).
var ErrConflict = errors.New("conflict")

// ErrUnauthorized indicates a missing or invalid caller identity.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInternal indicates an unexpected infrastructure failure.
var ErrInternal = errors.New("internal error")

// AppError wraps an infrastructure error with an HTTP-ish status code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInternal
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError returns an error wrapping ErrNotFound.
func NewNotFoundError(msg string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, msg)
}

// NewValidationError returns an error wrapping ErrValidation.
func NewValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// StateError reports an illegal transition together with the state that blocked it,
// so callers can resynchronize their view.
type StateError struct {
	Entity string
	ID     string
	State  string
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: cannot %s %s %s in state %s", ErrInvalidState.Error(), e.Action, e.Entity, e.ID, e.State)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// NewStateError creates a StateError.
func NewStateError(entity, id, state, action string) *StateError {
	return &StateError{Entity: entity, ID: id, State: state, Action: action}
}

// ConsistencyError is fatal for one (item, warehouse) balance row. The write is
// rejected and the row gets flagged for reconciliation.
type ConsistencyError struct {
	ItemID      string
	WarehouseID string
	Reason      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: stock balance %s@%s: %s", ErrConsistency.Error(), e.ItemID, e.WarehouseID, e.Reason)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// NewConsistencyError creates a ConsistencyError.
func NewConsistencyError(itemID, warehouseID, reason string) *ConsistencyError {
	return &ConsistencyError{ItemID: itemID, WarehouseID: warehouseID, Reason: reason}
}
