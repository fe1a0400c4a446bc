package reservation

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("reservation: not found")

// StoreUnavailableMessage is the only text shown to users when the store fails.
const StoreUnavailableMessage = "the schedule could not be reached, please try again"

// ValidationError reports malformed input. It never reaches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ConflictError reports that the candidate interval overlaps existing reservations.
type ConflictError struct {
	Message   string
	Conflicts []Reservation
}

func (e *ConflictError) Error() string {
	return e.Message
}

// StoreError wraps any failure of the persistence collaborator.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("reservation store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsStore(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}
