package ledger

import (
	"errors"
	"fmt"

	"github.com/mmynk/splitwiser/internal/calculator"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = calculator.ErrValidation

	// ErrNotFound is returned when an expense or obligation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the requester may not perform the operation.
	ErrUnauthorized = errors.New("not authorized")

	// ErrAlreadySettled is returned when settling an obligation that is no longer pending.
	ErrAlreadySettled = errors.New("obligation already settled")

	// ErrSettledObligations is returned when deleting an expense with settled
	// obligations under the reject-settled policy.
	ErrSettledObligations = errors.New("expense has settled obligations")

	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage failure")
)

// ValidationError reports malformed input. See calculator.ValidationError.
type ValidationError = calculator.ValidationError

// StorageError wraps a persistence failure. Nothing was written when it is
// returned from a write operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStorage) true for any StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
