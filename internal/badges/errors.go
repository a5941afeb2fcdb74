package badges

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the group or its ledger entry does not exist.
	ErrNotFound = errors.New("badges: not found")

	// ErrInvalidInput is returned for malformed group or badge identifiers.
	ErrInvalidInput = errors.New("badges: invalid input")
)

// StorageError wraps a failure of the backing store. Re-running an
// evaluation after a StorageError is always safe.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("badges: storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err unless it already carries a badge error kind.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageFailure reports whether err is a StorageError.
func IsStorageFailure(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func validateGroupID(groupID int64) error {
	if groupID <= 0 {
		return fmt.Errorf("%w: group id must be positive, got %d", ErrInvalidInput, groupID)
	}
	return nil
}
