package product

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound    = errors.New("product not found")
	ErrDataFormat  = errors.New("invalid data file format")
	ErrPersistence = errors.New("unable to save data")
)

// NotFoundError reports a product id that is not in the collection.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product with id=%d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StorageError is a load or save failure. Error returns only the message of
// Kind so storage paths never reach callers; the cause stays reachable
// through errors.Unwrap for logging.
type StorageError struct {
	Kind error
	Err  error
}

func (e *StorageError) Error() string {
	return e.Kind.Error()
}

func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// DataFormatError wraps a failure to read or decode the stored collection.
func DataFormatError(cause error) error {
	return &StorageError{Kind: ErrDataFormat, Err: cause}
}

// PersistenceError wraps a failure to write the collection.
func PersistenceError(cause error) error {
	return &StorageError{Kind: ErrPersistence, Err: cause}
}

// Cause digs the underlying storage cause out of err, if any.
func Cause(err error) error {
	var se *StorageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err
	}
	return err
}
