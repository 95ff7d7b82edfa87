package storage

import (
	"errors"
	"fmt"
)

// ErrRoomNotFound is returned when no chat room has the requested id.
var ErrRoomNotFound = errors.New("chat room not found")

// Error reports a failure of the backing store (database or Redis).
// It is transient: the caller may retry the whole operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// IsStorageError reports whether err was caused by the backing store.
func IsStorageError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
