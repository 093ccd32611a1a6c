package bridge

import (
	"errors"
	"fmt"
)

// ErrUnregistered is returned by every operation invoked before Register, or
// whose native entry was not provided.
var ErrUnregistered = errors.New("native function table not registered")

// CallError reports a failed downcall
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("native call %s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// IsUnregistered reports whether err came from calling into an empty table
func IsUnregistered(err error) bool {
	return errors.Is(err, ErrUnregistered)
}
