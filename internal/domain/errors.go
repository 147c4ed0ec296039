package domain

import (
	"errors"
	"fmt"
)

// ErrConnection matches every failure to reach the observation store.
var ErrConnection = errors.New("database unavailable")

// ConnectionError reports that the store could not be opened or pinged.
// Nothing can be rendered without it, so callers surface it rather than retry.
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database unavailable (%s): %v", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConnection) match any ConnectionError.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}
