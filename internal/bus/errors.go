package bus

import (
	"errors"
	"fmt"
)

// ErrAlreadyFired is returned by Listener.Wait once the single wakeup has been consumed.
var ErrAlreadyFired = errors.New("signal wait already resolved")

// AcquireError reports a lock acquisition that could not become owner or signal one.
type AcquireError struct {
	Path string
	Err  error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("acquire lock %s: %v", e.Path, e.Err)
}

func (e *AcquireError) Unwrap() error { return e.Err }

// SignalError reports a toggle that could not be delivered to a live owner.
type SignalError struct {
	PID int
	Err error
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("signal pid %d: %v", e.PID, e.Err)
}

func (e *SignalError) Unwrap() error { return e.Err }
