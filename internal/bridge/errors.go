package bridge

import (
	"errors"
	"fmt"
)

// Transport failure kinds. Match them with errors.Is.
var (
	ErrWriteFailed = errors.New("write failed")
	ErrReadFailed  = errors.New("read failed")

	// ErrNotConnected is the cause of a write attempted with no open port.
	ErrNotConnected = errors.New("not connected")
	// ErrSilence is the cause of a read failure after the read timeout.
	ErrSilence = errors.New("no data within read timeout")
)

// TransportError reports an I/O failure on the serial connection.
type TransportError struct {
	Kind error // ErrWriteFailed or ErrReadFailed
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{e.Kind, e.Err} }
