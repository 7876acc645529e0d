package protocol

import (
	"errors"
	"fmt"
)

// Decode failure kinds. Match them with errors.Is.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingField   = errors.New("missing field")
	ErrTypeMismatch   = errors.New("type mismatch")
)

// ProtocolError reports why a whole line was rejected by Decode.
type ProtocolError struct {
	Kind  error  // one of ErrUnknownCommand, ErrMissingField, ErrTypeMismatch
	Token string // offending name, key or key=value
	Err   error  // underlying parse error, may be nil
}

func (e *ProtocolError) Error() string {
	msg := e.Kind.Error()
	if e.Token != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Token)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unknownCommand(name string) error {
	return &ProtocolError{Kind: ErrUnknownCommand, Token: name}
}

func missingField(key string) error {
	return &ProtocolError{Kind: ErrMissingField, Token: key}
}

func typeMismatch(token string, err error) error {
	return &ProtocolError{Kind: ErrTypeMismatch, Token: token, Err: err}
}
