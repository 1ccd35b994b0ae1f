package protocolerrors

import (
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/pkg/errors"
)

// ProtocolError is an error that signifies a violation
// of the masternode list sync protocol by a peer
type ProtocolError struct {
	ShouldBan bool
	Cause     error
}

func (e *ProtocolError) Error() string {
	return e.Cause.Error()
}

func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error.
// Errorf also records the stack trace at the point it was called.
func Errorf(shouldBan bool, format string, args ...interface{}) error {
	return &ProtocolError{
		ShouldBan: shouldBan,
		Cause:     errors.Errorf(format, args...),
	}
}

// New returns an error with the supplied message.
// New also records the stack trace at the point it was called.
func New(shouldBan bool, message string) error {
	return &ProtocolError{
		ShouldBan: shouldBan,
		Cause:     errors.New(message),
	}
}

// Wrapf returns an error annotating err with a stack trace
// at the point Wrapf is called, and the format specifier.
func Wrapf(shouldBan bool, err error, format string, args ...interface{}) error {
	return &ProtocolError{
		ShouldBan: shouldBan,
		Cause:     errors.Wrapf(err, format, args...),
	}
}

// FromRuleError converts a processing error attributable to the peer that
// sent the message into a ProtocolError that bans it. Other errors are
// returned unchanged.
func FromRuleError(err error) error {
	if err == nil || !ruleerrors.IsPeerMisbehavior(err) {
		return err
	}
	return &ProtocolError{
		ShouldBan: true,
		Cause:     err,
	}
}

// ShouldBan returns whether err requires banning the peer it came from.
func ShouldBan(err error) bool {
	var protocolErr *ProtocolError
	return errors.As(err, &protocolErr) && protocolErr.ShouldBan
}
