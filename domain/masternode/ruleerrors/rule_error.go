package ruleerrors

import (
	"fmt"

	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/pkg/errors"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrMalformedMessage indicates a masternode list message that couldn't
	// be parsed. The peer that sent it violated the protocol.
	ErrMalformedMessage = newRuleError("ErrMalformedMessage")

	// ErrInconsistentDiff indicates a diff that can't apply to its base
	// list, such as one deleting an entry the base doesn't have.
	ErrInconsistentDiff = newRuleError("ErrInconsistentDiff")

	// ErrRootMismatch indicates a masternode or quorum merkle root that
	// doesn't match the commitment of the block's coinbase.
	ErrRootMismatch = newRuleError("ErrRootMismatch")

	// ErrQuorumSignatureInvalid indicates a quorum commitment whose
	// signatures don't verify.
	ErrQuorumSignatureInvalid = newRuleError("ErrQuorumSignatureInvalid")

	// ErrInvalidCoinbaseProof indicates a coinbase transaction that isn't
	// proven to be part of its block.
	ErrInvalidCoinbaseProof = newRuleError("ErrInvalidCoinbaseProof")

	// ErrUnknownBlockHeight indicates a block whose height couldn't be
	// looked up.
	ErrUnknownBlockHeight = newRuleError("ErrUnknownBlockHeight")
)

// RuleError identifies a rule violation. It is used to indicate that
// processing of a masternode list diff failed due to one of the many
// validation rules. The caller can use errors.Is to determine if a failure
// was specifically due to a rule violation.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e RuleError) Cause() error {
	return e.inner
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// ErrMissingDependency indicates a diff whose base list isn't known
// locally. It's resolved by retrieving the needed lists and retrying.
type ErrMissingDependency struct {
	NeededBlockHashes []*chainhash.Hash
}

func (e ErrMissingDependency) Error() string {
	return fmt.Sprintf("missing the masternode lists at the following blocks: %v", e.NeededBlockHashes)
}

// NewErrMissingDependency creates a new ErrMissingDependency error wrapped in a RuleError
func NewErrMissingDependency(neededBlockHashes ...*chainhash.Hash) error {
	return errors.WithStack(RuleError{
		message: "ErrMissingDependency",
		inner:   ErrMissingDependency{neededBlockHashes},
	})
}

// MissingDependencies returns the block hashes err reports as needed, if err
// is an ErrMissingDependency.
func MissingDependencies(err error) ([]*chainhash.Hash, bool) {
	var missing ErrMissingDependency
	if !errors.As(err, &missing) {
		return nil, false
	}
	return missing.NeededBlockHashes, true
}

// IsPeerMisbehavior returns whether err shows the peer that sent the
// message misbehaved.
func IsPeerMisbehavior(err error) bool {
	return errors.Is(err, ErrMalformedMessage) ||
		errors.Is(err, ErrRootMismatch) ||
		errors.Is(err, ErrInvalidCoinbaseProof)
}
