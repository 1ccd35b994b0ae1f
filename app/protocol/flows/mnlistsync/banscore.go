package mnlistsync

import (
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/pkg/errors"
)

// DefaultBanThreshold is the ban score at which a peer is banned.
const DefaultBanThreshold = 100

// banScore returns the ban score a peer accumulates for sending a message
// that failed processing with err.
func banScore(err error) uint32 {
	switch {
	case errors.Is(err, ruleerrors.ErrMalformedMessage):
		return 100
	case errors.Is(err, ruleerrors.ErrRootMismatch),
		errors.Is(err, ruleerrors.ErrInvalidCoinbaseProof):
		return 50
	case errors.Is(err, ruleerrors.ErrInconsistentDiff):
		return 20
	default:
		return 0
	}
}
