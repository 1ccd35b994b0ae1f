package mnlistsync

import (
	"testing"

	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/pkg/errors"
)

func TestBanScore(t *testing.T) {
	tests := []struct {
		err      error
		expected uint32
	}{
		{err: errors.Wrapf(ruleerrors.ErrMalformedMessage, "truncated"), expected: 100},
		{err: errors.Wrapf(ruleerrors.ErrRootMismatch, "quorum root"), expected: 50},
		{err: errors.Wrapf(ruleerrors.ErrInvalidCoinbaseProof, "bad proof"), expected: 50},
		{err: errors.Wrapf(ruleerrors.ErrInconsistentDiff, "duplicate"), expected: 20},
		{err: errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid, "bad signature"), expected: 0},
		{err: errors.Wrapf(ruleerrors.ErrUnknownBlockHeight, "unknown block"), expected: 0},
		{err: errors.New("database failure"), expected: 0},
	}
	for _, test := range tests {
		score := banScore(test.err)
		if score != test.expected {
			t.Errorf("%s: got ban score %d, want %d", test.err, score, test.expected)
		}
	}
}
