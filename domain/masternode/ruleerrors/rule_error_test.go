package ruleerrors

import (
	"testing"

	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/pkg/errors"
)

func TestRuleErrorIs(t *testing.T) {
	wrapped := errors.Wrapf(ErrRootMismatch, "masternode root %s", chainhash.ZeroHash)
	if !errors.Is(wrapped, ErrRootMismatch) {
		t.Errorf("wrapped error is not ErrRootMismatch")
	}
	if errors.Is(wrapped, ErrInconsistentDiff) {
		t.Errorf("wrapped error is ErrInconsistentDiff")
	}
	if !IsPeerMisbehavior(wrapped) {
		t.Errorf("IsPeerMisbehavior: root mismatch must be blamed on the peer")
	}
	if IsPeerMisbehavior(errors.WithStack(ErrInconsistentDiff)) {
		t.Errorf("IsPeerMisbehavior: an inconsistent diff is not misbehavior")
	}
}

func TestMissingDependency(t *testing.T) {
	hash := chainhash.DoubleHashH([]byte("base"))
	err := errors.Wrap(NewErrMissingDependency(&hash), "processing diff")

	needed, ok := MissingDependencies(err)
	if !ok {
		t.Fatalf("MissingDependencies: not detected in %v", err)
	}
	if len(needed) != 1 || *needed[0] != hash {
		t.Errorf("MissingDependencies: got %v, want [%s]", needed, hash)
	}

	var ruleErr RuleError
	if !errors.As(err, &ruleErr) {
		t.Errorf("missing dependency error is not a RuleError")
	}

	if _, ok := MissingDependencies(ErrRootMismatch); ok {
		t.Errorf("MissingDependencies: detected in an unrelated error")
	}
}
