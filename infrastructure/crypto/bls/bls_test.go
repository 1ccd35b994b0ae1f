package bls

import (
	"testing"

	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	blst "github.com/supranational/blst/bindings/go"
)

type testKey struct {
	secret    *blst.SecretKey
	publicKey wire.BLSPublicKey
}

func newTestKey(t *testing.T, seed byte) *testKey {
	ikm := make([]byte, 32)
	for i := range ikm {
		ikm[i] = seed
	}
	secret := blst.KeyGen(ikm)
	if secret == nil {
		t.Fatalf("KeyGen failed for seed %d", seed)
	}
	key := &testKey{secret: secret}
	copy(key.publicKey[:], new(blst.P1Affine).From(secret).Compress())
	return key
}

func (key *testKey) sign(message *chainhash.Hash) *blst.P2Affine {
	return new(blst.P2Affine).Sign(key.secret, message[:], basicSchemeDST)
}

func toSignature(sig *blst.P2Affine) *wire.BLSSignature {
	var signature wire.BLSSignature
	copy(signature[:], sig.Compress())
	return &signature
}

func aggregateSignatures(t *testing.T, sigs []*blst.P2Affine) *wire.BLSSignature {
	aggregate := new(blst.P2Aggregate)
	if !aggregate.Aggregate(sigs, true) {
		t.Fatalf("signature aggregation failed")
	}
	return toSignature(aggregate.ToAffine())
}

// toLegacyEncoding moves the sign of y of a compressed point to the top bit,
// where the legacy scheme keeps it.
func toLegacyEncoding(point []byte) []byte {
	converted := make([]byte, len(point))
	copy(converted, point)
	isYNegative := converted[0]&0x20 != 0
	converted[0] &= 0x1f
	if isYNegative {
		converted[0] |= 0x80
	}
	return converted
}

func TestVerifyThresholdSignature(t *testing.T) {
	message := chainhash.DoubleHashH([]byte("commitment"))
	otherMessage := chainhash.DoubleHashH([]byte("other commitment"))

	keys := []*testKey{newTestKey(t, 1), newTestKey(t, 2), newTestKey(t, 3)}
	publicKeys := make([]*wire.BLSPublicKey, len(keys))
	sigs := make([]*blst.P2Affine, len(keys))
	for i, key := range keys {
		publicKeys[i] = &key.publicKey
		sigs[i] = key.sign(&message)
	}
	aggregate := aggregateSignatures(t, sigs)

	var garbage wire.BLSSignature
	for i := range garbage {
		garbage[i] = 0xff
	}

	tests := []struct {
		name       string
		message    *chainhash.Hash
		signature  *wire.BLSSignature
		publicKeys []*wire.BLSPublicKey
		expected   bool
	}{
		{
			name:       "single key",
			message:    &message,
			signature:  toSignature(sigs[0]),
			publicKeys: publicKeys[:1],
			expected:   true,
		},
		{
			name:       "single key, wrong key",
			message:    &message,
			signature:  toSignature(sigs[0]),
			publicKeys: publicKeys[1:2],
			expected:   false,
		},
		{
			name:       "single key, wrong message",
			message:    &otherMessage,
			signature:  toSignature(sigs[0]),
			publicKeys: publicKeys[:1],
			expected:   false,
		},
		{
			name:       "aggregate",
			message:    &message,
			signature:  aggregate,
			publicKeys: publicKeys,
			expected:   true,
		},
		{
			name:       "aggregate, missing signer",
			message:    &message,
			signature:  aggregate,
			publicKeys: publicKeys[:2],
			expected:   false,
		},
		{
			name:       "malformed signature",
			message:    &message,
			signature:  &garbage,
			publicKeys: publicKeys,
			expected:   false,
		},
		{
			name:       "no keys",
			message:    &message,
			signature:  aggregate,
			publicKeys: nil,
			expected:   false,
		},
	}

	verifier := NewVerifier(LegacyReject)
	for _, test := range tests {
		result := verifier.VerifyThresholdSignature(test.message, test.signature, test.publicKeys, false)
		if result != test.expected {
			t.Errorf("%s: got %t, want %t", test.name, result, test.expected)
		}
	}
}

func TestLegacyScheme(t *testing.T) {
	message := chainhash.DoubleHashH([]byte("legacy commitment"))
	otherMessage := chainhash.DoubleHashH([]byte("other legacy commitment"))
	key := newTestKey(t, 7)

	var legacyPublicKey wire.BLSPublicKey
	copy(legacyPublicKey[:], toLegacyEncoding(key.publicKey[:]))
	var legacySignature wire.BLSSignature
	copy(legacySignature[:], toLegacyEncoding(key.sign(&message).Compress()))
	publicKeys := []*wire.BLSPublicKey{&legacyPublicKey}

	tests := []struct {
		policy      LegacyPolicy
		expectSkips bool
	}{
		{policy: LegacySkip, expectSkips: true},
		{policy: LegacyReject, expectSkips: false},
	}
	for _, test := range tests {
		verifier := NewVerifier(test.policy)
		if verifier.SkipsLegacyScheme() != test.expectSkips {
			t.Errorf("policy %d: SkipsLegacyScheme got %t, want %t", test.policy,
				verifier.SkipsLegacyScheme(), test.expectSkips)
		}
		if verifier.VerifyThresholdSignature(&otherMessage, &legacySignature, publicKeys, true) {
			t.Errorf("policy %d: a legacy signature of another message was verified", test.policy)
		}
		if verifier.VerifyThresholdSignature(&message, &legacySignature, publicKeys, true) {
			t.Errorf("policy %d: a legacy signature was verified without being checked", test.policy)
		}
	}
}
