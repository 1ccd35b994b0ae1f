/*
Package bls verifies the BLS signatures carried by quorum commitments.

Signatures and public keys use the basic scheme over BLS12-381: public keys
are 48 byte compressed G1 points and signatures are 96 byte compressed G2
points, hashed to the curve with the ciphersuite below. Keys and signatures
created before the basic scheme was activated use the legacy scheme, which
differs in the flag bits of the compressed point and in the hash to curve.
Legacy signatures can't be checked here and never verify.
*/
package bls

import (
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	blst "github.com/supranational/blst/bindings/go"
)

// basicSchemeDST is the domain separation tag of the basic scheme.
var basicSchemeDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// LegacyPolicy tells a Verifier what to do with signatures of the legacy
// scheme, whose hash to curve blst doesn't implement. No policy lets a
// legacy signature verify.
type LegacyPolicy int

const (
	// LegacySkip reports that legacy signatures can't be checked, so that
	// their quorums are skipped instead of verified.
	LegacySkip LegacyPolicy = iota

	// LegacyReject rejects every legacy signature, so that their quorums are
	// reported invalid.
	LegacyReject
)

// Verifier is a model.ThresholdSignatureVerifier backed by blst.
type Verifier struct {
	legacyPolicy LegacyPolicy
}

var (
	_ model.ThresholdSignatureVerifier = (*Verifier)(nil)
	_ model.LegacySchemePolicy         = (*Verifier)(nil)
)

// NewVerifier returns a Verifier applying legacyPolicy to legacy scheme
// signatures.
func NewVerifier(legacyPolicy LegacyPolicy) *Verifier {
	return &Verifier{legacyPolicy: legacyPolicy}
}

// SkipsLegacyScheme returns whether quorums signed with the legacy scheme
// should be skipped rather than verified.
func (v *Verifier) SkipsLegacyScheme() bool {
	return v.legacyPolicy == LegacySkip
}

// VerifyThresholdSignature verifies that signature signs message. With more
// than one public key the signature must be the aggregate of one signature
// of message by every key.
func (v *Verifier) VerifyThresholdSignature(message *chainhash.Hash, signature *wire.BLSSignature,
	publicKeys []*wire.BLSPublicKey, useLegacyScheme bool) bool {

	if len(publicKeys) == 0 {
		return false
	}
	if useLegacyScheme {
		return v.verifyLegacy(message)
	}

	sig := new(blst.P2Affine).Uncompress(signature[:])
	if sig == nil {
		return false
	}
	publicKey, ok := aggregatePublicKeys(publicKeys)
	if !ok {
		return false
	}
	return sig.Verify(true, publicKey, true, message[:], basicSchemeDST)
}

func (v *Verifier) verifyLegacy(message *chainhash.Hash) bool {
	log.Debugf("Rejecting the legacy scheme signature of %s: it can't be checked", message)
	return false
}

// aggregatePublicKeys decodes and sums publicKeys.
func aggregatePublicKeys(publicKeys []*wire.BLSPublicKey) (*blst.P1Affine, bool) {
	keys := make([]*blst.P1Affine, len(publicKeys))
	for i, publicKey := range publicKeys {
		key := new(blst.P1Affine).Uncompress(publicKey[:])
		if key == nil {
			return nil, false
		}
		keys[i] = key
	}
	if len(keys) == 1 {
		return keys[0], keys[0].KeyValidate()
	}

	aggregate := new(blst.P1Aggregate)
	if !aggregate.Aggregate(keys, true) {
		return nil, false
	}
	return aggregate.ToAffine(), true
}
