package wire

import (
	"encoding/hex"
)

// Sizes of the fixed size cryptographic fields carried by masternode list
// messages.
const (
	KeyIDSize        = 20
	BLSPublicKeySize = 48
	BLSSignatureSize = 96
)

// KeyID is a 160-bit key hash, such as a masternode voting key id or a
// platform node id.
type KeyID [KeyIDSize]byte

// String returns the KeyID as a hex string.
func (id KeyID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero returns whether all the bytes of id are zero.
func (id *KeyID) IsZero() bool {
	return *id == KeyID{}
}

// BLSPublicKey is a serialized BLS12-381 G1 public key.
type BLSPublicKey [BLSPublicKeySize]byte

// String returns the BLSPublicKey as a hex string.
func (key BLSPublicKey) String() string {
	return hex.EncodeToString(key[:])
}

// IsZero returns whether all the bytes of key are zero.
func (key *BLSPublicKey) IsZero() bool {
	return *key == BLSPublicKey{}
}

// BLSSignature is a serialized BLS12-381 G2 signature.
type BLSSignature [BLSSignatureSize]byte

// String returns the BLSSignature as a hex string.
func (sig BLSSignature) String() string {
	return hex.EncodeToString(sig[:])
}

// IsZero returns whether all the bytes of sig are zero.
func (sig *BLSSignature) IsZero() bool {
	return *sig == BLSSignature{}
}
