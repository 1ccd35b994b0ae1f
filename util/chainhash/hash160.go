package chainhash

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// Hash160Size is the size of a RIPEMD160(SHA256(b)) digest.
const Hash160Size = ripemd160.Size

// Hash160 calculates the hash ripemd160(sha256(b)).
func Hash160(buf []byte) []byte {
	sha := sha256.Sum256(buf)
	hasher := ripemd160.New()
	_, _ = hasher.Write(sha[:])
	return hasher.Sum(nil)
}
