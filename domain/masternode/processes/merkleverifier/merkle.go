package merkleverifier

import (
	"github.com/dashevo/dashspv/util/chainhash"
)

// MerkleRoot computes the bitcoin style merkle root of leaves: an odd node
// out at any level is paired with itself. The root of no leaves is the zero
// hash.
func MerkleRoot(leaves []*chainhash.Hash) *chainhash.Hash {
	if len(leaves) == 0 {
		return &chainhash.Hash{}
	}

	level := make([]*chainhash.Hash, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([]*chainhash.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			parent := chainhash.DoubleHashConcat(left, right)
			next = append(next, &parent)
		}
		level = next
	}
	root := *level[0]
	return &root
}
