package merkleverifier

import (
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/pkg/errors"
)

// PartialMerkleMatch is a transaction proven by a partial merkle tree.
type PartialMerkleMatch struct {
	Hash     *chainhash.Hash
	Position uint32
}

type partialMerkleTraversal struct {
	totalTransactions uint32
	hashes            []*chainhash.Hash
	flags             []byte
	bitsUsed          int
	hashesUsed        int
	matches           []PartialMerkleMatch
}

func (traversal *partialMerkleTraversal) treeWidth(height uint) uint32 {
	return uint32((uint64(traversal.totalTransactions) + (1 << height) - 1) >> height)
}

func (traversal *partialMerkleTraversal) nextFlag() (bool, error) {
	if traversal.bitsUsed >= len(traversal.flags)*8 {
		return false, errors.New("partial merkle tree overflowed its flag bits")
	}
	flag := traversal.flags[traversal.bitsUsed/8]>>(uint(traversal.bitsUsed)%8)&1 == 1
	traversal.bitsUsed++
	return flag, nil
}

func (traversal *partialMerkleTraversal) traverse(height uint, position uint32) (*chainhash.Hash, error) {
	parentOfMatch, err := traversal.nextFlag()
	if err != nil {
		return nil, err
	}

	if height == 0 || !parentOfMatch {
		if traversal.hashesUsed >= len(traversal.hashes) {
			return nil, errors.New("partial merkle tree overflowed its hashes")
		}
		hash := traversal.hashes[traversal.hashesUsed]
		traversal.hashesUsed++
		if height == 0 && parentOfMatch {
			traversal.matches = append(traversal.matches, PartialMerkleMatch{Hash: hash, Position: position})
		}
		return hash, nil
	}

	left, err := traversal.traverse(height-1, position*2)
	if err != nil {
		return nil, err
	}
	right := left
	if position*2+1 < traversal.treeWidth(height-1) {
		right, err = traversal.traverse(height-1, position*2+1)
		if err != nil {
			return nil, err
		}
		// Identical siblings allow forging trees with duplicated
		// transactions (CVE-2012-2459).
		if right.IsEqual(left) {
			return nil, errors.New("partial merkle tree has identical sibling hashes")
		}
	}
	parent := chainhash.DoubleHashConcat(left, right)
	return &parent, nil
}

// PartialMerkleRoot walks a BIP37 partial merkle tree and returns its root
// along with the transactions it proves. Trees that leave hashes or flag
// bytes unused are rejected.
func PartialMerkleRoot(totalTransactions uint32, hashes []*chainhash.Hash,
	flags []byte) (*chainhash.Hash, []PartialMerkleMatch, error) {

	if totalTransactions == 0 {
		return nil, nil, errors.New("partial merkle tree of no transactions")
	}
	if uint64(len(hashes)) > uint64(totalTransactions) {
		return nil, nil, errors.Errorf("partial merkle tree has %d hashes for %d transactions",
			len(hashes), totalTransactions)
	}
	if len(flags)*8 < len(hashes) {
		return nil, nil, errors.Errorf("partial merkle tree has %d flag bytes for %d hashes",
			len(flags), len(hashes))
	}

	traversal := &partialMerkleTraversal{
		totalTransactions: totalTransactions,
		hashes:            hashes,
		flags:             flags,
	}
	var height uint
	for traversal.treeWidth(height) > 1 {
		height++
	}
	root, err := traversal.traverse(height, 0)
	if err != nil {
		return nil, nil, err
	}

	if traversal.hashesUsed != len(hashes) {
		return nil, nil, errors.Errorf("partial merkle tree used %d of its %d hashes",
			traversal.hashesUsed, len(hashes))
	}
	if (traversal.bitsUsed+7)/8 != len(flags) {
		return nil, nil, errors.Errorf("partial merkle tree used %d of its %d flag bytes",
			(traversal.bitsUsed+7)/8, len(flags))
	}
	return root, traversal.matches, nil
}
