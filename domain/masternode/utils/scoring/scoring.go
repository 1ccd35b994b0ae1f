// Package scoring implements the deterministic ordering used to pick quorum
// members and signing quorums.
package scoring

import (
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/holiman/uint256"
)

// Modifier returns the double sha256 of the llmq type followed by hash. It
// seeds the scores of a quorum type for a given quorum or request.
func Modifier(llmqType wire.LLMQType, hash *chainhash.Hash) *chainhash.Hash {
	writer := chainhash.NewDoubleHashWriter()
	err := wire.WriteElement(writer, llmqType)
	if err == nil {
		err = wire.WriteElement(writer, hash)
	}
	if err != nil {
		// Writing to a hash writer never fails.
		panic(err)
	}
	modifier := writer.Finalize()
	return &modifier
}

// Score interprets hash as an unsigned little-endian 256-bit number.
func Score(hash *chainhash.Hash) *uint256.Int {
	reversed := hash.Reversed()
	return new(uint256.Int).SetBytes32(reversed[:])
}

// Scored is an item ranked by its score, ties broken by its identifier.
type Scored struct {
	Score      *uint256.Int
	Identifier chainhash.Hash
	Index      int
}

// Less orders scored items by ascending score, then by identifier bytes.
func (s *Scored) Less(other *Scored) bool {
	if cmp := s.Score.Cmp(other.Score); cmp != 0 {
		return cmp < 0
	}
	return s.Identifier.Cmp(&other.Identifier) < 0
}
