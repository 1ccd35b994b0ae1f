package model

import (
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
)

// MerkleVerifier checks masternode lists against the merkle roots committed
// to by coinbase transactions.
type MerkleVerifier interface {
	MasternodeMerkleRoot(list *MasternodeList) *chainhash.Hash
	QuorumMerkleRoot(list *MasternodeList) *chainhash.Hash
	VerifyMasternodeRoot(list *MasternodeList, payload *wire.CoinbasePayload) bool
	VerifyQuorumRoot(list *MasternodeList, payload *wire.CoinbasePayload) bool
	VerifyCoinbaseInclusion(diff *DiffMessage, headerMerkleRoot *chainhash.Hash) (found bool, err error)
}
