package wire

import (
	"io"

	"github.com/dashevo/dashspv/util/chainhash"
)

// PartialMerkleTree is a BIP37 style partial merkle tree proving the
// inclusion of a subset of a block's transactions.
type PartialMerkleTree struct {
	TotalTransactions uint32
	Hashes            []*chainhash.Hash
	Flags             []byte
}

// Serialize encodes the tree to w.
func (tree *PartialMerkleTree) Serialize(w io.Writer) error {
	err := WriteElement(w, tree.TotalTransactions)
	if err != nil {
		return err
	}
	err = writeHashes(w, tree.Hashes)
	if err != nil {
		return err
	}
	return WriteVarBytes(w, tree.Flags)
}

// Deserialize decodes a tree from r into the receiver.
func (tree *PartialMerkleTree) Deserialize(r io.Reader) error {
	err := ReadElement(r, &tree.TotalTransactions)
	if err != nil {
		return err
	}
	tree.Hashes, err = readHashes(r, "partial merkle tree hashes")
	if err != nil {
		return err
	}
	tree.Flags, err = ReadVarBytes(r, MaxMessagePayload, "partial merkle tree flags")
	return err
}
