package wire

import (
	"fmt"
	"io"

	"github.com/dashevo/dashspv/util/bitset"
	"github.com/dashevo/dashspv/util/chainhash"
)

// Quorum commitment versions.
const (
	QuorumCommitmentVersionLegacy        uint16 = 1
	QuorumCommitmentVersionLegacyIndexed uint16 = 2
	QuorumCommitmentVersionBasic         uint16 = 3
	QuorumCommitmentVersionBasicIndexed  uint16 = 4
	maxQuorumCommitmentVersion                  = QuorumCommitmentVersionBasicIndexed
	maxQuorumMembers                            = 1000
	minQuorumCommitmentPayload                  = 2 + 1 + chainhash.HashSize + 2 + BLSPublicKeySize + chainhash.HashSize + 2*BLSSignatureSize
)

// QuorumCommitment is a final LLMQ commitment as mined on chain and relayed
// in mnlistdiff.
type QuorumCommitment struct {
	Version         uint16
	LLMQType        LLMQType
	QuorumHash      chainhash.Hash
	QuorumIndex     int16
	Signers         *bitset.BitSet
	ValidMembers    *bitset.BitSet
	QuorumPublicKey BLSPublicKey
	QuorumVvecHash  chainhash.Hash
	QuorumSig       BLSSignature
	MembersSig      BLSSignature
}

// IsIndexed returns whether the commitment belongs to a rotated quorum and
// carries a quorum index.
func (qc *QuorumCommitment) IsIndexed() bool {
	return qc.Version == QuorumCommitmentVersionLegacyIndexed ||
		qc.Version == QuorumCommitmentVersionBasicIndexed
}

// IsLegacyBLS returns whether the commitment keys and signatures use the
// legacy BLS scheme.
func (qc *QuorumCommitment) IsLegacyBLS() bool {
	return qc.Version < QuorumCommitmentVersionBasic
}

// Serialize encodes the commitment to w.
func (qc *QuorumCommitment) Serialize(w io.Writer) error {
	err := writeElements(w, qc.Version, qc.LLMQType, &qc.QuorumHash)
	if err != nil {
		return err
	}
	if qc.IsIndexed() {
		err = WriteElement(w, qc.QuorumIndex)
		if err != nil {
			return err
		}
	}
	err = writeBitSet(w, qc.Signers)
	if err != nil {
		return err
	}
	err = writeBitSet(w, qc.ValidMembers)
	if err != nil {
		return err
	}
	return writeElements(w, &qc.QuorumPublicKey, &qc.QuorumVvecHash, &qc.QuorumSig, &qc.MembersSig)
}

// Deserialize decodes a commitment from r into the receiver.
func (qc *QuorumCommitment) Deserialize(r io.Reader) error {
	err := ReadElement(r, &qc.Version)
	if err != nil {
		return err
	}
	if qc.Version == 0 || qc.Version > maxQuorumCommitmentVersion {
		str := fmt.Sprintf("unsupported quorum commitment version %d", qc.Version)
		return messageError("QuorumCommitment.Deserialize", str)
	}
	err = readElements(r, &qc.LLMQType, &qc.QuorumHash)
	if err != nil {
		return err
	}
	qc.QuorumIndex = 0
	if qc.IsIndexed() {
		err = ReadElement(r, &qc.QuorumIndex)
		if err != nil {
			return err
		}
	}
	qc.Signers, err = readBitSet(r, "signers")
	if err != nil {
		return err
	}
	qc.ValidMembers, err = readBitSet(r, "valid members")
	if err != nil {
		return err
	}
	return readElements(r, &qc.QuorumPublicKey, &qc.QuorumVvecHash, &qc.QuorumSig, &qc.MembersSig)
}

// Hash returns the double sha256 of the serialized commitment. It's the leaf
// committed to by the coinbase quorum merkle root.
func (qc *QuorumCommitment) Hash() *chainhash.Hash {
	writer := chainhash.NewDoubleHashWriter()
	err := qc.Serialize(writer)
	if err != nil {
		// Writing to a hash writer never fails.
		panic(err)
	}
	hash := writer.Finalize()
	return &hash
}

// CommitmentHash builds the hash the quorum members sign: the llmq type,
// quorum hash, valid members, quorum public key and verification vector hash.
func (qc *QuorumCommitment) CommitmentHash() *chainhash.Hash {
	writer := chainhash.NewDoubleHashWriter()
	err := writeElements(writer, qc.LLMQType, &qc.QuorumHash)
	if err == nil {
		err = writeBitSet(writer, qc.ValidMembers)
	}
	if err == nil {
		err = writeElements(writer, &qc.QuorumPublicKey, &qc.QuorumVvecHash)
	}
	if err != nil {
		// Writing to a hash writer never fails.
		panic(err)
	}
	hash := writer.Finalize()
	return &hash
}

// readBitSet reads a var-int sized bit set.
func readBitSet(r io.Reader, fieldName string) (*bitset.BitSet, error) {
	size, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if size > maxQuorumMembers {
		str := fmt.Sprintf("%s bit set is too large [size %d, max %d]",
			fieldName, size, maxQuorumMembers)
		return nil, messageError("readBitSet", str)
	}
	data := make([]byte, bitset.ByteLen(int(size)))
	_, err = io.ReadFull(r, data)
	if err != nil {
		return nil, err
	}
	bits, err := bitset.FromBytes(int(size), data)
	if err != nil {
		return nil, messageError("readBitSet", err.Error())
	}
	return bits, nil
}

// writeBitSet writes a var-int sized bit set. A nil set is written as an
// empty one.
func writeBitSet(w io.Writer, bits *bitset.BitSet) error {
	if bits == nil {
		bits = bitset.New(0)
	}
	err := WriteVarInt(w, uint64(bits.Size()))
	if err != nil {
		return err
	}
	_, err = w.Write(bits.Bytes())
	return err
}
