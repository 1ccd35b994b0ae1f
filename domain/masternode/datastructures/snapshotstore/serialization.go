package snapshotstore

import (
	"bytes"
	"io"

	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

// serializationVersion is bumped whenever the layout below changes.
const serializationVersion uint8 = 1

// Entries are stored in their versioned network form.
const entryProtocolVersion = wire.ProtocolVersion

const (
	flagMasternodeMerkleRoot uint8 = 1 << iota
	flagQuorumMerkleRoot
)

// maxStoredCount bounds every count read back from the database.
const maxStoredCount = 1 << 20

func serializeList(list *model.MasternodeList) ([]byte, error) {
	w := &bytes.Buffer{}
	err := writeList(w, list)
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func deserializeList(listBytes []byte) (*model.MasternodeList, error) {
	list, err := readList(bytes.NewReader(listBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt masternode list snapshot")
	}
	return list, nil
}

func writeList(w io.Writer, list *model.MasternodeList) error {
	masternodeMerkleRoot, hasMasternodeMerkleRoot := list.MasternodeMerkleRoot()
	quorumMerkleRoot, hasQuorumMerkleRoot := list.QuorumMerkleRoot()
	var flags uint8
	if hasMasternodeMerkleRoot {
		flags |= flagMasternodeMerkleRoot
	}
	if hasQuorumMerkleRoot {
		flags |= flagQuorumMerkleRoot
	}

	err := writeElements(w, serializationVersion, list.BlockHash(), list.Height(), flags)
	if err != nil {
		return err
	}
	if hasMasternodeMerkleRoot {
		err = wire.WriteElement(w, masternodeMerkleRoot)
		if err != nil {
			return err
		}
	}
	if hasQuorumMerkleRoot {
		err = wire.WriteElement(w, quorumMerkleRoot)
		if err != nil {
			return err
		}
	}

	entries := list.Entries()
	err = wire.WriteVarInt(w, uint64(len(entries)))
	if err != nil {
		return err
	}
	for _, entry := range entries {
		err = writeEntry(w, entry)
		if err != nil {
			return err
		}
	}

	quorums := list.Quorums()
	err = wire.WriteVarInt(w, uint64(len(quorums)))
	if err != nil {
		return err
	}
	for _, quorum := range quorums {
		err = quorum.ToCommitment().Serialize(w)
		if err != nil {
			return err
		}
		err = writeElements(w, uint8(quorum.Status), quorum.Saved)
		if err != nil {
			return err
		}
	}
	return nil
}

func readList(r io.Reader) (*model.MasternodeList, error) {
	var version, flags uint8
	var blockHash chainhash.Hash
	var height uint32
	err := readElements(r, &version, &blockHash, &height, &flags)
	if err != nil {
		return nil, err
	}
	if version != serializationVersion {
		return nil, errors.Errorf("unsupported serialization version %d", version)
	}

	var masternodeMerkleRoot, quorumMerkleRoot *chainhash.Hash
	if flags&flagMasternodeMerkleRoot != 0 {
		masternodeMerkleRoot = &chainhash.Hash{}
		err = wire.ReadElement(r, masternodeMerkleRoot)
		if err != nil {
			return nil, err
		}
	}
	if flags&flagQuorumMerkleRoot != 0 {
		quorumMerkleRoot = &chainhash.Hash{}
		err = wire.ReadElement(r, quorumMerkleRoot)
		if err != nil {
			return nil, err
		}
	}

	entryCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	entries := make([]*model.MasternodeEntry, entryCount)
	for i := range entries {
		entries[i], err = readEntry(r)
		if err != nil {
			return nil, err
		}
	}

	quorumCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	quorums := make([]*model.QuorumEntry, quorumCount)
	for i := range quorums {
		commitment := &wire.QuorumCommitment{}
		err = commitment.Deserialize(r)
		if err != nil {
			return nil, err
		}
		var status uint8
		var saved bool
		err = readElements(r, &status, &saved)
		if err != nil {
			return nil, err
		}
		quorums[i] = model.NewQuorumEntry(commitment).
			WithStatus(model.VerificationStatus(status)).
			WithSaved(saved)
	}

	list, err := model.NewMasternodeList(&blockHash, height, entries, quorums)
	if err != nil {
		return nil, err
	}
	if masternodeMerkleRoot != nil || quorumMerkleRoot != nil {
		list = list.WithMerkleRoots(masternodeMerkleRoot, quorumMerkleRoot)
	}
	return list, nil
}

func writeEntry(w io.Writer, entry *model.MasternodeEntry) error {
	err := entry.ToSMLEntry().DashEncode(w, entryProtocolVersion)
	if err != nil {
		return err
	}
	err = writeElements(w, entry.UpdateHeight, entry.KnownConfirmedAtHeight)
	if err != nil {
		return err
	}

	err = wire.WriteVarInt(w, uint64(len(entry.PreviousOperatorPublicKeys)))
	if err != nil {
		return err
	}
	for key, operatorPublicKey := range entry.PreviousOperatorPublicKeys {
		operatorPublicKey := operatorPublicKey
		err = writeElements(w, &key.Hash, key.Height, &operatorPublicKey)
		if err != nil {
			return err
		}
	}

	err = wire.WriteVarInt(w, uint64(len(entry.PreviousValidity)))
	if err != nil {
		return err
	}
	for key, isValid := range entry.PreviousValidity {
		err = writeElements(w, &key.Hash, key.Height, isValid)
		if err != nil {
			return err
		}
	}

	err = wire.WriteVarInt(w, uint64(len(entry.PreviousEntryHashes)))
	if err != nil {
		return err
	}
	for key, entryHash := range entry.PreviousEntryHashes {
		entryHash := entryHash
		err = writeElements(w, &key.Hash, key.Height, &entryHash)
		if err != nil {
			return err
		}
	}
	return nil
}

func readEntry(r io.Reader) (*model.MasternodeEntry, error) {
	sml := &wire.SMLEntry{}
	err := sml.DashDecode(r, entryProtocolVersion)
	if err != nil {
		return nil, err
	}
	var updateHeight, knownConfirmedAtHeight uint32
	err = readElements(r, &updateHeight, &knownConfirmedAtHeight)
	if err != nil {
		return nil, err
	}
	entry := model.NewMasternodeEntry(sml, updateHeight)
	entry.KnownConfirmedAtHeight = knownConfirmedAtHeight

	count, err := readCount(r)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		entry.PreviousOperatorPublicKeys = make(map[model.BlockKey]wire.BLSPublicKey, count)
	}
	for i := uint64(0); i < count; i++ {
		var key model.BlockKey
		var operatorPublicKey wire.BLSPublicKey
		err = readElements(r, &key.Hash, &key.Height, &operatorPublicKey)
		if err != nil {
			return nil, err
		}
		entry.PreviousOperatorPublicKeys[key] = operatorPublicKey
	}

	count, err = readCount(r)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		entry.PreviousValidity = make(map[model.BlockKey]bool, count)
	}
	for i := uint64(0); i < count; i++ {
		var key model.BlockKey
		var isValid bool
		err = readElements(r, &key.Hash, &key.Height, &isValid)
		if err != nil {
			return nil, err
		}
		entry.PreviousValidity[key] = isValid
	}

	count, err = readCount(r)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		entry.PreviousEntryHashes = make(map[model.BlockKey]chainhash.Hash, count)
	}
	for i := uint64(0); i < count; i++ {
		var key model.BlockKey
		var entryHash chainhash.Hash
		err = readElements(r, &key.Hash, &key.Height, &entryHash)
		if err != nil {
			return nil, err
		}
		entry.PreviousEntryHashes[key] = entryHash
	}
	return entry, nil
}

func readCount(r io.Reader) (uint64, error) {
	count, err := wire.ReadVarInt(r)
	if err != nil {
		return 0, err
	}
	if count > maxStoredCount {
		return 0, errors.Errorf("count %d exceeds the maximum of %d", count, maxStoredCount)
	}
	return count, nil
}

func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		err := wire.WriteElement(w, element)
		if err != nil {
			return err
		}
	}
	return nil
}

func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		err := wire.ReadElement(r, element)
		if err != nil {
			return err
		}
	}
	return nil
}
