package snapshotstore

import (
	"encoding/binary"
	"sync"

	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/infrastructure/db/database"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

var bucket = database.MakeBucket([]byte("mnlists"))
var heightBucket = database.MakeBucket([]byte("mnlist-heights"))

// snapshotStore represents a store of masternode lists
type snapshotStore struct {
	db database.Database

	// writeMtx keeps the height index in step with the stored lists.
	writeMtx sync.Mutex
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// New instantiates a new MasternodeListStore
func New(db database.Database) (model.MasternodeListStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, errors.Wrap(err, "failed creating the snapshot encoder")
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, errors.Wrap(err, "failed creating the snapshot decoder")
	}
	return &snapshotStore{
		db:      db,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Store persists the given list, replacing any list stored for the same block
func (ss *snapshotStore) Store(list *model.MasternodeList) error {
	listBytes, err := serializeList(list)
	if err != nil {
		return err
	}

	ss.writeMtx.Lock()
	defer ss.writeMtx.Unlock()

	compressed := ss.encoder.EncodeAll(listBytes, nil)

	dbTx, err := ss.db.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	err = dbTx.Put(hashAsKey(list.BlockHash()), compressed)
	if err != nil {
		return err
	}
	err = dbTx.Put(heightKey(list.Height(), list.BlockHash()), []byte{})
	if err != nil {
		return err
	}
	err = dbTx.Commit()
	if err != nil {
		return err
	}

	log.Debugf("Stored the masternode list at %s (height %d, %d bytes compressed from %d)",
		list.BlockHash(), list.Height(), len(compressed), len(listBytes))
	return nil
}

// MasternodeList gets the list stored for the given block hash
func (ss *snapshotStore) MasternodeList(blockHash *chainhash.Hash) (*model.MasternodeList, bool, error) {
	compressed, err := ss.db.Get(hashAsKey(blockHash))
	if database.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	listBytes, err := ss.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed decompressing the masternode list at %s", blockHash)
	}
	list, err := deserializeList(listBytes)
	if err != nil {
		return nil, false, err
	}
	return list, true, nil
}

// Has returns whether a list is stored for the given block hash
func (ss *snapshotStore) Has(blockHash *chainhash.Hash) (bool, error) {
	return ss.db.Has(hashAsKey(blockHash))
}

// Delete deletes the list stored for the given block hash. Deleting a
// missing list is not an error.
func (ss *snapshotStore) Delete(blockHash *chainhash.Hash) error {
	list, found, err := ss.MasternodeList(blockHash)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	ss.writeMtx.Lock()
	defer ss.writeMtx.Unlock()

	dbTx, err := ss.db.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	err = dbTx.Delete(hashAsKey(blockHash))
	if err != nil {
		return err
	}
	err = dbTx.Delete(heightKey(list.Height(), blockHash))
	if err != nil {
		return err
	}
	return dbTx.Commit()
}

// DeleteBelowHeight deletes every list whose height is below the given
// height and returns how many were deleted
func (ss *snapshotStore) DeleteBelowHeight(height uint32) (int, error) {
	ss.writeMtx.Lock()
	defer ss.writeMtx.Unlock()

	cursor, err := ss.db.Cursor(heightBucket)
	if err != nil {
		return 0, err
	}
	var heightKeys []*database.Key
	for ok := cursor.First(); ok; ok = cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			cursor.Close()
			return 0, err
		}
		if keyHeight(key) >= height {
			break
		}
		heightKeys = append(heightKeys, key)
	}
	err = cursor.Close()
	if err != nil {
		return 0, err
	}
	if len(heightKeys) == 0 {
		return 0, nil
	}

	dbTx, err := ss.db.Begin()
	if err != nil {
		return 0, err
	}
	defer dbTx.RollbackUnlessClosed()

	for _, key := range heightKeys {
		blockHash, err := keyBlockHash(key)
		if err != nil {
			return 0, err
		}
		err = dbTx.Delete(hashAsKey(blockHash))
		if err != nil {
			return 0, err
		}
		err = dbTx.Delete(key)
		if err != nil {
			return 0, err
		}
	}
	err = dbTx.Commit()
	if err != nil {
		return 0, err
	}

	log.Infof("Deleted %d masternode lists below height %d", len(heightKeys), height)
	return len(heightKeys), nil
}

// Close releases the codecs and closes the underlying database
func (ss *snapshotStore) Close() error {
	ss.writeMtx.Lock()
	defer ss.writeMtx.Unlock()

	ss.decoder.Close()
	err := ss.encoder.Close()
	if err != nil {
		return errors.WithStack(err)
	}
	return ss.db.Close()
}

func hashAsKey(hash *chainhash.Hash) *database.Key {
	return bucket.Key(hash[:])
}

// heightKey orders lists by height: big endian height followed by the block hash.
func heightKey(height uint32, hash *chainhash.Hash) *database.Key {
	suffix := make([]byte, 4+chainhash.HashSize)
	binary.BigEndian.PutUint32(suffix[:4], height)
	copy(suffix[4:], hash[:])
	return heightBucket.Key(suffix)
}

func keyHeight(key *database.Key) uint32 {
	return binary.BigEndian.Uint32(key.Suffix()[:4])
}

func keyBlockHash(key *database.Key) (*chainhash.Hash, error) {
	return chainhash.NewHash(key.Suffix()[4:])
}
