package model

import (
	"github.com/dashevo/dashspv/util/chainhash"
)

// MasternodeListStore persists masternode lists by block hash.
type MasternodeListStore interface {
	MasternodeListLookup
	Store(list *MasternodeList) error
	Has(blockHash *chainhash.Hash) (bool, error)
	Delete(blockHash *chainhash.Hash) error
	DeleteBelowHeight(height uint32) (int, error)
	Close() error
}
