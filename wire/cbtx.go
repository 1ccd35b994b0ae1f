package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/pkg/errors"
)

// Coinbase payload versions.
const (
	// CbTxVersionMerkleRootMNList commits to the masternode list only.
	CbTxVersionMerkleRootMNList uint16 = 1

	// CbTxVersionMerkleRootQuorums adds the quorum list commitment.
	CbTxVersionMerkleRootQuorums uint16 = 2

	// CbTxVersionChainLock adds the best ChainLock and the credit pool
	// balance.
	CbTxVersionChainLock uint16 = 3
)

// CoinbasePayload is the DIP4 payload of a coinbase special transaction.
type CoinbasePayload struct {
	Version           uint16
	Height            uint32
	MerkleRootMNList  chainhash.Hash
	MerkleRootQuorums chainhash.Hash

	// The following are only present from CbTxVersionChainLock.
	BestCLHeightDiff  uint64
	BestCLSignature   BLSSignature
	CreditPoolBalance int64
}

// HasQuorumsRoot returns whether the payload carries a quorum merkle root.
func (p *CoinbasePayload) HasQuorumsRoot() bool {
	return p.Version >= CbTxVersionMerkleRootQuorums
}

// Serialize encodes the payload to w.
func (p *CoinbasePayload) Serialize(w io.Writer) error {
	err := writeElements(w, p.Version, p.Height, &p.MerkleRootMNList)
	if err != nil {
		return err
	}
	if p.Version >= CbTxVersionMerkleRootQuorums {
		err = WriteElement(w, &p.MerkleRootQuorums)
		if err != nil {
			return err
		}
	}
	if p.Version >= CbTxVersionChainLock {
		err = WriteVarInt(w, p.BestCLHeightDiff)
		if err != nil {
			return err
		}
		err = writeElements(w, &p.BestCLSignature, p.CreditPoolBalance)
		if err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes a payload from r into the receiver.
func (p *CoinbasePayload) Deserialize(r io.Reader) error {
	err := readElements(r, &p.Version, &p.Height, &p.MerkleRootMNList)
	if err != nil {
		return err
	}
	if p.Version == 0 {
		return messageError("CoinbasePayload.Deserialize", "coinbase payload version 0 is invalid")
	}
	if p.Version >= CbTxVersionMerkleRootQuorums {
		err = ReadElement(r, &p.MerkleRootQuorums)
		if err != nil {
			return err
		}
	}
	if p.Version >= CbTxVersionChainLock {
		p.BestCLHeightDiff, err = ReadVarInt(r)
		if err != nil {
			return err
		}
		err = readElements(r, &p.BestCLSignature, &p.CreditPoolBalance)
		if err != nil {
			return err
		}
	}
	return nil
}

// CoinbasePayload extracts the DIP4 payload of a coinbase special
// transaction.
func (msg *MsgTx) CoinbasePayload() (*CoinbasePayload, error) {
	if !msg.IsSpecial() || msg.Type != TxTypeCoinbase {
		str := fmt.Sprintf("transaction of version %d and type %d is not a "+
			"coinbase special transaction", msg.Version, msg.Type)
		return nil, messageError("MsgTx.CoinbasePayload", str)
	}
	payload := &CoinbasePayload{}
	r := bytes.NewReader(msg.ExtraPayload)
	err := payload.Deserialize(r)
	if err != nil {
		return nil, errors.Wrap(err, "malformed coinbase payload")
	}
	if r.Len() != 0 {
		str := fmt.Sprintf("%d trailing bytes after coinbase payload", r.Len())
		return nil, messageError("MsgTx.CoinbasePayload", str)
	}
	return payload, nil
}

// NewCoinbaseTx builds a coinbase special transaction carrying payload.
func NewCoinbaseTx(payload *CoinbasePayload, signatureScript []byte, outputs []*TxOut) (*MsgTx, error) {
	var buf bytes.Buffer
	err := payload.Serialize(&buf)
	if err != nil {
		return nil, err
	}
	return &MsgTx{
		Version: SpecialTxVersion,
		Type:    TxTypeCoinbase,
		TxIn: []*TxIn{{
			PreviousOutpoint: Outpoint{Index: 0xffffffff},
			SignatureScript:  signatureScript,
			Sequence:         0xffffffff,
		}},
		TxOut:        outputs,
		ExtraPayload: buf.Bytes(),
	}, nil
}
