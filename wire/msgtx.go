// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dashevo/dashspv/util/chainhash"
)

const (
	// SpecialTxVersion is the first transaction version that may carry a
	// special transaction type and extra payload (DIP2).
	SpecialTxVersion = 3

	// TxTypeNormal is the type of regular transactions.
	TxTypeNormal uint16 = 0

	// TxTypeCoinbase is the type of DIP4 coinbase special transactions.
	TxTypeCoinbase uint16 = 5

	// maxTxInPerMessage and maxTxOutPerMessage bound the number of inputs
	// and outputs a transaction within a message can hold, by their minimal
	// serialized sizes.
	maxTxInPerMessage  = MaxMessagePayload / minTxInPayload
	maxTxOutPerMessage = MaxMessagePayload / minTxOutPayload

	// minTxInPayload is the minimum payload size for a transaction input.
	// PreviousOutPoint.TxID + PreviousOutPoint.Index 4 bytes + Varint for
	// SignatureScript length 1 byte + Sequence 4 bytes.
	minTxInPayload = 9 + chainhash.HashSize

	// minTxOutPayload is the minimum payload size for a transaction output.
	// Value 8 bytes + Varint for PkScript length 1 byte.
	minTxOutPayload = 9

	// MaxExtraPayloadSize is the maximum size of a special transaction
	// payload.
	MaxExtraPayloadSize = 10000
)

// Outpoint defines a dash data type that is used to track previous
// transaction outputs.
type Outpoint struct {
	TxID  chainhash.Hash
	Index uint32
}

// TxIn defines a dash transaction input.
type TxIn struct {
	PreviousOutpoint Outpoint
	SignatureScript  []byte
	Sequence         uint32
}

// TxOut defines a dash transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// MsgTx implements the dash transaction format, including the DIP2 special
// transaction type and extra payload.
type MsgTx struct {
	Version      uint16
	Type         uint16
	TxIn         []*TxIn
	TxOut        []*TxOut
	LockTime     uint32
	ExtraPayload []byte
}

// IsSpecial returns whether the transaction carries a special type and an
// extra payload.
func (msg *MsgTx) IsSpecial() bool {
	return msg.Version >= SpecialTxVersion && msg.Type != TxTypeNormal
}

// TxHash generates the hash of the transaction.
func (msg *MsgTx) TxHash() *chainhash.Hash {
	writer := chainhash.NewDoubleHashWriter()
	err := msg.Serialize(writer)
	if err != nil {
		// Writing to a hash writer never fails.
		panic(err)
	}
	hash := writer.Finalize()
	return &hash
}

// Serialize encodes the transaction to w.
func (msg *MsgTx) Serialize(w io.Writer) error {
	err := WriteElement(w, uint32(msg.Version)|uint32(msg.Type)<<16)
	if err != nil {
		return err
	}

	err = WriteVarInt(w, uint64(len(msg.TxIn)))
	if err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		err = writeElements(w, &ti.PreviousOutpoint.TxID, ti.PreviousOutpoint.Index)
		if err != nil {
			return err
		}
		err = WriteVarBytes(w, ti.SignatureScript)
		if err != nil {
			return err
		}
		err = WriteElement(w, ti.Sequence)
		if err != nil {
			return err
		}
	}

	err = WriteVarInt(w, uint64(len(msg.TxOut)))
	if err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		err = WriteElement(w, to.Value)
		if err != nil {
			return err
		}
		err = WriteVarBytes(w, to.PkScript)
		if err != nil {
			return err
		}
	}

	err = WriteElement(w, msg.LockTime)
	if err != nil {
		return err
	}

	if msg.IsSpecial() {
		return WriteVarBytes(w, msg.ExtraPayload)
	}
	return nil
}

// Deserialize decodes a transaction from r into the receiver.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	var versionAndType uint32
	err := ReadElement(r, &versionAndType)
	if err != nil {
		return err
	}
	msg.Version = uint16(versionAndType)
	msg.Type = uint16(versionAndType >> 16)

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(maxTxInPerMessage) {
		str := fmt.Sprintf("too many input transactions to fit into "+
			"max message size [count %d, max %d]", count,
			maxTxInPerMessage)
		return messageError("MsgTx.Deserialize", str)
	}
	msg.TxIn = make([]*TxIn, count)
	for i := range msg.TxIn {
		ti := &TxIn{}
		err = readElements(r, &ti.PreviousOutpoint.TxID, &ti.PreviousOutpoint.Index)
		if err != nil {
			return err
		}
		ti.SignatureScript, err = ReadVarBytes(r, MaxMessagePayload, "transaction input signature script")
		if err != nil {
			return err
		}
		err = ReadElement(r, &ti.Sequence)
		if err != nil {
			return err
		}
		msg.TxIn[i] = ti
	}

	count, err = ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(maxTxOutPerMessage) {
		str := fmt.Sprintf("too many output transactions to fit into "+
			"max message size [count %d, max %d]", count,
			maxTxOutPerMessage)
		return messageError("MsgTx.Deserialize", str)
	}
	msg.TxOut = make([]*TxOut, count)
	for i := range msg.TxOut {
		to := &TxOut{}
		err = ReadElement(r, &to.Value)
		if err != nil {
			return err
		}
		to.PkScript, err = ReadVarBytes(r, MaxMessagePayload, "transaction output public key script")
		if err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	err = ReadElement(r, &msg.LockTime)
	if err != nil {
		return err
	}

	msg.ExtraPayload = nil
	if msg.IsSpecial() {
		msg.ExtraPayload, err = ReadVarBytes(r, MaxExtraPayloadSize, "special transaction payload")
		if err != nil {
			return err
		}
	}
	return nil
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (msg *MsgTx) SerializeSize() int {
	var buf bytes.Buffer
	_ = msg.Serialize(&buf)
	return buf.Len()
}

// IsCoinBase determines whether or not a transaction is a coinbase. A coinbase
// has a single input spending the zero hash at the max index.
func (msg *MsgTx) IsCoinBase() bool {
	if len(msg.TxIn) != 1 {
		return false
	}
	prevOut := &msg.TxIn[0].PreviousOutpoint
	return prevOut.Index == 0xffffffff && prevOut.TxID.IsZero()
}
