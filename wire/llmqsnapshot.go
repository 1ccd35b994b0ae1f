package wire

import (
	"fmt"
	"io"
)

// LLMQSkipMode describes how the skip list of an LLMQ snapshot applies to
// the quorum members of a rotation cycle.
type LLMQSkipMode int32

// Skip list modes.
const (
	LLMQSkipModeNoSkipping LLMQSkipMode = iota
	LLMQSkipModeSkipFirst
	LLMQSkipModeSkipExcept
	LLMQSkipModeSkipAll
)

// LLMQSnapshot describes the quorum membership of a rotation cycle, as
// relayed in qrinfo.
type LLMQSnapshot struct {
	SkipListMode        LLMQSkipMode
	ActiveQuorumMembers []bool
	SkipList            []int32
}

// Serialize encodes the snapshot to w.
func (s *LLMQSnapshot) Serialize(w io.Writer) error {
	err := WriteElement(w, int32(s.SkipListMode))
	if err != nil {
		return err
	}
	err = WriteVarInt(w, uint64(len(s.ActiveQuorumMembers)))
	if err != nil {
		return err
	}
	bits := make([]byte, (len(s.ActiveQuorumMembers)+7)/8)
	for i, active := range s.ActiveQuorumMembers {
		if active {
			bits[i/8] |= 1 << uint(i%8)
		}
	}
	_, err = w.Write(bits)
	if err != nil {
		return err
	}
	err = WriteVarInt(w, uint64(len(s.SkipList)))
	if err != nil {
		return err
	}
	for _, skipped := range s.SkipList {
		err = WriteElement(w, skipped)
		if err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes a snapshot from r into the receiver.
func (s *LLMQSnapshot) Deserialize(r io.Reader) error {
	var mode int32
	err := ReadElement(r, &mode)
	if err != nil {
		return err
	}
	s.SkipListMode = LLMQSkipMode(mode)
	if s.SkipListMode < LLMQSkipModeNoSkipping || s.SkipListMode > LLMQSkipModeSkipAll {
		str := fmt.Sprintf("unknown skip list mode %d", mode)
		return messageError("LLMQSnapshot.Deserialize", str)
	}

	count, err := readCount(r, 1, "active quorum members")
	if err != nil {
		return err
	}
	bits := make([]byte, (count+7)/8)
	_, err = io.ReadFull(r, bits)
	if err != nil {
		return err
	}
	s.ActiveQuorumMembers = make([]bool, count)
	for i := range s.ActiveQuorumMembers {
		s.ActiveQuorumMembers[i] = bits[i/8]&(1<<uint(i%8)) != 0
	}

	count, err = readCount(r, 4, "skip list entries")
	if err != nil {
		return err
	}
	s.SkipList = make([]int32, count)
	for i := range s.SkipList {
		err = ReadElement(r, &s.SkipList[i])
		if err != nil {
			return err
		}
	}
	return nil
}
