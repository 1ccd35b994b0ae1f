// Package bitset implements the compact member bit-vectors carried by quorum
// commitments and LLMQ snapshots. Bit i lives in byte i/8 at position i%8,
// least significant bit first, and the vector is always exactly
// ByteLen(size) bytes long.
package bitset

import (
	"github.com/pkg/errors"
)

// BitSet is a fixed size vector of bits.
type BitSet struct {
	size int
	data []byte
}

// ByteLen returns the number of bytes needed to hold size bits.
func ByteLen(size int) int {
	return (size + 7) / 8
}

// New returns an all-zero BitSet of the given size.
func New(size int) *BitSet {
	return &BitSet{size: size, data: make([]byte, ByteLen(size))}
}

// FromBytes builds a BitSet of the given size out of its serialized form.
// It fails if the byte length doesn't match the size, or if any bit past
// size is set.
func FromBytes(size int, data []byte) (*BitSet, error) {
	if size < 0 {
		return nil, errors.Errorf("negative bitset size %d", size)
	}
	if len(data) != ByteLen(size) {
		return nil, errors.Errorf("bitset of size %d must be %d bytes long, got %d",
			size, ByteLen(size), len(data))
	}
	if size%8 != 0 {
		mask := byte(0xff) << uint(size%8)
		if data[len(data)-1]&mask != 0 {
			return nil, errors.Errorf("bitset of size %d has bits set past its end", size)
		}
	}
	cloned := make([]byte, len(data))
	copy(cloned, data)
	return &BitSet{size: size, data: cloned}, nil
}

// Size returns the number of bits in the set.
func (b *BitSet) Size() int {
	return b.size
}

// Get returns whether bit i is set. Out of range bits are reported as unset.
func (b *BitSet) Get(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	return b.data[i/8]&(1<<uint(i%8)) != 0
}

// Set sets or clears bit i. It panics if i is out of range.
func (b *BitSet) Set(i int, value bool) {
	if i < 0 || i >= b.size {
		panic(errors.Errorf("bit %d out of range [0, %d)", i, b.size))
	}
	if value {
		b.data[i/8] |= 1 << uint(i%8)
	} else {
		b.data[i/8] &^= 1 << uint(i%8)
	}
}

// Count returns the number of set bits.
func (b *BitSet) Count() int {
	count := 0
	for i := 0; i < b.size; i++ {
		if b.Get(i) {
			count++
		}
	}
	return count
}

// Indexes returns the positions of all set bits in ascending order.
func (b *BitSet) Indexes() []int {
	indexes := make([]int, 0, b.Count())
	for i := 0; i < b.size; i++ {
		if b.Get(i) {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// Bytes returns a copy of the serialized bits.
func (b *BitSet) Bytes() []byte {
	cloned := make([]byte, len(b.data))
	copy(cloned, b.data)
	return cloned
}

// Clone returns a deep copy of b.
func (b *BitSet) Clone() *BitSet {
	return &BitSet{size: b.size, data: b.Bytes()}
}

// Equal returns whether both sets have the same size and bits.
func (b *BitSet) Equal(other *BitSet) bool {
	if b == nil || other == nil {
		return b == other
	}
	if b.size != other.size {
		return false
	}
	for i := range b.data {
		if b.data[i] != other.data[i] {
			return false
		}
	}
	return true
}
