package bitset

import (
	"bytes"
	"reflect"
	"testing"
)

func TestBitSet(t *testing.T) {
	set := New(10)
	if len(set.Bytes()) != 2 {
		t.Fatalf("New: got %d bytes, want 2", len(set.Bytes()))
	}
	set.Set(0, true)
	set.Set(3, true)
	set.Set(9, true)

	if !bytes.Equal(set.Bytes(), []byte{0x09, 0x02}) {
		t.Errorf("Bytes: got %x, want 0902", set.Bytes())
	}
	if set.Count() != 3 {
		t.Errorf("Count: got %d, want 3", set.Count())
	}
	if !reflect.DeepEqual(set.Indexes(), []int{0, 3, 9}) {
		t.Errorf("Indexes: got %v", set.Indexes())
	}
	if set.Get(10) || set.Get(-1) {
		t.Errorf("Get: out of range bits must be unset")
	}

	set.Set(3, false)
	if set.Get(3) || set.Count() != 2 {
		t.Errorf("Set: bit 3 was not cleared")
	}
}

func TestFromBytes(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		data    []byte
		wantErr bool
	}{
		{"empty", 0, []byte{}, false},
		{"exact byte", 8, []byte{0xff}, false},
		{"partial byte", 5, []byte{0x1f}, false},
		{"bit past end", 5, []byte{0x20}, true},
		{"too short", 9, []byte{0xff}, true},
		{"too long", 8, []byte{0xff, 0x00}, true},
	}

	for _, test := range tests {
		set, err := FromBytes(test.size, test.data)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: got error %v, wantErr %t", test.name, err, test.wantErr)
			continue
		}
		if err == nil && !bytes.Equal(set.Bytes(), test.data) {
			t.Errorf("%s: got %x, want %x", test.name, set.Bytes(), test.data)
		}
	}
}

func TestFromBytesCopies(t *testing.T) {
	data := []byte{0x01}
	set, err := FromBytes(8, data)
	if err != nil {
		t.Fatalf("FromBytes: %s", err)
	}
	data[0] = 0xff
	if set.Count() != 1 {
		t.Errorf("FromBytes must not alias its input")
	}
	if !set.Equal(set.Clone()) {
		t.Errorf("Clone: clone not equal to original")
	}
}
