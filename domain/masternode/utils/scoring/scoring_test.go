package scoring

import (
	"testing"

	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/holiman/uint256"
)

func TestScore(t *testing.T) {
	var hash chainhash.Hash
	hash[0] = 0x01
	if !Score(&hash).Eq(uint256.NewInt(1)) {
		t.Errorf("Score: got %s, want 1", Score(&hash))
	}

	hash = chainhash.Hash{}
	hash[31] = 0x80
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	if !Score(&hash).Eq(want) {
		t.Errorf("Score: got %s, want %s", Score(&hash), want)
	}
}

func TestModifier(t *testing.T) {
	var hash chainhash.Hash
	hash[3] = 7
	data := append([]byte{byte(wire.LLMQType50_60)}, hash[:]...)
	want := chainhash.DoubleHashH(data)
	if !Modifier(wire.LLMQType50_60, &hash).IsEqual(&want) {
		t.Errorf("Modifier: got %s, want %s", Modifier(wire.LLMQType50_60, &hash), want)
	}
}

func TestScoredLess(t *testing.T) {
	low := &Scored{Score: uint256.NewInt(1), Identifier: chainhash.Hash{9}}
	high := &Scored{Score: uint256.NewInt(2), Identifier: chainhash.Hash{1}}
	if !low.Less(high) || high.Less(low) {
		t.Errorf("Less must order by score first")
	}
	tieA := &Scored{Score: uint256.NewInt(2), Identifier: chainhash.Hash{1}}
	tieB := &Scored{Score: uint256.NewInt(2), Identifier: chainhash.Hash{2}}
	if !tieA.Less(tieB) || tieB.Less(tieA) {
		t.Errorf("Less must break ties by identifier")
	}
}
