package wire

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/dashevo/dashspv/util/bitset"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/davecgh/go-spew/spew"
	fuzz "github.com/google/gofuzz"
	"github.com/pkg/errors"
)

func testHash(seed string) chainhash.Hash {
	return chainhash.DoubleHashH([]byte(seed))
}

func testHashPtr(seed string) *chainhash.Hash {
	hash := testHash(seed)
	return &hash
}

func testEntry(seed string, version uint16, mnType uint16) *SMLEntry {
	entry := &SMLEntry{
		Version:       version,
		ProRegTxHash:  testHash(seed + "/proregtx"),
		ConfirmedHash: testHash(seed + "/confirmed"),
		Port:          9999,
		IsValid:       true,
		Type:          mnType,
	}
	copy(entry.IP[:], []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 10, 0, 0, 1})
	copy(entry.OperatorPublicKey[:], bytes.Repeat([]byte(seed), BLSPublicKeySize))
	copy(entry.KeyIDVoting[:], bytes.Repeat([]byte(seed), KeyIDSize))
	if mnType == MasternodeTypeEvo {
		entry.PlatformHTTPPort = 443
		copy(entry.PlatformNodeID[:], bytes.Repeat([]byte("p"), KeyIDSize))
	}
	return entry
}

func testCommitment(seed string, version uint16, size int) *QuorumCommitment {
	signers := bitset.New(size)
	valid := bitset.New(size)
	for i := 0; i < size; i++ {
		signers.Set(i, i%3 != 0)
		valid.Set(i, true)
	}
	commitment := &QuorumCommitment{
		Version:        version,
		LLMQType:       LLMQTypeTest,
		QuorumHash:     testHash(seed + "/quorum"),
		Signers:        signers,
		ValidMembers:   valid,
		QuorumVvecHash: testHash(seed + "/vvec"),
	}
	if commitment.IsIndexed() {
		commitment.QuorumIndex = 1
	}
	copy(commitment.QuorumPublicKey[:], bytes.Repeat([]byte(seed), BLSPublicKeySize))
	copy(commitment.QuorumSig[:], bytes.Repeat([]byte("q"), BLSSignatureSize))
	copy(commitment.MembersSig[:], bytes.Repeat([]byte("m"), BLSSignatureSize))
	return commitment
}

func testDiff(t *testing.T, pver uint32) *MsgMNListDiff {
	entryVersion := SMLEntryVersionLegacyBLS
	if pver >= VersionedEntriesProtocolVersion {
		entryVersion = SMLEntryVersionBasicBLS
	}
	cbTx, err := NewCoinbaseTx(&CoinbasePayload{
		Version:           CbTxVersionChainLock,
		Height:            1000,
		MerkleRootMNList:  testHash("mnroot"),
		MerkleRootQuorums: testHash("quorumroot"),
		BestCLHeightDiff:  3,
		CreditPoolBalance: 12345,
	}, []byte{0x02, 0xe8, 0x03}, []*TxOut{{Value: 500000000, PkScript: []byte{0x51}}})
	if err != nil {
		t.Fatalf("NewCoinbaseTx: %s", err)
	}

	msg := &MsgMNListDiff{
		Version:       MNListDiffVersion,
		BaseBlockHash: testHashPtr("base"),
		BlockHash:     testHashPtr("block"),
		CbTxMerkleTree: &PartialMerkleTree{
			TotalTransactions: 1,
			Hashes:            []*chainhash.Hash{cbTx.TxHash()},
			Flags:             []byte{0x01},
		},
		CbTx:       cbTx,
		DeletedMNs: []*chainhash.Hash{testHashPtr("deleted")},
		MNList: []*SMLEntry{
			testEntry("a", entryVersion, MasternodeTypeRegular),
			testEntry("b", entryVersion, MasternodeTypeRegular),
		},
		DeletedQuorums: []*DeletedQuorum{{LLMQType: LLMQTypeTest, QuorumHash: testHash("old quorum")}},
		NewQuorums:     []*QuorumCommitment{testCommitment("q1", QuorumCommitmentVersionLegacy, 3)},
	}
	if entryVersion == SMLEntryVersionBasicBLS {
		msg.MNList = append(msg.MNList, testEntry("c", entryVersion, MasternodeTypeEvo))
		msg.NewQuorums = append(msg.NewQuorums, testCommitment("q2", QuorumCommitmentVersionBasicIndexed, 4))
	}
	if pver >= ChainLockSigsProtocolVersion {
		msg.QuorumsCLSigs = []*QuorumCLSig{{QuorumIndexes: []uint16{0, 1}}}
	}
	return msg
}

// TestMNListDiffWire tests the MsgMNListDiff wire encode and decode for
// every protocol version that changed its layout.
func TestMNListDiffWire(t *testing.T) {
	pvers := []uint32{
		MinProtocolVersion,
		BLSSchemeProtocolVersion,
		VersionedEntriesProtocolVersion,
		DiffVersionFirstProtocolVersion,
		ChainLockSigsProtocolVersion,
		ProtocolVersion,
	}

	for _, pver := range pvers {
		msg := testDiff(t, pver)
		payload, err := WriteMessage(msg, pver)
		if err != nil {
			t.Fatalf("WriteMessage (pver %d): %s", pver, err)
		}

		decoded, err := ReadMessage(CmdMNListDiff, payload, pver)
		if err != nil {
			t.Fatalf("ReadMessage (pver %d): %s", pver, err)
		}
		if !reflect.DeepEqual(decoded, msg) {
			t.Errorf("ReadMessage (pver %d)\n got: %s want: %s", pver,
				spew.Sdump(decoded), spew.Sdump(msg))
		}
	}
}

// TestMNListDiffTruncated makes sure every truncated payload is rejected
// instead of being partially decoded.
func TestMNListDiffTruncated(t *testing.T) {
	pver := ProtocolVersion
	payload, err := WriteMessage(testDiff(t, pver), pver)
	if err != nil {
		t.Fatalf("WriteMessage: %s", err)
	}
	for i := 0; i < len(payload); i++ {
		_, err := ReadMessage(CmdMNListDiff, payload[:i], pver)
		if err == nil {
			t.Fatalf("ReadMessage: payload truncated to %d of %d bytes was accepted", i, len(payload))
		}
	}

	_, err = ReadMessage(CmdMNListDiff, append(payload, 0x00), pver)
	var msgErr *MessageError
	if !errors.As(err, &msgErr) {
		t.Errorf("ReadMessage: got error %v for trailing bytes, want a MessageError", err)
	}
}

func TestMNListDiffUnknownQuorumType(t *testing.T) {
	pver := MinProtocolVersion
	msg := testDiff(t, pver)
	msg.DeletedQuorums[0].LLMQType = LLMQType(42)
	payload, err := WriteMessage(msg, pver)
	if err != nil {
		t.Fatalf("WriteMessage: %s", err)
	}
	_, err = ReadMessage(CmdMNListDiff, payload, pver)
	var msgErr *MessageError
	if !errors.As(err, &msgErr) {
		t.Errorf("ReadMessage: got error %v, want a MessageError", err)
	}
}

func TestSMLEntryHash(t *testing.T) {
	entry := testEntry("a", SMLEntryVersionLegacyBLS, MasternodeTypeRegular)
	var buf bytes.Buffer
	err := entry.Serialize(&buf)
	if err != nil {
		t.Fatalf("Serialize: %s", err)
	}
	if buf.Len() != SMLEntryPayloadSize || SMLEntryPayloadSize != 151 {
		t.Fatalf("Serialize: got %d bytes, want 151", buf.Len())
	}
	// The port is the only big endian field.
	portOffset := 2*chainhash.HashSize + 16
	if buf.Bytes()[portOffset] != 0x27 || buf.Bytes()[portOffset+1] != 0x0f {
		t.Errorf("Serialize: port is not big endian: %x", buf.Bytes()[portOffset:portOffset+2])
	}
	if *entry.Hash() != chainhash.DoubleHashH(buf.Bytes()) {
		t.Errorf("Hash: does not match the double sha256 of the serialized entry")
	}

	// The version prefix is a relay detail and is not hashed.
	var relayed bytes.Buffer
	_ = entry.DashEncode(&relayed, VersionedEntriesProtocolVersion)
	if !bytes.Equal(relayed.Bytes()[2:], buf.Bytes()) {
		t.Errorf("DashEncode: unexpected relay form %x", relayed.Bytes())
	}
}

func TestCommitmentHash(t *testing.T) {
	commitment := testCommitment("q", QuorumCommitmentVersionLegacy, 3)

	var buf bytes.Buffer
	_ = WriteElement(&buf, commitment.LLMQType)
	buf.Write(commitment.QuorumHash[:])
	buf.Write([]byte{0x03, 0x07})
	buf.Write(commitment.QuorumPublicKey[:])
	buf.Write(commitment.QuorumVvecHash[:])
	if *commitment.CommitmentHash() != chainhash.DoubleHashH(buf.Bytes()) {
		t.Errorf("CommitmentHash: unexpected hash %s", commitment.CommitmentHash())
	}

	// Signatures and signers aren't part of the commitment hash.
	commitment.QuorumSig[0] ^= 1
	commitment.Signers.Set(0, true)
	if *commitment.CommitmentHash() != chainhash.DoubleHashH(buf.Bytes()) {
		t.Errorf("CommitmentHash: changed with the signatures")
	}
}

func TestCoinbasePayloadVersions(t *testing.T) {
	for _, version := range []uint16{CbTxVersionMerkleRootMNList, CbTxVersionMerkleRootQuorums, CbTxVersionChainLock} {
		payload := &CoinbasePayload{
			Version:          version,
			Height:           7,
			MerkleRootMNList: testHash("mn"),
		}
		if version >= CbTxVersionMerkleRootQuorums {
			payload.MerkleRootQuorums = testHash("quorums")
		}
		if version >= CbTxVersionChainLock {
			payload.BestCLHeightDiff = 300
			payload.CreditPoolBalance = -1
		}
		tx, err := NewCoinbaseTx(payload, nil, nil)
		if err != nil {
			t.Fatalf("NewCoinbaseTx: %s", err)
		}
		if !tx.IsCoinBase() {
			t.Errorf("IsCoinBase: coinbase transaction not detected")
		}
		decoded, err := tx.CoinbasePayload()
		if err != nil {
			t.Fatalf("CoinbasePayload (version %d): %s", version, err)
		}
		if !reflect.DeepEqual(decoded, payload) {
			t.Errorf("CoinbasePayload (version %d)\n got: %s want: %s", version,
				spew.Sdump(decoded), spew.Sdump(payload))
		}
	}

	notCoinbase := &MsgTx{Version: 2}
	if _, err := notCoinbase.CoinbasePayload(); err == nil {
		t.Errorf("CoinbasePayload: expected an error for a regular transaction")
	}
}

func TestQRInfoWire(t *testing.T) {
	pver := ProtocolVersion
	snapshot := func(seed int32) *LLMQSnapshot {
		return &LLMQSnapshot{
			SkipListMode:        LLMQSkipModeSkipFirst,
			ActiveQuorumMembers: []bool{true, false, true, true, false, false, true, false, true},
			SkipList:            []int32{seed, seed + 1},
		}
	}
	msg := &MsgQRInfo{
		SnapshotAtHMinusC:    snapshot(1),
		SnapshotAtHMinus2C:   snapshot(2),
		SnapshotAtHMinus3C:   snapshot(3),
		MNListDiffTip:        testDiff(t, pver),
		MNListDiffAtH:        testDiff(t, pver),
		MNListDiffAtHMinusC:  testDiff(t, pver),
		MNListDiffAtHMinus2C: testDiff(t, pver),
		MNListDiffAtHMinus3C: testDiff(t, pver),
		ExtraShare:           true,
		SnapshotAtHMinus4C:   snapshot(4),
		MNListDiffAtHMinus4C: testDiff(t, pver),
		LastCommitmentPerIndex: []*QuorumCommitment{
			testCommitment("last0", QuorumCommitmentVersionBasicIndexed, 4),
		},
		SnapshotList:   []*LLMQSnapshot{snapshot(5)},
		MNListDiffList: []*MsgMNListDiff{testDiff(t, pver)},
	}

	payload, err := WriteMessage(msg, pver)
	if err != nil {
		t.Fatalf("WriteMessage: %s", err)
	}
	decoded, err := ReadMessage(CmdQRInfo, payload, pver)
	if err != nil {
		t.Fatalf("ReadMessage: %s", err)
	}
	if !reflect.DeepEqual(decoded, msg) {
		t.Errorf("ReadMessage\n got: %s want: %s", spew.Sdump(decoded), spew.Sdump(msg))
	}
}

func TestRequestsWire(t *testing.T) {
	requests := []Message{
		NewMsgGetMNListDiff(&chainhash.ZeroHash, testHashPtr("block")),
		NewMsgGetQRInfo([]*chainhash.Hash{testHashPtr("base1"), testHashPtr("base2")}, testHashPtr("block"), true),
	}
	for _, request := range requests {
		payload, err := WriteMessage(request, ProtocolVersion)
		if err != nil {
			t.Fatalf("WriteMessage %s: %s", request.Command(), err)
		}
		decoded, err := ReadMessage(request.Command(), payload, ProtocolVersion)
		if err != nil {
			t.Fatalf("ReadMessage %s: %s", request.Command(), err)
		}
		if !reflect.DeepEqual(decoded, request) {
			t.Errorf("ReadMessage %s\n got: %s want: %s", request.Command(),
				spew.Sdump(decoded), spew.Sdump(request))
		}
	}

	if _, err := ReadMessage("unknown", nil, ProtocolVersion); err == nil {
		t.Errorf("ReadMessage: expected an error for an unknown command")
	}
}

// TestMNListDiffFuzz makes sure random payloads never panic the decoder.
func TestMNListDiffFuzz(t *testing.T) {
	fuzzer := fuzz.NewWithSeed(1).NilChance(0)
	valid, err := WriteMessage(testDiff(t, ProtocolVersion), ProtocolVersion)
	if err != nil {
		t.Fatalf("WriteMessage: %s", err)
	}

	for i := 0; i < 500; i++ {
		var random []byte
		fuzzer.Fuzz(&random)
		_, _ = ReadMessage(CmdMNListDiff, random, ProtocolVersion)
		_, _ = ReadMessage(CmdQRInfo, random, ProtocolVersion)

		// Corrupt a few bytes of a valid payload.
		corrupted := append([]byte(nil), valid...)
		var position uint16
		var value byte
		fuzzer.Fuzz(&position)
		fuzzer.Fuzz(&value)
		corrupted[int(position)%len(corrupted)] = value
		_, _ = ReadMessage(CmdMNListDiff, corrupted, ProtocolVersion)
	}
}
