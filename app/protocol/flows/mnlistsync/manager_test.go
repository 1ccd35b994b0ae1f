package mnlistsync

import (
	"context"
	"testing"
	"time"

	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/processes/diffdecoder"
	"github.com/dashevo/dashspv/domain/masternode/processor"
	"github.com/dashevo/dashspv/domain/masternode/retrievalcache"
	"github.com/dashevo/dashspv/domain/masternode/testutils"
	"github.com/dashevo/dashspv/infrastructure/network/netadapter/router"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
)

const testTimeout = 5 * time.Second

var acceptAll = model.ThresholdSignatureVerifierFunc(func(*chainhash.Hash, *wire.BLSSignature,
	[]*wire.BLSPublicKey, bool) bool {

	return true
})

// testChain holds the heights of blocks seed 20 to 29, at heights 100 to 109.
func testChain() map[chainhash.Hash]uint32 {
	heights := make(map[chainhash.Hash]uint32)
	for i := byte(0); i < 10; i++ {
		heights[*testutils.Hash(20 + i)] = 100 + uint32(i)
	}
	return heights
}

func newTestManager(t *testing.T, config *Config) (*Manager, *processor.Processor) {
	heights := testutils.HeightLookup(testChain())
	p := processor.New(&processor.Config{
		Params:            &chaincfg.RegressionNetParams,
		ProtocolVersion:   wire.ProtocolVersion,
		BlockHeightLookup: heights,
		SignatureVerifier: acceptAll,
		Cache: retrievalcache.New(retrievalcache.Config{
			RequestTimeout: config.RequestTimeout,
		}, nil),
	})
	p.Start()

	config.Params = &chaincfg.RegressionNetParams
	config.ProtocolVersion = wire.ProtocolVersion
	config.Processor = p
	config.BlockHeightLookup = heights
	if config.PollInterval == 0 {
		config.PollInterval = 10 * time.Millisecond
	}
	m := New(config)
	m.Start()
	t.Cleanup(func() {
		m.Stop()
		p.Stop()
	})
	return m, p
}

func diffPayload(t *testing.T, base *chainhash.Hash, seed byte) []byte {
	diff := testutils.Diff(base, testutils.Hash(seed), 100+uint32(seed-20), nil, nil)
	payload, err := diffdecoder.Encode(diff, wire.ProtocolVersion)
	if err != nil {
		t.Fatalf("Encode: %s", err)
	}
	return payload
}

func dequeueRequest(t *testing.T, peerRouter *router.Router) *wire.MsgGetMNListDiff {
	message, err := peerRouter.OutgoingRoute().DequeueWithTimeout(testTimeout)
	if err != nil {
		t.Fatalf("DequeueWithTimeout: %s", err)
	}
	if message.Command != wire.CmdGetMNListDiff {
		t.Fatalf("got a %s request, want %s", message.Command, wire.CmdGetMNListDiff)
	}
	msg, err := wire.ReadMessage(message.Command, message.Payload, wire.ProtocolVersion)
	if err != nil {
		t.Fatalf("ReadMessage: %s", err)
	}
	return msg.(*wire.MsgGetMNListDiff)
}

func TestRequestAndProcess(t *testing.T) {
	m, p := newTestManager(t, &Config{})
	lists := p.Subscribe()

	peerRouter, err := m.AddPeer("peer")
	if err != nil {
		t.Fatalf("AddPeer: %s", err)
	}
	if _, err := m.AddPeer("peer"); err == nil {
		t.Fatalf("AddPeer: expected an error for a duplicate peer")
	}

	target := testutils.Hash(21)
	if !m.RequestList(target) {
		t.Fatalf("RequestList: expected the list to be queued")
	}
	request := dequeueRequest(t, peerRouter)
	if !request.BlockHash.IsEqual(target) {
		t.Fatalf("requested %s, want %s", request.BlockHash, target)
	}
	if !request.BaseBlockHash.IsEqual(chaincfg.RegressionNetParams.GenesisHash) {
		t.Fatalf("expected a request from the empty list, got base %s", request.BaseBlockHash)
	}

	err = peerRouter.EnqueueIncomingMessage(&router.Message{
		Command: wire.CmdMNListDiff,
		Payload: diffPayload(t, &chainhash.ZeroHash, 21),
	})
	if err != nil {
		t.Fatalf("EnqueueIncomingMessage: %s", err)
	}
	select {
	case list := <-lists:
		if !list.BlockHash().IsEqual(target) {
			t.Fatalf("got the list at %s, want %s", list.BlockHash(), target)
		}
	case <-time.After(testTimeout):
		t.Fatalf("the requested list wasn't processed")
	}

	// The next request builds on the latest list.
	next := testutils.Hash(25)
	m.RequestList(next)
	request = dequeueRequest(t, peerRouter)
	if !request.BlockHash.IsEqual(next) || !request.BaseBlockHash.IsEqual(target) {
		t.Fatalf("requested %s from %s, want %s from %s",
			request.BlockHash, request.BaseBlockHash, next, target)
	}
}

func TestMisbehavingPeerIsBanned(t *testing.T) {
	banned := make(chan string, 1)
	m, _ := newTestManager(t, &Config{
		OnBan: func(peerID string) { banned <- peerID },
	})

	peerRouter, err := m.AddPeer("misbehaving")
	if err != nil {
		t.Fatalf("AddPeer: %s", err)
	}
	err = peerRouter.EnqueueIncomingMessage(&router.Message{
		Command: wire.CmdMNListDiff,
		Payload: []byte{0x01, 0x02},
	})
	if err != nil {
		t.Fatalf("EnqueueIncomingMessage: %s", err)
	}

	select {
	case peerID := <-banned:
		if peerID != "misbehaving" {
			t.Fatalf("banned %s, want misbehaving", peerID)
		}
	case <-time.After(testTimeout):
		t.Fatalf("the misbehaving peer wasn't banned")
	}

	deadline := time.Now().Add(testTimeout)
	for m.PeerCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("the banned peer wasn't removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBanScoreAccumulates(t *testing.T) {
	m, p := newTestManager(t, &Config{BanThreshold: 200})
	peerRouter, err := m.AddPeer("peer")
	if err != nil {
		t.Fatalf("AddPeer: %s", err)
	}

	// Lists committed to non zero roots by their coinbase.
	diff := testutils.WithRoots(
		testutils.Diff(&chainhash.ZeroHash, testutils.Hash(22), 102, nil, nil),
		102, testutils.Hash(1), testutils.Hash(2))
	payload, err := diffdecoder.Encode(diff, wire.ProtocolVersion)
	if err != nil {
		t.Fatalf("Encode: %s", err)
	}
	_, err = p.ProcessDiff(context.Background(), payload, "direct")
	expectedScore := banScore(err)
	if expectedScore == 0 {
		t.Fatalf("expected the diff to fail with a peer misbehavior, got %v", err)
	}

	err = peerRouter.EnqueueIncomingMessage(&router.Message{Command: wire.CmdMNListDiff, Payload: payload})
	if err != nil {
		t.Fatalf("EnqueueIncomingMessage: %s", err)
	}
	deadline := time.Now().Add(testTimeout)
	for {
		score, ok := m.BanScore("peer")
		if !ok {
			t.Fatalf("the peer was removed before reaching the ban threshold")
		}
		if score == expectedScore {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("got ban score %d, want %d", score, expectedScore)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRequestTimeoutRequeues(t *testing.T) {
	m, p := newTestManager(t, &Config{RequestTimeout: 50 * time.Millisecond})
	peerRouter, err := m.AddPeer("slow")
	if err != nil {
		t.Fatalf("AddPeer: %s", err)
	}

	target := testutils.Hash(23)
	m.RequestList(target)
	first := dequeueRequest(t, peerRouter)
	second := dequeueRequest(t, peerRouter)
	if !first.BlockHash.IsEqual(target) || !second.BlockHash.IsEqual(target) {
		t.Fatalf("expected %s to be requested again after the timeout, got %s and %s",
			target, first.BlockHash, second.BlockHash)
	}
	if state, ok := p.Cache().State(target); !ok || state == retrievalcache.StateSatisfied {
		t.Fatalf("unexpected retrieval state %s", state)
	}
}

func TestReorg(t *testing.T) {
	m, p := newTestManager(t, &Config{})

	base := &chainhash.ZeroHash
	for seed := byte(20); seed < 25; seed++ {
		_, err := p.ProcessDiff(context.Background(), diffPayload(t, base, seed), "direct")
		if err != nil {
			t.Fatalf("ProcessDiff: %s", err)
		}
		base = testutils.Hash(seed)
	}
	m.RequestList(testutils.Hash(27))
	m.RequestList(testutils.Hash(99))

	cancelled := m.Reorg(102)
	if cancelled != 1 {
		t.Fatalf("Reorg cancelled %d retrievals, want 1", cancelled)
	}
	if _, ok := p.Cache().State(testutils.Hash(27)); ok {
		t.Fatalf("the retrieval above the fork wasn't cancelled")
	}
	if _, ok := p.Cache().State(testutils.Hash(99)); !ok {
		t.Fatalf("the retrieval of a block of unknown height was cancelled")
	}
	latest, ok := p.Cache().Latest()
	if !ok || latest.Height() != 102 {
		t.Fatalf("expected the latest list at the fork height, got %v", latest)
	}
	if _, ok := p.Cache().Get(testutils.Hash(24)); ok {
		t.Fatalf("the list above the fork wasn't evicted")
	}
}

func TestAnswerWaitingForItsBase(t *testing.T) {
	m, p := newTestManager(t, &Config{})
	peerRouter, err := m.AddPeer("peer")
	if err != nil {
		t.Fatalf("AddPeer: %s", err)
	}

	target, base := testutils.Hash(25), testutils.Hash(22)
	m.RequestList(target)
	request := dequeueRequest(t, peerRouter)
	if !request.BlockHash.IsEqual(target) {
		t.Fatalf("requested %s, want %s", request.BlockHash, target)
	}
	err = peerRouter.EnqueueIncomingMessage(&router.Message{
		Command: wire.CmdMNListDiff,
		Payload: diffPayload(t, base, 25),
	})
	if err != nil {
		t.Fatalf("EnqueueIncomingMessage: %s", err)
	}

	// The answered request no longer counts as in flight while the missing
	// base is requested.
	request = dequeueRequest(t, peerRouter)
	if !request.BlockHash.IsEqual(base) {
		t.Fatalf("requested %s, want the missing base %s", request.BlockHash, base)
	}
	if state, _ := p.Cache().State(target); state == retrievalcache.StateInFlight {
		t.Fatalf("the answered retrieval of %s is still in flight", target)
	}
	if p.Cache().InFlight() != 1 {
		t.Fatalf("got %d retrievals in flight, want 1", p.Cache().InFlight())
	}

	err = peerRouter.EnqueueIncomingMessage(&router.Message{
		Command: wire.CmdMNListDiff,
		Payload: diffPayload(t, &chainhash.ZeroHash, 22),
	})
	if err != nil {
		t.Fatalf("EnqueueIncomingMessage: %s", err)
	}
	deadline := time.Now().Add(testTimeout)
	for {
		if _, ok := p.Cache().Get(target); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("the waiting answer wasn't processed once its base arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if p.Cache().InFlight() != 0 {
		t.Fatalf("got %d retrievals in flight, want none", p.Cache().InFlight())
	}
}
