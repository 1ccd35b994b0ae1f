package mnlistsync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dashevo/dashspv/app/protocol/protocolerrors"
	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/processor"
	"github.com/dashevo/dashspv/domain/masternode/retrievalcache"
	"github.com/dashevo/dashspv/infrastructure/metrics"
	"github.com/dashevo/dashspv/infrastructure/network/netadapter/router"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

const (
	// DefaultRequestTimeout is how long a peer has to answer a request.
	DefaultRequestTimeout = retrievalcache.DefaultRequestTimeout

	// DefaultPollInterval is how often an idle peer checks for queued
	// retrievals.
	DefaultPollInterval = time.Second
)

// ErrPeerWithSameIDExists signifies that a peer with the same ID already exist.
var ErrPeerWithSameIDExists = errors.New("peer with the same ID already exists")

// Config holds the collaborators and limits of a Manager.
type Config struct {
	Params          *chaincfg.Params
	ProtocolVersion uint32
	Processor       *processor.Processor

	// BlockHeightLookup resolves the heights of requested blocks. It
	// chooses between getmnlistd and getqrinfo and finds the retrievals a
	// reorg cancels.
	BlockHeightLookup model.BlockHeightLookup

	RequestTimeout time.Duration
	PollInterval   time.Duration
	BanThreshold   uint32

	// UseQRInfo requests qrinfo for blocks past the rotated quorums
	// activation instead of mnlistdiff.
	UseQRInfo bool

	// OnBan is called with the ID of every banned peer. It's optional.
	OnBan func(peerID string)
}

// Manager requests the masternode lists queued in the retrieval cache from
// the connected peers and hands their answers to the processor.
type Manager struct {
	params            *chaincfg.Params
	protocolVersion   uint32
	processor         *processor.Processor
	cache             *retrievalcache.RetrievalCache
	blockHeightLookup model.BlockHeightLookup
	requestTimeout    time.Duration
	pollInterval      time.Duration
	banThreshold      uint32
	useQRInfo         bool
	onBan             func(peerID string)

	peersLock sync.Mutex
	peers     map[string]*peer

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	started      int32
	stopped      int32
}

// New instantiates a new Manager
func New(config *Config) *Manager {
	protocolVersion := config.ProtocolVersion
	if protocolVersion == 0 {
		protocolVersion = config.Params.ProtocolVersion
	}
	requestTimeout := config.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	pollInterval := config.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	banThreshold := config.BanThreshold
	if banThreshold == 0 {
		banThreshold = DefaultBanThreshold
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		params:            config.Params,
		protocolVersion:   protocolVersion,
		processor:         config.Processor,
		cache:             config.Processor.Cache(),
		blockHeightLookup: config.BlockHeightLookup,
		requestTimeout:    requestTimeout,
		pollInterval:      pollInterval,
		banThreshold:      banThreshold,
		useQRInfo:         config.UseQRInfo,
		onBan:             config.OnBan,
		peers:             make(map[string]*peer),
		ctx:               ctx,
		cancel:            cancel,
		shutdownChan:      make(chan struct{}),
	}
}

// Start starts requeuing the requests peers fail to answer in time.
func (m *Manager) Start() {
	if atomic.AddInt32(&m.started, 1) != 1 {
		return
	}
	m.wg.Add(1)
	spawn("Manager.timeoutLoop", m.timeoutLoop)
}

// Stop disconnects every peer and waits for their flows to end.
func (m *Manager) Stop() {
	if atomic.AddInt32(&m.stopped, 1) != 1 {
		return
	}
	close(m.shutdownChan)
	m.cancel()

	m.peersLock.Lock()
	for _, peer := range m.peers {
		peer.router.Close()
	}
	m.peersLock.Unlock()

	m.wg.Wait()
}

// ShutdownChan returns a channel that's closed when the manager stops.
func (m *Manager) ShutdownChan() <-chan struct{} {
	return m.shutdownChan
}

func (m *Manager) timeoutLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.requestTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-m.shutdownChan:
			return
		case now := <-ticker.C:
			requeued := m.cache.Timeout(now)
			if len(requeued) > 0 {
				log.Debugf("Requeued %d timed out masternode list requests", len(requeued))
			}
		}
	}
}

// AddPeer starts syncing masternode lists with the peer of the given ID.
// The network layer feeds the messages it receives from the peer to the
// returned router, and sends the peer the messages of its outgoing route.
func (m *Manager) AddPeer(peerID string) (*router.Router, error) {
	if atomic.LoadInt32(&m.stopped) != 0 {
		return nil, errors.Wrapf(processor.ErrStopped, "can't add peer %s", peerID)
	}

	m.peersLock.Lock()
	defer m.peersLock.Unlock()

	if _, ok := m.peers[peerID]; ok {
		return nil, errors.Wrapf(ErrPeerWithSameIDExists, "peer %s", peerID)
	}

	peerRouter := router.NewRouter(peerID)
	incomingRoute, err := peerRouter.AddIncomingRoute([]string{wire.CmdMNListDiff, wire.CmdQRInfo})
	if err != nil {
		return nil, err
	}
	peer := &peer{id: peerID, router: peerRouter}
	m.peers[peerID] = peer
	metrics.PeerBanScore.WithLabelValues(peerID).Set(0)

	flow := &syncMasternodeListsFlow{
		Manager:       m,
		peer:          peer,
		incomingRoute: incomingRoute,
		outgoingRoute: peerRouter.OutgoingRoute(),
	}
	m.wg.Add(1)
	spawn("syncMasternodeListsFlow.start", func() {
		defer m.wg.Done()
		err := flow.start()
		m.removePeer(peer)
		m.handleFlowError(peerID, err)
	})
	log.Infof("Syncing masternode lists with peer %s", peerID)
	return peerRouter, nil
}

// RemovePeer stops syncing masternode lists with the peer of the given ID.
func (m *Manager) RemovePeer(peerID string) {
	m.peersLock.Lock()
	peer, ok := m.peers[peerID]
	m.peersLock.Unlock()
	if ok {
		peer.router.Close()
	}
}

func (m *Manager) removePeer(peer *peer) {
	m.peersLock.Lock()
	defer m.peersLock.Unlock()

	if m.peers[peer.id] == peer {
		delete(m.peers, peer.id)
	}
	peer.router.Close()
	metrics.PeerBanScore.DeleteLabelValues(peer.id)
}

func (m *Manager) handleFlowError(peerID string, err error) {
	if err == nil || errors.Is(err, router.ErrRouteClosed) ||
		errors.Is(err, processor.ErrStopped) || errors.Is(err, context.Canceled) {

		log.Infof("Stopped syncing masternode lists with peer %s", peerID)
		return
	}
	if protocolerrors.ShouldBan(err) {
		log.Warnf("Banning peer %s: %s", peerID, err)
		if m.onBan != nil {
			m.onBan(peerID)
		}
		return
	}
	log.Errorf("Masternode list sync with peer %s failed: %+v", peerID, err)
}

// BanScore returns the ban score of the peer of the given ID.
func (m *Manager) BanScore(peerID string) (uint32, bool) {
	m.peersLock.Lock()
	defer m.peersLock.Unlock()

	peer, ok := m.peers[peerID]
	if !ok {
		return 0, false
	}
	return peer.banScore(), true
}

// PeerCount returns the number of peers masternode lists are synced with.
func (m *Manager) PeerCount() int {
	m.peersLock.Lock()
	defer m.peersLock.Unlock()
	return len(m.peers)
}

// RequestList queues the retrieval of the masternode list at blockHash. It
// returns false when the list is known or already being retrieved.
func (m *Manager) RequestList(blockHash *chainhash.Hash) bool {
	return m.cache.Need(blockHash)
}

// Reorg drops the retrievals and the lists of the blocks above forkHeight
// after the chain reorganized from it. Retrievals of blocks of unknown
// height are kept. It returns the number of cancelled retrievals.
func (m *Manager) Reorg(forkHeight uint32) int {
	cancelled := m.cache.CancelAll(func(blockHash *chainhash.Hash) bool {
		height, ok := m.blockHeightLookup.BlockHeight(blockHash)
		return ok && height > forkHeight
	})
	evicted := m.cache.EvictAbove(forkHeight)
	log.Infof("Reorganized from height %d: cancelled %d retrievals and evicted %d masternode lists",
		forkHeight, cancelled, evicted)
	return cancelled
}
