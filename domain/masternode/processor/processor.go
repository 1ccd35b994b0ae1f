package processor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/processes/diffdecoder"
	"github.com/dashevo/dashspv/domain/masternode/processes/listmerger"
	"github.com/dashevo/dashspv/domain/masternode/processes/merkleverifier"
	"github.com/dashevo/dashspv/domain/masternode/processes/quorumvalidator"
	"github.com/dashevo/dashspv/domain/masternode/retrievalcache"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

const (
	// DefaultQueueSize is the default number of messages waiting to be
	// processed.
	DefaultQueueSize = 100

	// DefaultMaxParkedDiffs is the default number of diffs kept while their
	// base list is retrieved.
	DefaultMaxParkedDiffs = 64

	subscriberBufferSize = 16
)

var (
	// ErrQueueFull indicates that a message was dropped because the
	// processing queue is full.
	ErrQueueFull = errors.New("processing queue is full")

	// ErrStopped indicates that the processor stopped before handling a
	// message.
	ErrStopped = errors.New("processor is stopped")
)

// Config holds the collaborators and limits of a Processor. BlockHeightLookup
// and SignatureVerifier are required.
type Config struct {
	Params          *chaincfg.Params
	ProtocolVersion uint32
	QueueSize       int
	MaxParkedDiffs  int

	BlockHeightLookup model.BlockHeightLookup
	SignatureVerifier model.ThresholdSignatureVerifier
	MerkleRootLookup  model.MerkleRootLookup
	InsightFallback   model.InsightFallback
	QuorumTypeFilter  model.QuorumTypeFilter

	// Store persists every accepted list. It's optional.
	Store model.MasternodeListStore

	// Cache holds the lists in memory. When nil, a cache with the default
	// limits over Store is used.
	Cache *retrievalcache.RetrievalCache
}

type job struct {
	command         string
	payload         []byte
	peerID          string
	protocolVersion uint32
	done            chan *jobResult
}

type jobResult struct {
	diffResult   *model.DiffResult
	qrInfoResult *model.QRInfoResult
	err          error
}

type parkedDiff struct {
	diff   *model.DiffMessage
	peerID string
}

// Processor turns masternode list messages into verified masternode lists.
// Messages are handled one at a time by a single goroutine, so each list is
// derived from a settled base.
type Processor struct {
	params           *chaincfg.Params
	protocolVersion  uint32
	maxParkedDiffs   int
	merkleRootLookup model.MerkleRootLookup
	insightFallback  model.InsightFallback
	quorumTypeFilter model.QuorumTypeFilter
	store            model.MasternodeListStore
	cache            *retrievalcache.RetrievalCache

	diffDecoder     model.DiffDecoder
	listMerger      model.ListMerger
	merkleVerifier  model.MerkleVerifier
	quorumValidator model.QuorumValidator

	queue chan *job
	quit  chan struct{}
	wg    sync.WaitGroup

	started int32
	stopped int32

	// parked and awaiting are only accessed by the processing goroutine.
	parked      map[chainhash.Hash][]*parkedDiff
	parkedCount int

	// awaiting maps the block of a missing member list to the blocks of the
	// lists holding quorums formed there.
	awaiting map[chainhash.Hash][]chainhash.Hash

	subscribersLock sync.Mutex
	subscribers     []chan *model.MasternodeList
}

// New instantiates a new Processor
func New(config *Config) *Processor {
	protocolVersion := config.ProtocolVersion
	if protocolVersion == 0 {
		protocolVersion = config.Params.ProtocolVersion
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	maxParkedDiffs := config.MaxParkedDiffs
	if maxParkedDiffs <= 0 {
		maxParkedDiffs = DefaultMaxParkedDiffs
	}
	cache := config.Cache
	if cache == nil {
		var fallback model.MasternodeListLookup
		if config.Store != nil {
			fallback = config.Store
		}
		cache = retrievalcache.New(retrievalcache.Config{}, fallback)
	}
	for _, height := range config.Params.CheckpointHeights() {
		cache.Pin(height)
	}

	return &Processor{
		params:           config.Params,
		protocolVersion:  protocolVersion,
		maxParkedDiffs:   maxParkedDiffs,
		merkleRootLookup: config.MerkleRootLookup,
		insightFallback:  config.InsightFallback,
		quorumTypeFilter: config.QuorumTypeFilter,
		store:            config.Store,
		cache:            cache,

		diffDecoder:     diffdecoder.New(),
		listMerger:      listmerger.New(config.BlockHeightLookup),
		merkleVerifier:  merkleverifier.New(config.Params),
		quorumValidator: quorumvalidator.New(config.Params, config.SignatureVerifier, config.QuorumTypeFilter),

		queue:    make(chan *job, queueSize),
		quit:     make(chan struct{}),
		parked:   make(map[chainhash.Hash][]*parkedDiff),
		awaiting: make(map[chainhash.Hash][]chainhash.Hash),
	}
}

// Cache returns the cache holding the lists of the processor.
func (p *Processor) Cache() *retrievalcache.RetrievalCache {
	return p.cache
}

// Start starts the processing goroutine.
func (p *Processor) Start() {
	if atomic.AddInt32(&p.started, 1) != 1 {
		return
	}
	p.wg.Add(1)
	spawn("Processor.processLoop", p.processLoop)
}

// Stop stops the processing goroutine and closes every subscription.
// Queued messages are dropped.
func (p *Processor) Stop() {
	if atomic.AddInt32(&p.stopped, 1) != 1 {
		return
	}
	close(p.quit)
	p.wg.Wait()

	p.subscribersLock.Lock()
	defer p.subscribersLock.Unlock()
	for _, subscriber := range p.subscribers {
		close(subscriber)
	}
	p.subscribers = nil
}

func (p *Processor) processLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case job := <-p.queue:
			result := p.handle(job)
			if job.done != nil {
				job.done <- result
			} else if result.err != nil {
				log.Debugf("Failed processing %s from peer %s: %s", job.command, job.peerID, result.err)
			}
		}
	}
}

func (p *Processor) handle(job *job) *jobResult {
	switch job.command {
	case wire.CmdMNListDiff:
		diffResult, err := p.processDiffPayload(job.payload, job.protocolVersion, job.peerID)
		return &jobResult{diffResult: diffResult, err: err}
	case wire.CmdQRInfo:
		qrInfoResult, err := p.processQRInfoPayload(job.payload, job.protocolVersion, job.peerID)
		return &jobResult{qrInfoResult: qrInfoResult, err: err}
	default:
		return &jobResult{err: errors.Errorf("unexpected command %s", job.command)}
	}
}

// Enqueue queues an mnlistdiff or qrinfo payload for processing without
// waiting for the outcome. Accepted lists are announced to subscribers.
func (p *Processor) Enqueue(command string, payload []byte, peerID string) error {
	if command != wire.CmdMNListDiff && command != wire.CmdQRInfo {
		return errors.Errorf("unexpected command %s", command)
	}
	return p.enqueue(&job{
		command:         command,
		payload:         payload,
		peerID:          peerID,
		protocolVersion: p.protocolVersion,
	})
}

func (p *Processor) enqueue(job *job) error {
	if atomic.LoadInt32(&p.stopped) != 0 {
		return errors.WithStack(ErrStopped)
	}
	select {
	case p.queue <- job:
		return nil
	default:
		return errors.Wrapf(ErrQueueFull, "queue reached capacity of %d", cap(p.queue))
	}
}

func (p *Processor) process(ctx context.Context, job *job) (*jobResult, error) {
	job.done = make(chan *jobResult, 1)
	err := p.enqueue(job)
	if err != nil {
		return nil, err
	}
	select {
	case result := <-job.done:
		return result, nil
	case <-p.quit:
		return nil, errors.WithStack(ErrStopped)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProcessDiff processes an mnlistdiff payload received from peerID and
// waits for the outcome. The result is returned along with the error when
// the diff was decoded and merged but failed verification.
func (p *Processor) ProcessDiff(ctx context.Context, payload []byte, peerID string) (*model.DiffResult, error) {
	result, err := p.process(ctx, &job{
		command:         wire.CmdMNListDiff,
		payload:         payload,
		peerID:          peerID,
		protocolVersion: p.protocolVersion,
	})
	if err != nil {
		return nil, err
	}
	return result.diffResult, result.err
}

// ProcessQRInfo processes a qrinfo payload received from peerID and waits
// for the outcome.
func (p *Processor) ProcessQRInfo(ctx context.Context, payload []byte, peerID string) (*model.QRInfoResult, error) {
	result, err := p.process(ctx, &job{
		command:         wire.CmdQRInfo,
		payload:         payload,
		peerID:          peerID,
		protocolVersion: p.protocolVersion,
	})
	if err != nil {
		return nil, err
	}
	return result.qrInfoResult, result.err
}

// Subscribe returns a channel receiving every accepted masternode list. A
// subscriber that falls behind misses lists. The channel is closed when the
// processor stops.
func (p *Processor) Subscribe() <-chan *model.MasternodeList {
	p.subscribersLock.Lock()
	defer p.subscribersLock.Unlock()

	subscriber := make(chan *model.MasternodeList, subscriberBufferSize)
	if atomic.LoadInt32(&p.stopped) != 0 {
		close(subscriber)
		return subscriber
	}
	p.subscribers = append(p.subscribers, subscriber)
	return subscriber
}

func (p *Processor) notify(list *model.MasternodeList) {
	p.subscribersLock.Lock()
	defer p.subscribersLock.Unlock()
	for _, subscriber := range p.subscribers {
		select {
		case subscriber <- list:
		default:
			log.Warnf("A subscriber fell behind and missed the masternode list at %s", list.BlockHash())
		}
	}
}
