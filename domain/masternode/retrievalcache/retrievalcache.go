package retrievalcache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/infrastructure/metrics"
	"github.com/dashevo/dashspv/util/chainhash"
)

const (
	// DefaultMaxInFlight is the default number of list retrievals that may
	// be requested from peers at the same time.
	DefaultMaxInFlight = 8

	// DefaultCapacity is the default number of masternode lists kept in
	// memory.
	DefaultCapacity = 64

	// DefaultRequestTimeout is the default time a peer gets to answer a
	// list retrieval.
	DefaultRequestTimeout = 20 * time.Second

	// DefaultMaxRetrievals is the default number of retrievals tracked at
	// once, whatever their state.
	DefaultMaxRetrievals = 1024
)

// State is the state of a masternode list retrieval.
type State uint8

// Retrieval states
const (
	StateQueued State = iota
	StateInFlight
	StateSatisfied
	StateFailed
)

var stateStrings = map[State]string{
	StateQueued:    "Queued",
	StateInFlight:  "InFlight",
	StateSatisfied: "Satisfied",
	StateFailed:    "Failed",
}

func (s State) String() string {
	if str, ok := stateStrings[s]; ok {
		return str
	}
	return "Unknown"
}

// Config holds the limits of a RetrievalCache. Zero values select the
// defaults.
type Config struct {
	MaxInFlight    int
	Capacity       int
	RequestTimeout time.Duration
	MaxRetrievals  int
}

type retrieval struct {
	blockHash   chainhash.Hash
	state       State
	priority    int
	sequence    uint64
	requestedAt time.Time
	attempts    int
}

// snapshot is an immutable view of the cached lists. A new snapshot is
// published for every change.
type snapshot struct {
	lists  map[chainhash.Hash]*model.MasternodeList
	latest *model.MasternodeList
}

// RetrievalCache keeps recently used masternode lists in memory and tracks
// the lists that still need to be retrieved from peers.
//
// Readers are served from an atomically published snapshot and never block
// on writers. Writers are serialized by mtx.
//
// The locking order is mtx, then lruMutex.
type RetrievalCache struct {
	maxInFlight    int
	capacity       int
	requestTimeout time.Duration
	maxRetrievals  int
	fallback       model.MasternodeListLookup
	now            func() time.Time

	published atomic.Value // *snapshot

	mtx           sync.Mutex
	retrievals    map[chainhash.Hash]*retrieval
	inFlight      int
	sequence      uint64
	pinnedHeights map[uint32]struct{}

	lruMutex         sync.Mutex
	listsLRU         *list.List // Contains chainhash.Hash block hashes.
	hashToLRUElement map[chainhash.Hash]*list.Element
}

// New returns a new RetrievalCache. fallback is consulted for lists that
// aren't in memory, and may be nil.
func New(config Config, fallback model.MasternodeListLookup) *RetrievalCache {
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = DefaultMaxInFlight
	}
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.MaxRetrievals <= 0 {
		config.MaxRetrievals = DefaultMaxRetrievals
	}

	rc := &RetrievalCache{
		maxInFlight:      config.MaxInFlight,
		capacity:         config.Capacity,
		requestTimeout:   config.RequestTimeout,
		maxRetrievals:    config.MaxRetrievals,
		fallback:         fallback,
		now:              time.Now,
		retrievals:       make(map[chainhash.Hash]*retrieval),
		pinnedHeights:    make(map[uint32]struct{}),
		listsLRU:         list.New(),
		hashToLRUElement: make(map[chainhash.Hash]*list.Element),
	}
	rc.published.Store(&snapshot{lists: make(map[chainhash.Hash]*model.MasternodeList)})
	return rc
}

func (rc *RetrievalCache) load() *snapshot {
	return rc.published.Load().(*snapshot)
}

// Get returns the masternode list at blockHash. Lists that aren't in memory
// are loaded from the fallback lookup and cached.
func (rc *RetrievalCache) Get(blockHash *chainhash.Hash) (*model.MasternodeList, bool) {
	list, ok, err := rc.MasternodeList(blockHash)
	if err != nil {
		log.Warnf("Failed loading the masternode list at %s: %s", blockHash, err)
		return nil, false
	}
	return list, ok
}

// MasternodeList returns the masternode list at blockHash, reporting
// fallback lookup failures. It satisfies model.MasternodeListLookup.
func (rc *RetrievalCache) MasternodeList(blockHash *chainhash.Hash) (*model.MasternodeList, bool, error) {
	if list, ok := rc.load().lists[*blockHash]; ok {
		rc.touch(blockHash)
		metrics.CacheHits.Inc()
		return list, true, nil
	}
	metrics.CacheMisses.Inc()
	if rc.fallback == nil {
		return nil, false, nil
	}

	list, ok, err := rc.fallback.MasternodeList(blockHash)
	if err != nil || !ok {
		return nil, false, err
	}

	rc.mtx.Lock()
	defer rc.mtx.Unlock()
	rc.addLocked(list)
	return list, true, nil
}

// Latest returns the highest masternode list in memory.
func (rc *RetrievalCache) Latest() (*model.MasternodeList, bool) {
	latest := rc.load().latest
	return latest, latest != nil
}

// Len returns the number of masternode lists in memory.
func (rc *RetrievalCache) Len() int {
	return len(rc.load().lists)
}

// State returns the retrieval state of the list at blockHash. Lists in
// memory are reported as satisfied.
func (rc *RetrievalCache) State(blockHash *chainhash.Hash) (State, bool) {
	if _, ok := rc.load().lists[*blockHash]; ok {
		return StateSatisfied, true
	}

	rc.mtx.Lock()
	defer rc.mtx.Unlock()
	r, ok := rc.retrievals[*blockHash]
	if !ok {
		return 0, false
	}
	return r.state, true
}

// Need queues the retrieval of the list at blockHash. It returns false when
// the list is already in memory or its retrieval is already pending. A
// failed retrieval is queued again.
//
// At most MaxRetrievals retrievals are tracked. When that many are, the
// oldest failed one is forgotten to make room, and without any failed
// retrieval the new one is refused.
func (rc *RetrievalCache) Need(blockHash *chainhash.Hash) bool {
	if _, ok := rc.load().lists[*blockHash]; ok {
		return false
	}

	rc.mtx.Lock()
	defer rc.mtx.Unlock()
	defer rc.recordLocked()

	if r, ok := rc.retrievals[*blockHash]; ok {
		if r.state != StateFailed {
			return false
		}
		r.state = StateQueued
		r.sequence = rc.nextSequenceLocked()
		log.Debugf("Requeued failed retrieval of the masternode list at %s", blockHash)
		return true
	}

	if len(rc.retrievals) >= rc.maxRetrievals && !rc.forgetOldestFailedLocked() {
		log.Warnf("Not queueing the masternode list at %s: %d retrievals are pending",
			blockHash, len(rc.retrievals))
		return false
	}

	rc.retrievals[*blockHash] = &retrieval{
		blockHash: *blockHash,
		state:     StateQueued,
		sequence:  rc.nextSequenceLocked(),
	}
	log.Debugf("Queued retrieval of the masternode list at %s", blockHash)
	return true
}

func (rc *RetrievalCache) forgetOldestFailedLocked() bool {
	var oldest *retrieval
	for _, r := range rc.retrievals {
		if r.state == StateFailed && (oldest == nil || r.sequence < oldest.sequence) {
			oldest = r
		}
	}
	if oldest == nil {
		return false
	}
	log.Debugf("Forgetting the failed retrieval of the masternode list at %s", oldest.blockHash)
	delete(rc.retrievals, oldest.blockHash)
	return true
}

// NextToRequest moves the queued retrieval with the highest priority to
// in-flight and returns its block hash. Retrievals queued earlier go first
// among equal priorities. It returns false when nothing is queued or the
// in-flight limit is reached.
func (rc *RetrievalCache) NextToRequest() (*chainhash.Hash, bool) {
	rc.mtx.Lock()
	defer rc.mtx.Unlock()

	if rc.inFlight >= rc.maxInFlight {
		return nil, false
	}

	var next *retrieval
	for _, r := range rc.retrievals {
		if r.state != StateQueued {
			continue
		}
		if next == nil || r.priority > next.priority ||
			(r.priority == next.priority && r.sequence < next.sequence) {
			next = r
		}
	}
	if next == nil {
		return nil, false
	}

	next.state = StateInFlight
	next.requestedAt = rc.now()
	next.attempts++
	rc.inFlight++
	rc.recordLocked()

	blockHash := next.blockHash
	return &blockHash, true
}

// InFlight returns the number of retrievals requested from peers and not
// yet answered.
func (rc *RetrievalCache) InFlight() int {
	rc.mtx.Lock()
	defer rc.mtx.Unlock()
	return rc.inFlight
}

// Satisfy stores list as the masternode list at blockHash and completes
// its retrieval, if any.
func (rc *RetrievalCache) Satisfy(blockHash *chainhash.Hash, list *model.MasternodeList) {
	rc.mtx.Lock()
	defer rc.mtx.Unlock()

	rc.removeRetrievalLocked(blockHash)
	rc.addLocked(list)
}

// Fail marks the retrieval of the list at blockHash as failed. A later Need
// queues it again.
func (rc *RetrievalCache) Fail(blockHash *chainhash.Hash) {
	rc.mtx.Lock()
	defer rc.mtx.Unlock()
	defer rc.recordLocked()

	r, ok := rc.retrievals[*blockHash]
	if !ok {
		return
	}
	if r.state == StateInFlight {
		rc.inFlight--
	}
	r.state = StateFailed
	log.Debugf("Retrieval of the masternode list at %s failed after %d attempts", blockHash, r.attempts)
}

// Cancel drops the retrieval of the list at blockHash.
func (rc *RetrievalCache) Cancel(blockHash *chainhash.Hash) {
	rc.mtx.Lock()
	defer rc.mtx.Unlock()
	defer rc.recordLocked()

	rc.removeRetrievalLocked(blockHash)
}

// CancelAll drops every retrieval whose block hash matches predicate and
// returns the number of dropped retrievals.
func (rc *RetrievalCache) CancelAll(predicate func(blockHash *chainhash.Hash) bool) int {
	rc.mtx.Lock()
	defer rc.mtx.Unlock()
	defer rc.recordLocked()

	cancelled := 0
	for blockHash := range rc.retrievals {
		blockHash := blockHash
		if predicate(&blockHash) {
			rc.removeRetrievalLocked(&blockHash)
			cancelled++
		}
	}
	return cancelled
}

// Timeout requeues every in-flight retrieval requested before
// now - RequestTimeout, lowering its priority so other retrievals are
// requested first. It returns the requeued block hashes.
func (rc *RetrievalCache) Timeout(now time.Time) []*chainhash.Hash {
	rc.mtx.Lock()
	defer rc.mtx.Unlock()
	defer rc.recordLocked()

	var requeued []*chainhash.Hash
	for _, r := range rc.retrievals {
		if r.state != StateInFlight || now.Sub(r.requestedAt) < rc.requestTimeout {
			continue
		}
		r.state = StateQueued
		r.priority--
		r.sequence = rc.nextSequenceLocked()
		rc.inFlight--

		blockHash := r.blockHash
		requeued = append(requeued, &blockHash)
		metrics.RetrievalTimeouts.Inc()
		log.Debugf("Retrieval of the masternode list at %s timed out", &blockHash)
	}
	return requeued
}

// Pin keeps the lists at height from being evicted.
func (rc *RetrievalCache) Pin(height uint32) {
	rc.mtx.Lock()
	defer rc.mtx.Unlock()
	rc.pinnedHeights[height] = struct{}{}
}

// Unpin allows the lists at height to be evicted again.
func (rc *RetrievalCache) Unpin(height uint32) {
	rc.mtx.Lock()
	defer rc.mtx.Unlock()
	delete(rc.pinnedHeights, height)
}

// EvictBefore drops the lists below height from memory, except pinned lists
// and the latest list. It returns the number of dropped lists.
func (rc *RetrievalCache) EvictBefore(height uint32) int {
	return rc.evictWhere(func(list *model.MasternodeList) bool {
		return list.Height() < height
	}, false)
}

// EvictAbove drops the lists above height from memory, including the latest
// list. It's used when the chain reorganizes below those lists.
func (rc *RetrievalCache) EvictAbove(height uint32) int {
	return rc.evictWhere(func(list *model.MasternodeList) bool {
		return list.Height() > height
	}, true)
}

func (rc *RetrievalCache) evictWhere(predicate func(list *model.MasternodeList) bool, includeLatest bool) int {
	rc.mtx.Lock()
	defer rc.mtx.Unlock()

	current := rc.load()
	var evicted []chainhash.Hash
	for blockHash, list := range current.lists {
		if !predicate(list) {
			continue
		}
		if !includeLatest && (list == current.latest || rc.isPinnedLocked(list)) {
			continue
		}
		evicted = append(evicted, blockHash)
	}
	if len(evicted) > 0 {
		rc.removeListsLocked(evicted...)
	}
	return len(evicted)
}

func (rc *RetrievalCache) addLocked(list *model.MasternodeList) {
	current := rc.load()
	next := &snapshot{
		lists:  make(map[chainhash.Hash]*model.MasternodeList, len(current.lists)+1),
		latest: current.latest,
	}
	for blockHash, cached := range current.lists {
		next.lists[blockHash] = cached
	}
	next.lists[*list.BlockHash()] = list
	if next.latest == nil || list.Height() >= next.latest.Height() {
		next.latest = list
	}

	rc.lruMutex.Lock()
	if element, ok := rc.hashToLRUElement[*list.BlockHash()]; ok {
		rc.listsLRU.MoveToFront(element)
	} else {
		rc.hashToLRUElement[*list.BlockHash()] = rc.listsLRU.PushFront(*list.BlockHash())
	}

	// Evict the least recently used lists that aren't pinned or latest
	// until the capacity is respected.
	for element := rc.listsLRU.Back(); element != nil && len(next.lists) > rc.capacity; {
		previous := element.Prev()
		blockHash := element.Value.(chainhash.Hash)
		cached := next.lists[blockHash]
		if cached != next.latest && !rc.isPinnedLocked(cached) {
			delete(next.lists, blockHash)
			rc.listsLRU.Remove(element)
			delete(rc.hashToLRUElement, blockHash)
			log.Tracef("Evicted the masternode list at %s from memory", blockHash)
		}
		element = previous
	}
	rc.lruMutex.Unlock()

	rc.published.Store(next)
	rc.recordLocked()
}

func (rc *RetrievalCache) removeListsLocked(blockHashes ...chainhash.Hash) {
	current := rc.load()
	next := &snapshot{
		lists: make(map[chainhash.Hash]*model.MasternodeList, len(current.lists)),
	}
	for blockHash, cached := range current.lists {
		next.lists[blockHash] = cached
	}

	rc.lruMutex.Lock()
	for _, blockHash := range blockHashes {
		delete(next.lists, blockHash)
		if element, ok := rc.hashToLRUElement[blockHash]; ok {
			rc.listsLRU.Remove(element)
			delete(rc.hashToLRUElement, blockHash)
		}
	}
	rc.lruMutex.Unlock()

	for _, cached := range next.lists {
		if next.latest == nil || cached.Height() > next.latest.Height() {
			next.latest = cached
		}
	}

	rc.published.Store(next)
	rc.recordLocked()
}

func (rc *RetrievalCache) removeRetrievalLocked(blockHash *chainhash.Hash) {
	r, ok := rc.retrievals[*blockHash]
	if !ok {
		return
	}
	if r.state == StateInFlight {
		rc.inFlight--
	}
	delete(rc.retrievals, *blockHash)
}

func (rc *RetrievalCache) touch(blockHash *chainhash.Hash) {
	rc.lruMutex.Lock()
	defer rc.lruMutex.Unlock()
	if element, ok := rc.hashToLRUElement[*blockHash]; ok {
		rc.listsLRU.MoveToFront(element)
	}
}

func (rc *RetrievalCache) isPinnedLocked(list *model.MasternodeList) bool {
	_, ok := rc.pinnedHeights[list.Height()]
	return ok
}

func (rc *RetrievalCache) nextSequenceLocked() uint64 {
	rc.sequence++
	return rc.sequence
}

func (rc *RetrievalCache) recordLocked() {
	queued, failed := 0, 0
	for _, r := range rc.retrievals {
		switch r.state {
		case StateQueued:
			queued++
		case StateFailed:
			failed++
		}
	}
	metrics.RecordRetrievals(len(rc.load().lists), queued, rc.inFlight, failed)
}
