package mnlistsync

import (
	"time"

	"github.com/dashevo/dashspv/app/protocol/protocolerrors"
	"github.com/dashevo/dashspv/domain/masternode/processes/diffdecoder"
	"github.com/dashevo/dashspv/domain/masternode/processor"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/infrastructure/network/netadapter/router"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

type syncMasternodeListsFlow struct {
	*Manager
	peer                         *peer
	incomingRoute, outgoingRoute *router.Route
}

// start requests the queued masternode lists from the peer one at a time,
// and processes the answers as well as the messages the peer sends
// unrequested.
func (flow *syncMasternodeListsFlow) start() error {
	for {
		select {
		case <-flow.ShutdownChan():
			return nil
		default:
		}

		blockHash, ok := flow.cache.NextToRequest()
		if !ok {
			err := flow.receiveUnrequested()
			if err != nil {
				return err
			}
			continue
		}

		err := flow.sendRequest(blockHash)
		if err != nil {
			return err
		}
		message, err := flow.incomingRoute.DequeueWithTimeout(flow.requestTimeout)
		if err != nil {
			if errors.Is(err, router.ErrTimeout) {
				log.Debugf("Peer %s didn't answer the request for %s in time", flow.peer.id, blockHash)
				flow.cache.Timeout(time.Now())
				continue
			}
			return err
		}
		err = flow.handleMessage(message, blockHash)
		if err != nil {
			return err
		}
	}
}

func (flow *syncMasternodeListsFlow) receiveUnrequested() error {
	message, err := flow.incomingRoute.DequeueWithTimeout(flow.pollInterval)
	if err != nil {
		if errors.Is(err, router.ErrTimeout) {
			return nil
		}
		return err
	}
	return flow.handleMessage(message, nil)
}

func (flow *syncMasternodeListsFlow) sendRequest(blockHash *chainhash.Hash) error {
	message, err := flow.buildRequest(blockHash)
	if err != nil {
		flow.cache.Fail(blockHash)
		return err
	}
	log.Debugf("Requesting %s from peer %s", message, flow.peer.id)
	return flow.outgoingRoute.Enqueue(message)
}

// buildRequest requests the list at blockHash as a diff from the latest
// known list when that list precedes it, and from the empty list otherwise.
func (flow *syncMasternodeListsFlow) buildRequest(blockHash *chainhash.Hash) (*router.Message, error) {
	height, heightKnown := flow.blockHeightLookup.BlockHeight(blockHash)

	baseBlockHash := flow.params.GenesisHash
	if latest, ok := flow.cache.Latest(); ok && heightKnown && latest.Height() < height {
		baseBlockHash = latest.BlockHash()
	}

	if flow.useQRInfo && heightKnown && height >= flow.params.DIP0024ActivationHeight {
		payload, err := diffdecoder.EncodeGetQRInfo([]*chainhash.Hash{baseBlockHash}, blockHash,
			true, flow.protocolVersion)
		if err != nil {
			return nil, err
		}
		return &router.Message{Command: wire.CmdGetQRInfo, Payload: payload}, nil
	}

	payload, err := diffdecoder.EncodeGetMNListDiff(baseBlockHash, blockHash, flow.protocolVersion)
	if err != nil {
		return nil, err
	}
	return &router.Message{Command: wire.CmdGetMNListDiff, Payload: payload}, nil
}

// handleMessage processes a message of the peer. requested is the block
// hash of the list requested from the peer, if any.
func (flow *syncMasternodeListsFlow) handleMessage(message *router.Message, requested *chainhash.Hash) error {
	switch message.Command {
	case wire.CmdMNListDiff:
		result, err := flow.processor.ProcessDiff(flow.ctx, message.Payload, flow.peer.id)
		if err != nil {
			return flow.handleProcessingError(err, requested)
		}
		log.Debugf("Accepted the masternode list at %s from peer %s",
			result.MasternodeList.BlockHash(), flow.peer.id)
		return nil
	case wire.CmdQRInfo:
		result, err := flow.processor.ProcessQRInfo(flow.ctx, message.Payload, flow.peer.id)
		if err != nil {
			return flow.handleProcessingError(err, requested)
		}
		log.Debugf("Accepted %d masternode lists from the qrinfo of peer %s",
			len(result.Results), flow.peer.id)
		return nil
	default:
		return protocolerrors.Errorf(true, "unexpected %s message", message.Command)
	}
}

func (flow *syncMasternodeListsFlow) handleProcessingError(err error, requested *chainhash.Hash) error {
	if neededBlockHashes, ok := ruleerrors.MissingDependencies(err); ok {
		log.Debugf("The message of peer %s depends on %d missing masternode lists",
			flow.peer.id, len(neededBlockHashes))
		// The answer waits for its dependencies and satisfies the retrieval
		// once they arrive.
		if requested != nil {
			flow.cache.Fail(requested)
		}
		return nil
	}
	if errors.Is(err, processor.ErrQueueFull) {
		log.Warnf("Dropped the message of peer %s: %s", flow.peer.id, err)
		flow.retry(requested)
		return nil
	}

	score := banScore(err)
	if score == 0 {
		if errors.As(err, &ruleerrors.RuleError{}) {
			log.Infof("Couldn't process the message of peer %s: %s", flow.peer.id, err)
			flow.retry(requested)
			return nil
		}
		return err
	}

	flow.retry(requested)
	total := flow.peer.addBanScore(score)
	if total >= flow.banThreshold {
		return protocolerrors.Wrapf(true, protocolerrors.FromRuleError(err),
			"peer %s reached ban score %d", flow.peer.id, total)
	}
	log.Warnf("Peer %s misbehaved (ban score %d): %s", flow.peer.id, total, err)
	return nil
}

// retry queues the failed retrieval of requested again, so that it's
// requested from the next available peer.
func (flow *syncMasternodeListsFlow) retry(requested *chainhash.Hash) {
	if requested == nil {
		return
	}
	flow.cache.Fail(requested)
	flow.cache.Need(requested)
}
