package processor

import (
	"time"

	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/infrastructure/metrics"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

func (p *Processor) processDiffPayload(payload []byte, protocolVersion uint32,
	peerID string) (*model.DiffResult, error) {

	start := time.Now()
	diff, err := p.diffDecoder.Decode(payload, protocolVersion)
	if err != nil {
		metrics.RecordDiff(metrics.OutcomeMalformed, time.Since(start).Seconds())
		return nil, err
	}
	return p.processDiff(diff, peerID)
}

// processDiff applies diff to its base list and verifies the result. Lists
// whose coinbase and roots check out are stored, cached and announced, after
// which the diffs parked on them are processed. Quorums that fail
// verification don't reject the list: they're kept with the Invalid status.
func (p *Processor) processDiff(diff *model.DiffMessage, peerID string) (*model.DiffResult, error) {
	result, err := p.applyDiff(diff, peerID)
	if err != nil {
		return result, err
	}
	p.processParkedDiffs(&diff.BlockHash)
	return result, nil
}

func (p *Processor) applyDiff(diff *model.DiffMessage, peerID string) (result *model.DiffResult, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDiff(outcome(err), time.Since(start).Seconds())
	}()

	base, err := p.baseList(diff, peerID)
	if err != nil {
		return nil, err
	}

	merged, err := p.listMerger.Merge(base, diff)
	if errors.Is(err, ruleerrors.ErrUnknownBlockHeight) && p.insightFallback != nil {
		log.Debugf("Height of block %s is unknown, asking the insight fallback", diff.BlockHash)
		p.insightFallback.AddInsightFallback(&diff.BlockHash)
		merged, err = p.listMerger.Merge(base, diff)
	}
	if err != nil {
		return nil, err
	}

	result = &model.DiffResult{MasternodeList: merged}
	if base == nil {
		base = model.EmptyMasternodeList()
	}
	comparison := merged.Compare(base)
	result.AddedMasternodes = comparison.Added
	result.ModifiedMasternodes = comparison.Modified

	var headerMerkleRoot *chainhash.Hash
	if p.merkleRootLookup != nil {
		headerMerkleRoot, _ = p.merkleRootLookup.MerkleRoot(&diff.BlockHash)
	}
	var coinbaseErr error
	result.FoundCoinbase, coinbaseErr = p.merkleVerifier.VerifyCoinbaseInclusion(diff, headerMerkleRoot)
	result.ValidCoinbase = coinbaseErr == nil

	if diff.CoinbasePayload != nil {
		result.RootMNListValid = p.merkleVerifier.VerifyMasternodeRoot(merged, diff.CoinbasePayload)
		result.RootQuorumListValid = p.merkleVerifier.VerifyQuorumRoot(merged, diff.CoinbasePayload)
	}

	verified, err := p.validateQuorums(merged, diff, result)
	if err != nil {
		return result, err
	}
	result.MasternodeList = verified

	switch {
	case coinbaseErr != nil:
		return result, coinbaseErr
	case !result.RootMNListValid:
		return result, errors.Wrapf(ruleerrors.ErrRootMismatch, "masternode merkle root of the list at %s "+
			"doesn't match its coinbase", diff.BlockHash)
	case !result.RootQuorumListValid:
		return result, errors.Wrapf(ruleerrors.ErrRootMismatch, "quorum merkle root of the list at %s "+
			"doesn't match its coinbase", diff.BlockHash)
	}
	if !result.ValidQuorums {
		log.Warnf("The masternode list at %s holds quorums that failed verification", diff.BlockHash)
	}

	verified = verified.WithMerkleRoots(p.merkleVerifier.MasternodeMerkleRoot(verified),
		p.merkleVerifier.QuorumMerkleRoot(verified))
	result.MasternodeList = verified

	err = p.accept(verified)
	if err != nil {
		return result, err
	}
	log.Infof("Accepted the masternode list at %s (height %d) from peer %s: %d masternodes, %d quorums",
		verified.BlockHash(), verified.Height(), peerID, verified.Len(), verified.QuorumsCount())
	return result, nil
}

// baseList returns the list diff applies to. A nil list with a nil error
// stands for the empty list of a diff from the genesis block.
func (p *Processor) baseList(diff *model.DiffMessage, peerID string) (*model.MasternodeList, error) {
	if diff.BaseBlockHash.IsEqual(&chainhash.ZeroHash) || diff.BaseBlockHash.IsEqual(p.params.GenesisHash) {
		return nil, nil
	}

	base, ok, err := p.cache.MasternodeList(&diff.BaseBlockHash)
	if err != nil {
		return nil, err
	}
	if ok {
		return base, nil
	}

	p.cache.Need(&diff.BaseBlockHash)
	p.park(diff, peerID)
	return nil, ruleerrors.NewErrMissingDependency(&diff.BaseBlockHash)
}

// validateQuorums validates the quorums diff adds to merged, along with the
// quorums merged inherited unverified from its base, and returns merged with
// their statuses. Quorums whose member list isn't available stay unverified
// until that list is accepted, and the missing list is reported in result.
func (p *Processor) validateQuorums(merged *model.MasternodeList, diff *model.DiffMessage,
	result *model.DiffResult) (*model.MasternodeList, error) {

	result.ValidQuorums = true
	var updated []*model.QuorumEntry
	record := func(before, after *model.QuorumEntry) {
		if after.Status == model.StatusInvalid {
			result.ValidQuorums = false
		}
		if after != before {
			updated = append(updated, after)
		}
	}

	added := make(map[model.QuorumKey]struct{}, len(diff.NewQuorums))
	for _, newQuorum := range diff.NewQuorums {
		quorum, ok := merged.Quorum(newQuorum.LLMQType, &newQuorum.QuorumHash)
		if !ok {
			return nil, errors.Errorf("%s is missing from the merged list", newQuorum.Key())
		}
		verified, err := p.verifyQuorum(merged, quorum, result)
		if err != nil {
			return nil, err
		}
		record(quorum, verified)
		result.AddedQuorums = append(result.AddedQuorums, verified)
		added[quorum.Key()] = struct{}{}
	}

	for _, quorum := range merged.Quorums() {
		if _, ok := added[quorum.Key()]; ok || quorum.Status != model.StatusUnverified {
			continue
		}
		verified, err := p.verifyQuorum(merged, quorum, result)
		if err != nil {
			return nil, err
		}
		record(quorum, verified)
	}

	if len(updated) == 0 {
		return merged, nil
	}
	return merged.WithQuorums(updated...)
}

// verifyQuorum returns quorum with the status of its verification against
// the members it had at its block. A quorum whose member list isn't
// available is returned as is, and merged is recorded as waiting for that
// list.
func (p *Processor) verifyQuorum(merged *model.MasternodeList, quorum *model.QuorumEntry,
	result *model.DiffResult) (*model.QuorumEntry, error) {

	if quorum.IsRotated() && p.processesQuorumType(quorum.LLMQType) {
		// Rotated quorums are verified once a qrinfo rebuilds their members.
		return quorum, nil
	}

	var members []*model.MasternodeEntry
	if p.needsMembers(quorum) {
		llmqParams, _ := p.params.LLMQ(quorum.LLMQType)
		quorumList, err := p.quorumList(merged, &quorum.QuorumHash)
		if err != nil {
			return nil, err
		}
		if quorumList == nil {
			log.Debugf("The masternode list at %s is needed to verify %s", quorum.QuorumHash, quorum.Key())
			result.NeededMissingMasternodeLists = append(result.NeededMissingMasternodeLists, &quorum.QuorumHash)
			p.awaitMembers(&quorum.QuorumHash, merged.BlockHash())
			return quorum, nil
		}
		members = p.quorumValidator.MembersForQuorum(quorumList, llmqParams, &quorum.QuorumHash)
	}
	return quorum.WithStatus(p.validateQuorum(quorum, members)), nil
}

func (p *Processor) validateQuorum(quorum *model.QuorumEntry, members []*model.MasternodeEntry) model.VerificationStatus {
	status, err := p.quorumValidator.Validate(quorum, members)
	if err != nil {
		log.Warnf("%s failed validation: %s", quorum.Key(), err)
	}
	metrics.QuorumsValidated.WithLabelValues(status.String()).Inc()
	return status
}

func (p *Processor) processesQuorumType(llmqType wire.LLMQType) bool {
	return p.quorumTypeFilter == nil || p.quorumTypeFilter.ShouldProcessQuorumType(llmqType)
}

func (p *Processor) needsMembers(quorum *model.QuorumEntry) bool {
	if quorum.IsRotated() || !p.processesQuorumType(quorum.LLMQType) {
		return false
	}
	_, ok := p.params.LLMQ(quorum.LLMQType)
	return ok
}

// quorumList returns the list at the block a quorum was formed at, or nil
// if it isn't available. Its retrieval is requested in that case.
func (p *Processor) quorumList(merged *model.MasternodeList, quorumHash *chainhash.Hash) (*model.MasternodeList, error) {
	if merged.BlockHash().IsEqual(quorumHash) {
		return merged, nil
	}
	list, ok, err := p.cache.MasternodeList(quorumHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		p.cache.Need(quorumHash)
		return nil, nil
	}
	return list, nil
}

func (p *Processor) accept(list *model.MasternodeList) error {
	if p.store != nil {
		err := p.store.Store(list)
		if err != nil {
			return err
		}
	}
	p.cache.Satisfy(list.BlockHash(), list)
	metrics.RecordList(list.Height(), list.Len(), len(list.ValidEntries()))
	p.notify(list)
	p.verifyAwaitingQuorums(list)
	return nil
}

// awaitMembers records that the list at holder holds a quorum waiting for
// the list at memberBlock to be verified. The oldest holders are forgotten
// past maxParkedDiffs.
func (p *Processor) awaitMembers(memberBlock, holder *chainhash.Hash) {
	holders := p.awaiting[*memberBlock]
	for _, existing := range holders {
		if existing.IsEqual(holder) {
			return
		}
	}
	if len(holders) >= p.maxParkedDiffs {
		holders = holders[1:]
	}
	p.awaiting[*memberBlock] = append(holders, *holder)
}

// verifyAwaitingQuorums verifies the quorums formed at the block of
// memberList that cached lists hold unverified, and accepts these lists
// again with the new statuses.
func (p *Processor) verifyAwaitingQuorums(memberList *model.MasternodeList) {
	holders, ok := p.awaiting[*memberList.BlockHash()]
	if !ok {
		return
	}
	delete(p.awaiting, *memberList.BlockHash())

	for _, holderHash := range holders {
		holder, ok, err := p.cache.MasternodeList(&holderHash)
		if err != nil {
			log.Warnf("Couldn't load the masternode list at %s: %s", holderHash, err)
			continue
		}
		if !ok {
			continue
		}

		var updated []*model.QuorumEntry
		for _, quorum := range holder.Quorums() {
			if quorum.Status != model.StatusUnverified || !quorum.QuorumHash.IsEqual(memberList.BlockHash()) ||
				!p.needsMembers(quorum) {
				continue
			}
			llmqParams, _ := p.params.LLMQ(quorum.LLMQType)
			members := p.quorumValidator.MembersForQuorum(memberList, llmqParams, &quorum.QuorumHash)
			updated = append(updated, quorum.WithStatus(p.validateQuorum(quorum, members)))
		}
		if len(updated) == 0 {
			continue
		}

		verified, err := holder.WithQuorums(updated...)
		if err != nil {
			log.Errorf("Couldn't update the quorums of the masternode list at %s: %s", holderHash, err)
			continue
		}
		err = p.accept(verified)
		if err != nil {
			log.Warnf("Couldn't store the masternode list at %s: %s", holderHash, err)
			continue
		}
		log.Infof("Verified %d quorums of the masternode list at %s with the list at %s",
			len(updated), holderHash, memberList.BlockHash())
	}
}

func (p *Processor) park(diff *model.DiffMessage, peerID string) {
	if p.parkedCount >= p.maxParkedDiffs {
		log.Debugf("Dropping the diff to %s: %d diffs are already waiting for their base",
			diff.BlockHash, p.parkedCount)
		return
	}
	p.parked[diff.BaseBlockHash] = append(p.parked[diff.BaseBlockHash], &parkedDiff{diff: diff, peerID: peerID})
	p.parkedCount++
	log.Debugf("Parked the diff to %s until the masternode list at %s is known", diff.BlockHash, diff.BaseBlockHash)
}

// processParkedDiffs processes the diffs waiting for the list at
// blockHash, and in turn the diffs waiting for their results.
func (p *Processor) processParkedDiffs(blockHash *chainhash.Hash) {
	pending := []chainhash.Hash{*blockHash}
	for len(pending) > 0 {
		base := pending[0]
		pending = pending[1:]

		waiting := p.parked[base]
		delete(p.parked, base)
		p.parkedCount -= len(waiting)

		for _, parked := range waiting {
			_, err := p.applyDiff(parked.diff, parked.peerID)
			if err != nil {
				log.Debugf("Failed processing the parked diff to %s from peer %s: %s",
					parked.diff.BlockHash, parked.peerID, err)
				p.cache.Fail(&parked.diff.BlockHash)
				p.cache.Need(&parked.diff.BlockHash)
				continue
			}
			pending = append(pending, parked.diff.BlockHash)
		}
	}
}

// ParkedDiffs returns the number of diffs waiting for their base list. It
// must only be called by the processing goroutine or while it's stopped.
func (p *Processor) ParkedDiffs() int {
	return p.parkedCount
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeValid
	}
	if _, ok := ruleerrors.MissingDependencies(err); ok {
		return metrics.OutcomeMissingDependency
	}
	switch {
	case errors.Is(err, ruleerrors.ErrMalformedMessage):
		return metrics.OutcomeMalformed
	case errors.Is(err, ruleerrors.ErrInconsistentDiff):
		return metrics.OutcomeInconsistent
	}
	return metrics.OutcomeInvalid
}
