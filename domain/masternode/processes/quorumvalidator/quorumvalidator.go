package quorumvalidator

import (
	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

type quorumValidator struct {
	params           *chaincfg.Params
	verifier         model.ThresholdSignatureVerifier
	quorumTypeFilter model.QuorumTypeFilter
}

// New instantiates a new QuorumValidator. A nil quorumTypeFilter verifies
// every quorum type.
func New(params *chaincfg.Params, verifier model.ThresholdSignatureVerifier,
	quorumTypeFilter model.QuorumTypeFilter) model.QuorumValidator {

	return &quorumValidator{
		params:           params,
		verifier:         verifier,
		quorumTypeFilter: quorumTypeFilter,
	}
}

// Validate verifies the commitment of quorum against its members, in quorum
// member order. Quorums of filtered types, and legacy scheme quorums the
// verifier can't check, are reported as Skipped. A non-nil error comes with
// the Invalid status and tells why.
func (qv *quorumValidator) Validate(quorum *model.QuorumEntry,
	members []*model.MasternodeEntry) (model.VerificationStatus, error) {

	if qv.quorumTypeFilter != nil && !qv.quorumTypeFilter.ShouldProcessQuorumType(quorum.LLMQType) {
		log.Tracef("Skipping %s: its type isn't processed", quorum.Key())
		return model.StatusSkipped, nil
	}

	err := qv.checkStructure(quorum)
	if err != nil {
		return model.StatusInvalid, err
	}
	useLegacyScheme := quorum.IsLegacyBLS()
	if policy, ok := qv.verifier.(model.LegacySchemePolicy); ok && useLegacyScheme && policy.SkipsLegacyScheme() {
		log.Tracef("Skipping %s: its legacy scheme signatures can't be checked", quorum.Key())
		return model.StatusSkipped, nil
	}

	commitmentHash := quorum.ToCommitment().CommitmentHash()
	signerKeys := make([]*wire.BLSPublicKey, 0, quorum.SignersCount())
	for _, index := range quorum.Signers.Indexes() {
		if index >= len(members) {
			return model.StatusInvalid, errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid,
				"%s has signer %d, but only %d members", quorum.Key(), index, len(members))
		}
		operatorKey := members[index].OperatorPublicKey
		signerKeys = append(signerKeys, &operatorKey)
	}

	if !qv.verifier.VerifyThresholdSignature(commitmentHash, &quorum.AllCommitmentAggregatedSignature,
		signerKeys, useLegacyScheme) {

		return model.StatusInvalid, errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid,
			"invalid members signature for %s", quorum.Key())
	}
	if !qv.verifier.VerifyThresholdSignature(commitmentHash, &quorum.ThresholdSignature,
		[]*wire.BLSPublicKey{&quorum.QuorumPublicKey}, useLegacyScheme) {

		return model.StatusInvalid, errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid,
			"invalid quorum signature for %s", quorum.Key())
	}

	log.Tracef("Verified %s", quorum.Key())
	return model.StatusVerified, nil
}

func (qv *quorumValidator) checkStructure(quorum *model.QuorumEntry) error {
	llmqParams, ok := qv.params.LLMQ(quorum.LLMQType)
	if !ok {
		return errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid, "%s is of an unknown type", quorum.Key())
	}
	if quorum.Signers.Size() != llmqParams.Size || quorum.ValidMembers.Size() != llmqParams.Size {
		return errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid, "%s has bit sets of sizes %d and %d, "+
			"want %d", quorum.Key(), quorum.Signers.Size(), quorum.ValidMembers.Size(), llmqParams.Size)
	}
	if quorum.SignersCount() < llmqParams.MinSize {
		return errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid, "%s has %d signers, want at least %d",
			quorum.Key(), quorum.SignersCount(), llmqParams.MinSize)
	}
	if quorum.ValidMembersCount() < llmqParams.MinSize {
		return errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid, "%s has %d valid members, want at least %d",
			quorum.Key(), quorum.ValidMembersCount(), llmqParams.MinSize)
	}
	if quorum.QuorumPublicKey.IsZero() {
		return errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid, "%s has no public key", quorum.Key())
	}
	return nil
}
