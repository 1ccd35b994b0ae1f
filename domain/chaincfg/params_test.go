package chaincfg

import (
	"testing"

	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

func TestRegister(t *testing.T) {
	err := Register(&MainnetParams)
	if !errors.Is(err, ErrDuplicateNet) {
		t.Errorf("Register: got error %v, want %v", err, ErrDuplicateNet)
	}

	mocknet := &Params{Name: "mocknet", DIP0006ActivationHeight: 10}
	if err := Register(mocknet); err != nil {
		t.Fatalf("Register: %s", err)
	}
	params, err := ParamsByName("mocknet")
	if err != nil || params != mocknet {
		t.Errorf("ParamsByName: got %v, %v", params, err)
	}

	_, err = ParamsByName("nonexistent")
	if !errors.Is(err, ErrUnknownNet) {
		t.Errorf("ParamsByName: got error %v, want %v", err, ErrUnknownNet)
	}
}

func TestNetworkQuorumTypes(t *testing.T) {
	for _, params := range []*Params{&MainnetParams, &TestnetParams, &DevnetParams, &RegressionNetParams} {
		for _, llmqType := range []wire.LLMQType{params.ChainLocksType, params.InstantSendType,
			params.InstantSendDIP0024Type, params.PlatformType} {

			llmq, ok := params.LLMQ(llmqType)
			if !ok {
				t.Errorf("%s: no parameters for %s", params.Name, llmqType)
				continue
			}
			if llmq.Threshold > llmq.MinSize || llmq.MinSize > llmq.Size {
				t.Errorf("%s: inconsistent sizes for %s", params.Name, llmqType)
			}
		}
		if rotated, _ := params.LLMQ(params.InstantSendDIP0024Type); !rotated.UseRotation {
			t.Errorf("%s: %s is expected to rotate", params.Name, params.InstantSendDIP0024Type)
		}
	}
}

func TestActivationHeights(t *testing.T) {
	params := MainnetParams
	if params.IsQuorumsRootRequired(params.DIP0006ActivationHeight - 1) {
		t.Errorf("IsQuorumsRootRequired: required before activation")
	}
	if !params.IsQuorumsRootRequired(params.DIP0006ActivationHeight) {
		t.Errorf("IsQuorumsRootRequired: not required at activation")
	}
	if params.UsesConfirmedHashLeaf(params.DIP0024ActivationHeight) {
		t.Errorf("UsesConfirmedHashLeaf: mainnet never switched leaves")
	}
	if len(params.CheckpointHeights()) != len(params.Checkpoints) {
		t.Errorf("CheckpointHeights: wrong number of heights")
	}
}
