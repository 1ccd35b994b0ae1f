package testutils

import (
	"testing"

	"github.com/dashevo/dashspv/domain/chaincfg"
)

// ForAllNets runs the passed testFunc with all available networks.
func ForAllNets(t *testing.T, testFunc func(*testing.T, *chaincfg.Params)) {
	allParams := []chaincfg.Params{
		chaincfg.MainnetParams,
		chaincfg.TestnetParams,
		chaincfg.DevnetParams,
		chaincfg.RegressionNetParams,
	}

	for _, params := range allParams {
		params := params
		t.Run(params.Name, func(t *testing.T) {
			t.Parallel()
			testFunc(t, &params)
		})
	}
}
