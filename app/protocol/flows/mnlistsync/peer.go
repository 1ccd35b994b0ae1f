package mnlistsync

import (
	"sync/atomic"

	"github.com/dashevo/dashspv/infrastructure/metrics"
	"github.com/dashevo/dashspv/infrastructure/network/netadapter/router"
)

type peer struct {
	id     string
	router *router.Router

	// score is accessed atomically.
	score uint32
}

func (p *peer) banScore() uint32 {
	return atomic.LoadUint32(&p.score)
}

// addBanScore adds increment to the ban score of the peer and returns the
// new score.
func (p *peer) addBanScore(increment uint32) uint32 {
	score := atomic.AddUint32(&p.score, increment)
	metrics.PeerBanScore.WithLabelValues(p.id).Set(float64(score))
	return score
}
