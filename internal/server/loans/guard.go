package loans

import (
	"sync/atomic"

	"github.com/openlend/lendcore/internal/common"
)

// reentrancyGuard rejects a mutating engine call that arrives while another
// one is mid-flight on the same service instance.
type reentrancyGuard struct {
	busy atomic.Bool
}

func (g *reentrancyGuard) enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return common.ErrReentrantCall
	}
	return nil
}

func (g *reentrancyGuard) exit() {
	g.busy.Store(false)
}
