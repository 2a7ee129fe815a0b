package trading

import (
	"context"

	"github.com/stellalpha/vaultcore/internal/domain"
)

// Router executes an opaque routing payload against exactly the two balance
// records handed to it. The core never trusts what the router does with the
// payload; only the balance deltas observed after the call are load-bearing.
type Router interface {
	Route(ctx context.Context, call RouteCall) error
}

// RouteCall is the capability scope for a single swap: the verbatim payload,
// the spend budget remaining after the platform fee skim, and the only two
// records the router may mutate.
type RouteCall struct {
	Payload []byte
	Budget  uint64
	Input   *domain.BalanceRecord
	Output  *domain.BalanceRecord
}
