package trading

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stellalpha/vaultcore/internal/domain"
)

// SimulateRouter is a deterministic router for tests and dry runs. It quotes
// a fixed rate against the spend budget, debits the input record by the
// quoted output and credits the output record with it, mimicking a
// same-asset localnet swap.
type SimulateRouter struct {
	rateBps uint64
	logger  *zap.Logger
}

// NewSimulateRouter builds a simulator quoting rateBps of the budget as
// output (9500 means 95%).
func NewSimulateRouter(rateBps uint64, logger *zap.Logger) *SimulateRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rateBps == 0 {
		rateBps = 9500
	}
	return &SimulateRouter{rateBps: rateBps, logger: logger}
}

// Route moves the quoted amount from the input record to the output record.
func (r *SimulateRouter) Route(_ context.Context, call RouteCall) error {
	product, err := domain.CheckedMul(call.Budget, r.rateBps)
	if err != nil {
		return errors.Wrap(err, "quote simulated output")
	}
	out := product / domain.BpsDenominator

	if err := call.Input.Debit(out); err != nil {
		return errors.Wrap(err, "debit simulated input")
	}
	if err := call.Output.Credit(out); err != nil {
		return errors.Wrap(err, "credit simulated output")
	}

	r.logger.Debug("simulated route",
		zap.Uint64("budget", call.Budget),
		zap.Uint64("out", out))
	return nil
}
