// Package trading implements the authority-facing operations: the sync pair,
// the asset whitelist, and swap execution against an untrusted external
// router. The executor validates ownership and balances strictly before and
// after the routed call; the router's internal behavior is never trusted.
package trading

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/ledger"
)

// Executor runs authority operations against the ledger.
type Executor struct {
	ledger *ledger.Ledger
	router Router
	logger *zap.Logger
}

// NewExecutor creates the executor. A router is required.
func NewExecutor(l *ledger.Ledger, router Router, logger *zap.Logger) (*Executor, error) {
	if router == nil {
		return nil, errors.New("router is required for Executor")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{ledger: l, router: router, logger: logger}, nil
}

// delegatedVault loads the vault and verifies the caller is its delegated
// authority.
func delegatedVault(st *ledger.State, vaultID domain.EntityID, actor domain.ID) (*domain.Vault, error) {
	v, err := st.Vault(vaultID)
	if err != nil {
		return nil, err
	}
	if v.Authority != actor {
		return nil, errors.Wrapf(domain.ErrUnauthorized, "caller %s is not the delegated authority", actor)
	}
	return v, nil
}

func vaultAllocation(st *ledger.State, v *domain.Vault, allocID domain.EntityID) (*domain.Allocation, error) {
	a, err := st.Allocation(allocID)
	if err != nil {
		return nil, err
	}
	if a.Vault != v.ID {
		return nil, errors.Wrapf(domain.ErrUnauthorized, "allocation %s does not belong to vault %s", allocID, v.ID)
	}
	return a, nil
}

// StartSync moves the allocation into Syncing while the external portfolio
// sync runs.
func (e *Executor) StartSync(actor domain.ID, vaultID, allocID domain.EntityID) error {
	return e.transition(actor, vaultID, allocID, "sync started", (*domain.Allocation).StartSync)
}

// FinishSync completes the sync pair and makes the allocation live.
func (e *Executor) FinishSync(actor domain.ID, vaultID, allocID domain.EntityID) error {
	return e.transition(actor, vaultID, allocID, "sync finished", (*domain.Allocation).FinishSync)
}

func (e *Executor) transition(actor domain.ID, vaultID, allocID domain.EntityID, msg string, fn func(*domain.Allocation) error) error {
	err := e.ledger.Update(func(st *ledger.State) error {
		v, err := delegatedVault(st, vaultID, actor)
		if err != nil {
			return err
		}
		a, err := vaultAllocation(st, v, allocID)
		if err != nil {
			return err
		}
		return fn(a)
	})
	if err != nil {
		return err
	}

	e.logger.Info(msg, zap.String("allocation", string(allocID)))
	return nil
}

// AllowAsset whitelists an asset for swap legs in the vault. Idempotent.
func (e *Executor) AllowAsset(actor domain.ID, vaultID domain.EntityID, asset domain.Asset) error {
	return e.editWhitelist(actor, vaultID, asset, "asset allowed", (*domain.Vault).Allow)
}

// DisallowAsset removes an asset from the vault whitelist. Idempotent.
func (e *Executor) DisallowAsset(actor domain.ID, vaultID domain.EntityID, asset domain.Asset) error {
	return e.editWhitelist(actor, vaultID, asset, "asset disallowed", (*domain.Vault).Disallow)
}

func (e *Executor) editWhitelist(actor domain.ID, vaultID domain.EntityID, asset domain.Asset, msg string, fn func(*domain.Vault, domain.Asset)) error {
	err := e.ledger.Update(func(st *ledger.State) error {
		v, err := delegatedVault(st, vaultID, actor)
		if err != nil {
			return err
		}
		fn(v, asset)
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info(msg, zap.String("vault", string(vaultID)), zap.String("asset", string(asset)))
	return nil
}

// SwapRequest describes one swap. AmountIn is an upper bound on the total
// input decrease (fee included), not an exact debit; MinAmountOut is the
// caller's hard floor on the observed output increase. The record ids are
// caller-supplied and re-derived by the core before anything runs.
type SwapRequest struct {
	Vault        domain.EntityID
	Allocation   domain.EntityID
	InputAsset   domain.Asset
	OutputAsset  domain.Asset
	InputRecord  domain.RecordID
	OutputRecord domain.RecordID
	AmountIn     uint64
	MinAmountOut uint64
	RoutePayload []byte
}

// SwapResult reports the observed outcome of a committed swap.
type SwapResult struct {
	Fee      uint64
	Spent    uint64
	Received uint64
}

// ExecuteSwap skims the platform fee, hands the payload to the router scoped
// to the allocation's own records, and commits only when the observed
// balance deltas respect the declared bounds. Any violation aborts the whole
// operation, fee debit included.
func (e *Executor) ExecuteSwap(ctx context.Context, actor domain.ID, req SwapRequest) (SwapResult, error) {
	var res SwapResult
	err := e.ledger.Update(func(st *ledger.State) error {
		v, err := delegatedVault(st, req.Vault, actor)
		if err != nil {
			return err
		}
		a, err := vaultAllocation(st, v, req.Allocation)
		if err != nil {
			return err
		}
		if a.State != domain.StateInitialized {
			return errors.Wrapf(domain.ErrNotInitialized, "allocation state %s", a.State)
		}
		if st.Policy == nil {
			return errors.Wrap(domain.ErrNotFound, "fee policy")
		}
		if !v.AssetAllowed(req.InputAsset) {
			return errors.Wrapf(domain.ErrAssetNotAllowed, "input asset %s", req.InputAsset)
		}
		if !v.AssetAllowed(req.OutputAsset) {
			return errors.Wrapf(domain.ErrAssetNotAllowed, "output asset %s", req.OutputAsset)
		}

		// Both records must re-verify as the allocation's own derived
		// records before the router sees anything; a substitute account for
		// either role is rejected here.
		in, err := st.BindRecord(req.Allocation, req.InputAsset, req.InputRecord)
		if err != nil {
			return err
		}
		out, err := st.BindRecord(req.Allocation, req.OutputAsset, req.OutputRecord)
		if err != nil {
			return err
		}

		fee, err := domain.FeeFor(req.AmountIn, st.Policy.PlatformFeeBps)
		if err != nil {
			return err
		}

		// The spend bound covers fee plus routed spend together, so the
		// snapshot is taken before the fee debit.
		inBefore := in.Amount
		outBefore := out.Amount

		if fee > 0 {
			if err := in.Debit(fee); err != nil {
				return errors.Wrapf(err, "skim fee %d", fee)
			}
			if err := st.EnsureRecord(st.Policy.Collector, req.InputAsset).Credit(fee); err != nil {
				return err
			}
		}
		budget, err := domain.CheckedSub(req.AmountIn, fee)
		if err != nil {
			return err
		}

		if err := e.router.Route(ctx, RouteCall{
			Payload: req.RoutePayload,
			Budget:  budget,
			Input:   in,
			Output:  out,
		}); err != nil {
			return errors.Wrap(err, "external routing failed")
		}

		var spent uint64
		if in.Amount < inBefore {
			spent = inBefore - in.Amount
		}
		var received uint64
		if out.Amount > outBefore {
			received = out.Amount - outBefore
		}

		if spent > req.AmountIn {
			return errors.Wrapf(domain.ErrOverspend, "spent %d, declared bound %d", spent, req.AmountIn)
		}
		if received < req.MinAmountOut {
			return errors.Wrapf(domain.ErrSlippage, "received %d, floor %d", received, req.MinAmountOut)
		}

		// Exits back into the base asset refresh the tracked value.
		if req.OutputAsset == v.BaseAsset {
			a.CurrentValue = received
			if received > a.HighWaterMark {
				a.HighWaterMark = received
			}
			a.Settled = false
		}

		res = SwapResult{Fee: fee, Spent: spent, Received: received}
		return nil
	})
	if err != nil {
		return SwapResult{}, err
	}

	e.logger.Info("swap executed",
		zap.String("allocation", string(req.Allocation)),
		zap.String("input_asset", string(req.InputAsset)),
		zap.String("output_asset", string(req.OutputAsset)),
		zap.Uint64("fee", res.Fee),
		zap.Uint64("spent", res.Spent),
		zap.Uint64("received", res.Received))
	return res, nil
}
