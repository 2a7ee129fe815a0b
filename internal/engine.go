// Package internal wires the ledger, services and persistence into one
// engine. Every mutating call runs the service operation first; only a
// committed operation is journaled and snapshotted.
package internal

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stellalpha/vaultcore/config"
	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/ledger"
	"github.com/stellalpha/vaultcore/internal/services/feepolicy"
	"github.com/stellalpha/vaultcore/internal/services/report"
	"github.com/stellalpha/vaultcore/internal/services/trading"
	"github.com/stellalpha/vaultcore/internal/services/vault"
	"github.com/stellalpha/vaultcore/internal/storage/journal"
	"github.com/stellalpha/vaultcore/internal/storage/snapshot"
)

// Engine is the single entry point for all vault core operations.
type Engine struct {
	ledger    *ledger.Ledger
	policies  *feepolicy.Registry
	vaults    *vault.Service
	trading   *trading.Executor
	reports   *report.Service
	journal   *journal.WALStore
	snapshots *snapshot.Store
	logger    *zap.Logger
}

// NewEngine builds the engine from config, restoring prior state from the
// snapshot store when one exists.
func NewEngine(cfg config.Config, router trading.Router, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	snapshots, err := snapshot.NewStore(cfg.SnapshotDir)
	if err != nil {
		return nil, err
	}

	state, err := snapshots.Load()
	if err != nil {
		return nil, errors.Wrap(err, "restore ledger state")
	}
	var led *ledger.Ledger
	if state != nil {
		led = ledger.Restore(state)
		logger.Info("ledger state restored",
			zap.Int("vaults", len(state.Vaults)),
			zap.Int("allocations", len(state.Allocations)),
			zap.Int("records", len(state.Records)))
	} else {
		led = ledger.New()
	}

	wal, err := journal.NewWALStore(cfg.JournalDir)
	if err != nil {
		return nil, err
	}

	executor, err := trading.NewExecutor(led, router, logger)
	if err != nil {
		wal.Close()
		return nil, err
	}

	return &Engine{
		ledger:    led,
		policies:  feepolicy.NewRegistry(led, logger, cfg.PlatformFeeBps, cfg.PerformanceFeeBps),
		vaults:    vault.NewService(led, logger),
		trading:   executor,
		reports:   report.NewService(led, logger),
		journal:   wal,
		snapshots: snapshots,
		logger:    logger,
	}, nil
}

// record persists a committed operation. Persistence problems are logged, not
// surfaced: the ledger already holds the committed result.
func (e *Engine) record(entry journal.Entry) {
	if err := e.journal.Append(entry); err != nil {
		e.logger.Warn("failed to journal operation", zap.String("kind", entry.Kind), zap.Error(err))
	}
	if err := e.snapshots.Save(e.ledger.Snapshot()); err != nil {
		e.logger.Warn("failed to snapshot ledger", zap.Error(err))
	}
}

// InitFeePolicy creates the write-once platform fee policy.
func (e *Engine) InitFeePolicy(admin domain.ID) error {
	if err := e.policies.Init(admin); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindInitFeePolicy, Actor: admin})
	return nil
}

// FeePolicy returns the stored policy.
func (e *Engine) FeePolicy() (*domain.FeePolicy, error) {
	return e.policies.Policy()
}

// CreateVault creates a vault for the owner with the given delegated
// authority and base asset.
func (e *Engine) CreateVault(owner, authority domain.ID, baseAsset domain.Asset) (domain.EntityID, error) {
	vaultID, err := e.vaults.Create(owner, authority, baseAsset)
	if err != nil {
		return "", err
	}
	e.record(journal.Entry{Kind: journal.KindCreateVault, Actor: owner, Vault: vaultID, Asset: baseAsset})
	return vaultID, nil
}

// Deposit credits the vault's base balance.
func (e *Engine) Deposit(actor domain.ID, vaultID domain.EntityID, amount uint64) error {
	if err := e.vaults.Deposit(actor, vaultID, amount); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindDeposit, Actor: actor, Vault: vaultID, Amount: amount})
	return nil
}

// Withdraw debits the vault's base balance.
func (e *Engine) Withdraw(actor domain.ID, vaultID domain.EntityID, amount uint64) error {
	if err := e.vaults.Withdraw(actor, vaultID, amount); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindWithdraw, Actor: actor, Vault: vaultID, Amount: amount})
	return nil
}

// CreateAllocation carves capital out of the vault for a delegate.
func (e *Engine) CreateAllocation(actor domain.ID, vaultID domain.EntityID, delegate domain.ID, amount uint64) (domain.EntityID, error) {
	allocID, err := e.vaults.CreateAllocation(actor, vaultID, delegate, amount)
	if err != nil {
		return "", err
	}
	e.record(journal.Entry{Kind: journal.KindCreateAllocation, Actor: actor, Vault: vaultID, Allocation: allocID, Amount: amount})
	return allocID, nil
}

// MarkInitialized activates an allocation without the sync pair.
func (e *Engine) MarkInitialized(actor domain.ID, vaultID, allocID domain.EntityID) error {
	if err := e.vaults.MarkInitialized(actor, vaultID, allocID); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindMarkInitialized, Actor: actor, Vault: vaultID, Allocation: allocID})
	return nil
}

// StartSync begins the external portfolio sync for an allocation.
func (e *Engine) StartSync(actor domain.ID, vaultID, allocID domain.EntityID) error {
	if err := e.trading.StartSync(actor, vaultID, allocID); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindStartSync, Actor: actor, Vault: vaultID, Allocation: allocID})
	return nil
}

// FinishSync completes the sync pair and activates the allocation.
func (e *Engine) FinishSync(actor domain.ID, vaultID, allocID domain.EntityID) error {
	if err := e.trading.FinishSync(actor, vaultID, allocID); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindFinishSync, Actor: actor, Vault: vaultID, Allocation: allocID})
	return nil
}

// Pause suspends trading on an allocation.
func (e *Engine) Pause(actor domain.ID, vaultID, allocID domain.EntityID) error {
	if err := e.vaults.Pause(actor, vaultID, allocID); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindPause, Actor: actor, Vault: vaultID, Allocation: allocID})
	return nil
}

// Resume re-enables trading on a paused allocation.
func (e *Engine) Resume(actor domain.ID, vaultID, allocID domain.EntityID) error {
	if err := e.vaults.Resume(actor, vaultID, allocID); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindResume, Actor: actor, Vault: vaultID, Allocation: allocID})
	return nil
}

// AllowAsset whitelists an asset for swap legs in the vault.
func (e *Engine) AllowAsset(actor domain.ID, vaultID domain.EntityID, asset domain.Asset) error {
	if err := e.trading.AllowAsset(actor, vaultID, asset); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindAllowAsset, Actor: actor, Vault: vaultID, Asset: asset})
	return nil
}

// DisallowAsset removes an asset from the vault whitelist.
func (e *Engine) DisallowAsset(actor domain.ID, vaultID domain.EntityID, asset domain.Asset) error {
	if err := e.trading.DisallowAsset(actor, vaultID, asset); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindDisallowAsset, Actor: actor, Vault: vaultID, Asset: asset})
	return nil
}

// ExecuteSwap runs a bounded swap through the external router.
func (e *Engine) ExecuteSwap(ctx context.Context, actor domain.ID, req trading.SwapRequest) (trading.SwapResult, error) {
	res, err := e.trading.ExecuteSwap(ctx, actor, req)
	if err != nil {
		return trading.SwapResult{}, err
	}
	e.record(journal.Entry{
		Kind:       journal.KindExecuteSwap,
		Actor:      actor,
		Vault:      req.Vault,
		Allocation: req.Allocation,
		Asset:      req.InputAsset,
		Amount:     res.Spent,
	})
	return res, nil
}

// CreateSubAccount creates an allocation balance record for an asset.
func (e *Engine) CreateSubAccount(actor domain.ID, vaultID, allocID domain.EntityID, asset domain.Asset) error {
	if err := e.vaults.CreateSubAccount(actor, vaultID, allocID, asset); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindCreateSubAccount, Actor: actor, Vault: vaultID, Allocation: allocID, Asset: asset})
	return nil
}

// CloseSubAccount destroys an empty non-primary record of a paused
// allocation.
func (e *Engine) CloseSubAccount(actor domain.ID, vaultID, allocID domain.EntityID, asset domain.Asset) error {
	if err := e.vaults.CloseSubAccount(actor, vaultID, allocID, asset); err != nil {
		return err
	}
	e.record(journal.Entry{Kind: journal.KindCloseSubAccount, Actor: actor, Vault: vaultID, Allocation: allocID, Asset: asset})
	return nil
}

// CloseAllocation refunds the remaining primary balance to the vault and
// removes the allocation.
func (e *Engine) CloseAllocation(actor domain.ID, vaultID, allocID domain.EntityID) (uint64, error) {
	refunded, err := e.vaults.Close(actor, vaultID, allocID)
	if err != nil {
		return 0, err
	}
	e.record(journal.Entry{Kind: journal.KindCloseAllocation, Actor: actor, Vault: vaultID, Allocation: allocID, Amount: refunded})
	return refunded, nil
}

// Settle moves the allocation's base holdings back to the vault.
func (e *Engine) Settle(actor domain.ID, vaultID, allocID domain.EntityID, asset domain.Asset) (uint64, error) {
	amount, err := e.vaults.Settle(actor, vaultID, allocID, asset)
	if err != nil {
		return 0, err
	}
	e.record(journal.Entry{Kind: journal.KindSettle, Actor: actor, Vault: vaultID, Allocation: allocID, Asset: asset, Amount: amount})
	return amount, nil
}

// VaultReport values one vault and its allocations.
func (e *Engine) VaultReport(vaultID domain.EntityID) (report.VaultReport, error) {
	return e.reports.Vault(vaultID)
}

// PolicyReport summarizes the fee policy and accrued fees.
func (e *Engine) PolicyReport() (report.PolicyReport, error) {
	return e.reports.Policy()
}

// History returns the journaled operations in commit order.
func (e *Engine) History() ([]journal.Entry, error) {
	return e.journal.Entries()
}

// Vaults lists the ids of all vaults.
func (e *Engine) Vaults() []domain.EntityID {
	state := e.ledger.Snapshot()
	ids := make([]domain.EntityID, 0, len(state.Vaults))
	for id := range state.Vaults {
		ids = append(ids, id)
	}
	return ids
}

// Close flushes the final snapshot and closes the journal.
func (e *Engine) Close() error {
	if err := e.snapshots.Save(e.ledger.Snapshot()); err != nil {
		e.logger.Warn("failed to snapshot ledger on close", zap.Error(err))
	}
	return e.journal.Close()
}
