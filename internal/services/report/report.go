// Package report derives read-only decimal valuations from the ledger:
// per-allocation equity against tracked value, and accrued platform fees.
package report

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/ledger"
)

// Service builds reports from the current ledger state.
type Service struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

// NewService creates the reporting service.
func NewService(l *ledger.Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: l, logger: logger}
}

// AllocationReport values one allocation against its tracked capital.
type AllocationReport struct {
	Allocation    domain.EntityID
	Delegate      domain.ID
	State         string
	Settled       bool
	Balance       decimal.Decimal
	CurrentValue  decimal.Decimal
	HighWaterMark decimal.Decimal
	PnL           decimal.Decimal
	ReturnPct     decimal.Decimal
}

// VaultReport summarizes a vault and its allocations.
type VaultReport struct {
	Vault       domain.EntityID
	Owner       domain.ID
	Authority   domain.ID
	BaseAsset   domain.Asset
	Balance     decimal.Decimal
	Allocations []AllocationReport
}

// PolicyReport summarizes the fee policy and the fees accrued per asset.
type PolicyReport struct {
	PlatformFeePct    decimal.Decimal
	PerformanceFeePct decimal.Decimal
	Accrued           map[domain.Asset]decimal.Decimal
}

// Vault builds the report for one vault.
func (s *Service) Vault(vaultID domain.EntityID) (VaultReport, error) {
	var rep VaultReport
	err := s.ledger.View(func(st *ledger.State) error {
		v, err := st.Vault(vaultID)
		if err != nil {
			return err
		}
		rec, err := st.Record(vaultID, v.BaseAsset)
		if err != nil {
			return err
		}
		rep = VaultReport{
			Vault:     v.ID,
			Owner:     v.Owner,
			Authority: v.Authority,
			BaseAsset: v.BaseAsset,
			Balance:   decimal.NewFromUint64(rec.Amount),
		}

		for _, a := range st.Allocations {
			if a.Vault != vaultID {
				continue
			}
			primary, err := st.Record(a.ID, v.BaseAsset)
			if err != nil {
				return err
			}
			rep.Allocations = append(rep.Allocations, valueAllocation(a, primary))
		}
		sort.Slice(rep.Allocations, func(i, j int) bool {
			return rep.Allocations[i].Allocation < rep.Allocations[j].Allocation
		})
		return nil
	})
	return rep, err
}

// Policy builds the fee policy report.
func (s *Service) Policy() (PolicyReport, error) {
	var rep PolicyReport
	err := s.ledger.View(func(st *ledger.State) error {
		if st.Policy == nil {
			return errors.Wrap(domain.ErrNotFound, "fee policy")
		}
		hundred := decimal.NewFromInt(100)
		denom := decimal.NewFromInt(domain.BpsDenominator)
		rep = PolicyReport{
			PlatformFeePct:    decimal.NewFromInt(int64(st.Policy.PlatformFeeBps)).Div(denom).Mul(hundred),
			PerformanceFeePct: decimal.NewFromInt(int64(st.Policy.PerformanceFeeBps)).Div(denom).Mul(hundred),
			Accrued:           make(map[domain.Asset]decimal.Decimal),
		}
		for _, rec := range st.RecordsOwnedBy(st.Policy.Collector) {
			rep.Accrued[rec.Asset] = decimal.NewFromUint64(rec.Amount)
		}
		return nil
	})
	return rep, err
}

func valueAllocation(a *domain.Allocation, primary *domain.BalanceRecord) AllocationReport {
	balance := decimal.NewFromUint64(primary.Amount)
	tracked := decimal.NewFromUint64(a.CurrentValue)
	pnl := balance.Sub(tracked)

	returnPct := decimal.Zero
	if tracked.IsPositive() {
		returnPct = pnl.Div(tracked).Mul(decimal.NewFromInt(100))
	}

	return AllocationReport{
		Allocation:    a.ID,
		Delegate:      a.Delegate,
		State:         a.State.String(),
		Settled:       a.Settled,
		Balance:       balance,
		CurrentValue:  tracked,
		HighWaterMark: decimal.NewFromUint64(a.HighWaterMark),
		PnL:           pnl,
		ReturnPct:     returnPct,
	}
}
