// Package feepolicy holds the write-once platform fee configuration. The
// first caller of Init becomes the admin; the record is never mutated or
// destroyed afterwards and every fee computation reads it.
package feepolicy

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/ledger"
)

// Registry creates and serves the fee policy.
type Registry struct {
	ledger         *ledger.Ledger
	logger         *zap.Logger
	platformBps    uint32
	performanceBps uint32
}

// NewRegistry builds a registry. Zero bps values fall back to the platform
// defaults.
func NewRegistry(l *ledger.Ledger, logger *zap.Logger, platformBps, performanceBps uint32) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if platformBps == 0 {
		platformBps = domain.DefaultPlatformFeeBps
	}
	if performanceBps == 0 {
		performanceBps = domain.DefaultPerformanceFeeBps
	}
	return &Registry{
		ledger:         l,
		logger:         logger,
		platformBps:    platformBps,
		performanceBps: performanceBps,
	}
}

// Init creates the policy with the caller as admin. Fails when a policy
// already exists; there is no update path.
func (r *Registry) Init(admin domain.ID) error {
	err := r.ledger.Update(func(st *ledger.State) error {
		if st.Policy != nil {
			return domain.ErrPolicyInitialized
		}
		st.Policy = &domain.FeePolicy{
			Admin:             admin,
			Collector:         domain.DeriveCollectorID(admin),
			PlatformFeeBps:    r.platformBps,
			PerformanceFeeBps: r.performanceBps,
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("fee policy initialized",
		zap.String("admin", string(admin)),
		zap.Uint32("platform_fee_bps", r.platformBps),
		zap.Uint32("performance_fee_bps", r.performanceBps))
	return nil
}

// Policy returns a copy of the stored policy.
func (r *Registry) Policy() (*domain.FeePolicy, error) {
	var policy *domain.FeePolicy
	err := r.ledger.View(func(st *ledger.State) error {
		if st.Policy == nil {
			return errors.Wrap(domain.ErrNotFound, "fee policy")
		}
		policy = st.Policy.Clone()
		return nil
	})
	return policy, err
}
