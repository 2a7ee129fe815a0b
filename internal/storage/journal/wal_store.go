// Package journal persists a record of every committed operation in a WAL.
package journal

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/stellalpha/vaultcore/internal/domain"
)

const (
	DefaultDir   = "./wal/ops"
	segmentLimit = 1000
	maxSegments  = 100

	opKeyPrefix = "op_"
)

// Operation kinds written to the journal.
const (
	KindInitFeePolicy    = "init_fee_policy"
	KindCreateVault      = "create_vault"
	KindDeposit          = "deposit"
	KindWithdraw         = "withdraw"
	KindCreateAllocation = "create_allocation"
	KindMarkInitialized  = "mark_initialized"
	KindStartSync        = "start_sync"
	KindFinishSync       = "finish_sync"
	KindPause            = "pause_allocation"
	KindResume           = "resume_allocation"
	KindExecuteSwap      = "execute_swap"
	KindCreateSubAccount = "create_sub_account"
	KindCloseSubAccount  = "close_sub_account"
	KindCloseAllocation  = "close_allocation"
	KindSettle           = "settle"
	KindAllowAsset       = "allow_asset"
	KindDisallowAsset    = "disallow_asset"
)

// Entry is one committed operation. Amounts ride as strings so full uint64
// precision survives JSON.
type Entry struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Actor      domain.ID       `json:"actor"`
	Vault      domain.EntityID `json:"vault,omitempty"`
	Allocation domain.EntityID `json:"allocation,omitempty"`
	Asset      domain.Asset    `json:"asset,omitempty"`
	Amount     uint64          `json:"amount,string"`
	At         time.Time       `json:"at"`
}

// WALStore persists operation entries in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.Mutex
}

// NewWALStore initializes a WAL-backed operation journal.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "op_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init operation journal")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes one committed operation. A missing id and timestamp are
// filled in.
func (s *WALStore) Append(e Entry) error {
	if s == nil || s.wal == nil {
		return errors.New("operation journal is not initialized")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal operation entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, opKeyPrefix+e.Kind, payload)
}

// Entries returns every journaled operation in commit order.
func (s *WALStore) Entries() ([]Entry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("operation journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for msg := range s.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, opKeyPrefix) {
			continue
		}
		var e Entry
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, errors.Wrap(err, "decode operation entry")
		}
		out = append(out, e)
	}
	return out, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("operation journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
