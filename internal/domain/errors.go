package domain

import "github.com/pkg/errors"

// Every operation classifies its failure with one of these sentinels; callers
// match with errors.Is. A failed operation never commits partial state.
var (
	// ErrUnauthorized is returned when the caller identity does not match the
	// stored identity for the role an operation requires.
	ErrUnauthorized = errors.New("caller is not authorized to perform this action")

	// Lifecycle state errors.
	ErrNotInitialized     = errors.New("allocation is not initialized")
	ErrAlreadySyncing     = errors.New("allocation sync already in progress")
	ErrAlreadyInitialized = errors.New("allocation is already initialized")
	ErrNotSyncing         = errors.New("allocation is not syncing")
	ErrNotPaused          = errors.New("allocation must be paused")
	ErrSyncInProgress     = errors.New("allocation cannot be closed while syncing")

	// Account binding errors.
	ErrRecordNotBound = errors.New("balance record is not owned by the expected entity")
	ErrAssetMismatch  = errors.New("asset does not match the vault base asset")

	// ErrArithmetic is returned when fee or balance math would overflow.
	ErrArithmetic = errors.New("arithmetic overflow in balance computation")

	// Swap execution errors.
	ErrSlippage  = errors.New("swap output below the declared minimum")
	ErrOverspend = errors.New("swap spent more than the declared input bound")

	ErrNonEmptyBalance   = errors.New("balance record still holds funds")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrPolicyInitialized = errors.New("fee policy is already initialized")
	ErrAssetNotAllowed   = errors.New("asset is neither the base asset nor whitelisted")
)
