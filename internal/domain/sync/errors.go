package sync

import (
	"errors"
	"fmt"

	"nestegg/internal/aggregator"
)

// Failure classes for sync operations. Every failure inside a synchronizer
// wraps one of these so the orchestrator can tell user-actionable failures
// (credential) from transient ones.
var (
	ErrCredential  = errors.New("credential error")
	ErrProvider    = errors.New("provider error")
	ErrMapping     = errors.New("mapping error")
	ErrPersistence = errors.New("persistence error")
)

// Stages a sync failure can be attributed to in reports.
const (
	StageBalance      = "balance_sync"
	StageTransactions = "transaction_sync"
	StageHoldings     = "holdings_sync"
	StageGeneral      = "general"
)

// classifyProviderErr wraps a provider call failure as a credential error
// when the provider rejected the stored credential, otherwise as a
// provider error.
func classifyProviderErr(op string, err error) error {
	if errors.Is(err, aggregator.ErrCredentialRejected) {
		return fmt.Errorf("%w: %s: %v", ErrCredential, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrProvider, op, err)
}
