package aggregator

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownProvider is returned when a provider type is not one of the
// declared variants.
var ErrUnknownProvider = errors.New("unknown aggregator provider")

// ErrCredentialRejected marks provider failures caused by a stale or revoked
// credential. These need user re-authentication, not a retry.
var ErrCredentialRejected = errors.New("provider rejected the stored credential")

// NotImplementedError is returned by the registry when a declared provider
// variant has no backing implementation. It surfaces at resolution time so
// partially rolled-out providers fail fast instead of at call time.
type NotImplementedError struct {
	Provider Type
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("aggregator provider %q is not implemented", e.Provider)
}

// IsNotImplemented reports whether err is a NotImplementedError.
func IsNotImplemented(err error) bool {
	var nie *NotImplementedError
	return errors.As(err, &nie)
}

// Provider is the capability set every aggregator implementation exposes.
// All inputs and outputs are canonical types. Implementations do not retry
// internally; retry policy belongs to the caller, as do timeouts (via ctx).
type Provider interface {
	// Type returns the provider variant tag.
	Type() Type

	// CreateLinkSession starts a link flow for the user.
	CreateLinkSession(ctx context.Context, userID string, opts LinkOptions) (*LinkSession, error)

	// ExchangePublicToken trades a temporary public token for a permanent
	// access credential and the accounts discovered under it.
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error)

	// GetAccounts returns all accounts for a connection.
	GetAccounts(ctx context.Context, credential string) ([]AccountInfo, error)

	// GetAccountsWithBalances returns accounts with live balances, which may
	// trigger a balance fetch at the institution.
	GetAccountsWithBalances(ctx context.Context, credential string) ([]AccountInfo, error)

	// SyncTransactions returns the next page of the incremental transaction
	// stream. An empty cursor means a virgin sync from the beginning.
	SyncTransactions(ctx context.Context, credential, cursor string) (*TransactionSyncPage, error)

	// GetHoldings returns the full holdings snapshot for the connection.
	GetHoldings(ctx context.Context, credential string) (*HoldingsSnapshot, error)

	// Disconnect removes the connection at the provider.
	Disconnect(ctx context.Context, credential string) (bool, error)

	// SupportsInstitution reports whether the provider can serve the
	// given institution.
	SupportsInstitution(institutionID string) bool

	// GetInstitutionName resolves a provider institution ID to its
	// human-readable name.
	GetInstitutionName(ctx context.Context, institutionID string) (string, error)
}
