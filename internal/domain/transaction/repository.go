package transaction

import "context"

// Repository defines the interface for transaction data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	// Upsert creates or refreshes a transaction keyed by its provider
	// transaction ID. Re-applying the same entry is a no-op update; user
	// override columns are preserved.
	Upsert(ctx context.Context, params UpsertParams) (*Transaction, error)

	// DeleteByProviderTransactionID removes a transaction the provider
	// reported as removed. Returns whether a row was actually deleted;
	// unknown IDs are not an error.
	DeleteByProviderTransactionID(ctx context.Context, providerTransactionID string) (bool, error)

	// DeleteByConnectedAccount removes every transaction owned by a
	// connected account and returns the number deleted.
	DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error)

	// ListByUserID retrieves transactions for a user, newest first
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*Transaction, error)
}
