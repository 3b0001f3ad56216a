package investment

import "context"

// SecurityRepository defines the interface for the securities catalog.
// Defined in the domain layer, implemented in the infrastructure layer.
type SecurityRepository interface {
	// Upsert creates or refreshes a security keyed by its provider
	// security ID and returns the stored row (with its internal ID).
	Upsert(ctx context.Context, params UpsertSecurityParams) (*Security, error)

	// GetByProviderSecurityID retrieves a security by its provider ID,
	// or nil when unknown.
	GetByProviderSecurityID(ctx context.Context, providerSecurityID string) (*Security, error)
}

// HoldingRepository defines the interface for holdings data access.
type HoldingRepository interface {
	// Create inserts a holding row
	Create(ctx context.Context, params CreateHoldingParams) (*Holding, error)

	// DeleteByConnectedAccount removes every holding owned by a connected
	// account and returns the number deleted.
	DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error)

	// ListByUserID retrieves all holdings for a user
	ListByUserID(ctx context.Context, userID string) ([]*Holding, error)
}
