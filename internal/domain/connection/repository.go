package connection

import (
	"context"
	"time"
)

// Repository defines the interface for connected account data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	// Upsert creates or refreshes a connected account keyed by its
	// provider account ID.
	Upsert(ctx context.Context, params UpsertParams) (*ConnectedAccount, error)

	// GetByID retrieves a connected account by its ID
	GetByID(ctx context.Context, id string) (*ConnectedAccount, error)

	// ListActiveByUserID retrieves all active connected accounts for a user
	ListActiveByUserID(ctx context.Context, userID string) ([]*ConnectedAccount, error)

	// ListByConnectionID retrieves every account sharing a provider
	// connection (one institution login, many accounts).
	ListByConnectionID(ctx context.Context, providerConnectionID string) ([]*ConnectedAccount, error)

	// ListUserIDs returns the distinct user IDs that have at least one
	// active connected account.
	ListUserIDs(ctx context.Context) ([]string, error)

	// MarkSynced stamps a successful sync: sets last_synced_at and clears
	// last_sync_error.
	MarkSynced(ctx context.Context, id string, syncedAt time.Time) error

	// RecordSyncError persists the last sync failure message for the account.
	RecordSyncError(ctx context.Context, id string, message string) error

	// UpdateCursor persists the transaction sync cursor together with the
	// synced timestamp and a cleared error, as a single update.
	UpdateCursor(ctx context.Context, id string, cursor string, syncedAt time.Time) error

	// Deactivate marks a connected account inactive
	Deactivate(ctx context.Context, id string) error
}
