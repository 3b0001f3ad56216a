package networth

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AssetRepository defines the interface for asset data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type AssetRepository interface {
	// Create creates a new asset
	Create(ctx context.Context, params CreateAssetParams) (*Asset, error)

	// FindByConnectedAccount returns the asset linked to a connected
	// account, or nil when none exists.
	FindByConnectedAccount(ctx context.Context, connectedAccountID string) (*Asset, error)

	// UpdateValue overwrites the asset's value in place and stamps the
	// sync time.
	UpdateValue(ctx context.Context, id string, value decimal.Decimal, syncedAt time.Time) error

	// UnlinkConnectedAccount detaches any asset linked to the connected
	// account, keeping it as a manual entry.
	UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error

	// ListByUserID retrieves all assets for a user
	ListByUserID(ctx context.Context, userID string) ([]*Asset, error)
}

// LiabilityRepository defines the interface for liability data access.
type LiabilityRepository interface {
	// Create creates a new liability
	Create(ctx context.Context, params CreateLiabilityParams) (*Liability, error)

	// FindByConnectedAccount returns the liability linked to a connected
	// account, or nil when none exists.
	FindByConnectedAccount(ctx context.Context, connectedAccountID string) (*Liability, error)

	// UpdateBalance overwrites the liability's balance in place and stamps
	// the sync time.
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal, syncedAt time.Time) error

	// UnlinkConnectedAccount detaches any liability linked to the connected
	// account, keeping it as a manual entry.
	UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error

	// ListByUserID retrieves all liabilities for a user
	ListByUserID(ctx context.Context, userID string) ([]*Liability, error)
}
