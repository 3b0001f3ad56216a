package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"nestegg/internal/domain/networth"
)

// AssetRepository implements networth.AssetRepository for PostgreSQL
type AssetRepository struct {
	db *DB
}

// NewAssetRepository creates a new PostgreSQL asset repository
func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = `
	id, user_id, category, name, value, interest_rate,
	connected_account_id, last_synced_at, created_at, updated_at`

// Create creates a new asset
func (r *AssetRepository) Create(ctx context.Context, params networth.CreateAssetParams) (*networth.Asset, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO assets (id, user_id, category, name, value, connected_account_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + assetColumns

	row := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, params.Category, params.Name,
		params.Value, nullStringPtr(params.ConnectedAccountID),
	)

	asset, err := scanAsset(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}
	return asset, nil
}

// FindByConnectedAccount returns the asset linked to a connected account,
// or nil when none exists.
func (r *AssetRepository) FindByConnectedAccount(ctx context.Context, connectedAccountID string) (*networth.Asset, error) {
	query := `SELECT` + assetColumns + `
		FROM assets
		WHERE connected_account_id = $1`

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, connectedAccountID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find asset: %w", err)
	}
	return asset, nil
}

// UpdateValue overwrites the asset's value in place and stamps the sync time
func (r *AssetRepository) UpdateValue(ctx context.Context, id string, value decimal.Decimal, syncedAt time.Time) error {
	query := `
		UPDATE assets
		SET value = $2, last_synced_at = $3, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, value, syncedAt); err != nil {
		return fmt.Errorf("failed to update asset value: %w", err)
	}
	return nil
}

// UnlinkConnectedAccount detaches any asset linked to the connected account,
// keeping it as a manual entry.
func (r *AssetRepository) UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error {
	query := `
		UPDATE assets
		SET connected_account_id = NULL, updated_at = NOW()
		WHERE connected_account_id = $1`

	if _, err := r.db.ExecContext(ctx, query, connectedAccountID); err != nil {
		return fmt.Errorf("failed to unlink asset: %w", err)
	}
	return nil
}

// ListByUserID retrieves all assets for a user
func (r *AssetRepository) ListByUserID(ctx context.Context, userID string) ([]*networth.Asset, error) {
	query := `SELECT` + assetColumns + `
		FROM assets
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*networth.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func scanAsset(row rowScanner) (*networth.Asset, error) {
	var asset networth.Asset
	var interestRate decimal.NullDecimal
	var connectedAccountID sql.NullString
	var lastSyncedAt sql.NullTime

	err := row.Scan(
		&asset.ID, &asset.UserID, &asset.Category, &asset.Name,
		&asset.Value, &interestRate,
		&connectedAccountID, &lastSyncedAt,
		&asset.CreatedAt, &asset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	asset.InterestRate = decimalPtr(interestRate)
	asset.ConnectedAccountID = stringPtr(connectedAccountID)
	asset.IsConnected = connectedAccountID.Valid
	asset.LastSyncedAt = timePtr(lastSyncedAt)

	return &asset, nil
}
