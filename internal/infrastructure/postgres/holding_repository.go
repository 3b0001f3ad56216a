package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"nestegg/internal/domain/investment"
)

// HoldingRepository implements investment.HoldingRepository for PostgreSQL
type HoldingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new PostgreSQL holding repository
func NewHoldingRepository(db *DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

const holdingColumns = `
	id, user_id, connected_account_id, security_id,
	quantity, institution_price, institution_price_as_of, institution_value,
	cost_basis, currency, created_at`

// Create inserts a holding row
func (r *HoldingRepository) Create(ctx context.Context, params investment.CreateHoldingParams) (*investment.Holding, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO holdings (
			id, user_id, connected_account_id, security_id,
			quantity, institution_price, institution_price_as_of, institution_value,
			cost_basis, currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + holdingColumns

	row := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, params.ConnectedAccountID, params.SecurityID,
		params.Quantity, params.InstitutionPrice, nullTime(params.InstitutionPriceAsOf),
		params.InstitutionValue, nullDecimal(params.CostBasis), params.Currency,
	)

	holding, err := scanHolding(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create holding: %w", err)
	}
	return holding, nil
}

// DeleteByConnectedAccount removes every holding owned by a connected account
func (r *HoldingRepository) DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error) {
	query := `DELETE FROM holdings WHERE connected_account_id = $1`

	result, err := r.db.ExecContext(ctx, query, connectedAccountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete account holdings: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted holdings: %w", err)
	}
	return affected, nil
}

// ListByUserID retrieves all holdings for a user
func (r *HoldingRepository) ListByUserID(ctx context.Context, userID string) ([]*investment.Holding, error) {
	query := `SELECT` + holdingColumns + `
		FROM holdings
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*investment.Holding
	for rows.Next() {
		holding, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, holding)
	}
	return holdings, rows.Err()
}

func scanHolding(row rowScanner) (*investment.Holding, error) {
	var holding investment.Holding
	var priceAsOf sql.NullTime
	var costBasis decimal.NullDecimal

	err := row.Scan(
		&holding.ID, &holding.UserID, &holding.ConnectedAccountID, &holding.SecurityID,
		&holding.Quantity, &holding.InstitutionPrice, &priceAsOf, &holding.InstitutionValue,
		&costBasis, &holding.Currency, &holding.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	holding.InstitutionPriceAsOf = timePtr(priceAsOf)
	holding.CostBasis = decimalPtr(costBasis)

	return &holding, nil
}
