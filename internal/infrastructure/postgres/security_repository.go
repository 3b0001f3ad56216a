package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"nestegg/internal/domain/investment"
)

// SecurityRepository implements investment.SecurityRepository for PostgreSQL
type SecurityRepository struct {
	db *DB
}

// NewSecurityRepository creates a new PostgreSQL security repository
func NewSecurityRepository(db *DB) *SecurityRepository {
	return &SecurityRepository{db: db}
}

const securityColumns = `
	id, provider_security_id, name, ticker_symbol, type,
	close_price, close_price_as_of, is_cash_equivalent, currency,
	created_at, updated_at`

// Upsert creates or refreshes a security keyed by provider_security_id.
// The catalog is global, so concurrent syncs of different users converge
// on the same row.
func (r *SecurityRepository) Upsert(ctx context.Context, params investment.UpsertSecurityParams) (*investment.Security, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO securities (
			id, provider_security_id, name, ticker_symbol, type,
			close_price, close_price_as_of, is_cash_equivalent, currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider_security_id) DO UPDATE SET
			name = EXCLUDED.name,
			ticker_symbol = EXCLUDED.ticker_symbol,
			type = EXCLUDED.type,
			close_price = EXCLUDED.close_price,
			close_price_as_of = EXCLUDED.close_price_as_of,
			is_cash_equivalent = EXCLUDED.is_cash_equivalent,
			currency = EXCLUDED.currency,
			updated_at = NOW()
		RETURNING ` + securityColumns

	row := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.ProviderSecurityID, params.Name,
		nullString(params.TickerSymbol), nullString(params.Type),
		nullDecimal(params.ClosePrice), nullTime(params.ClosePriceAsOf),
		params.IsCashEquivalent, params.Currency,
	)

	security, err := scanSecurity(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert security: %w", err)
	}
	return security, nil
}

// GetByProviderSecurityID retrieves a security by its provider ID, or nil
// when unknown.
func (r *SecurityRepository) GetByProviderSecurityID(ctx context.Context, providerSecurityID string) (*investment.Security, error) {
	query := `SELECT` + securityColumns + `
		FROM securities
		WHERE provider_security_id = $1`

	security, err := scanSecurity(r.db.QueryRowContext(ctx, query, providerSecurityID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security: %w", err)
	}
	return security, nil
}

func scanSecurity(row rowScanner) (*investment.Security, error) {
	var security investment.Security
	var tickerSymbol, secType sql.NullString
	var closePrice decimal.NullDecimal
	var closePriceAsOf sql.NullTime

	err := row.Scan(
		&security.ID, &security.ProviderSecurityID, &security.Name,
		&tickerSymbol, &secType,
		&closePrice, &closePriceAsOf, &security.IsCashEquivalent, &security.Currency,
		&security.CreatedAt, &security.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	security.TickerSymbol = tickerSymbol.String
	security.Type = secType.String
	security.ClosePrice = decimalPtr(closePrice)
	security.ClosePriceAsOf = timePtr(closePriceAsOf)

	return &security, nil
}
