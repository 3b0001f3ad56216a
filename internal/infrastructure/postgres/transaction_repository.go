package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"nestegg/internal/domain/transaction"
)

// TransactionRepository implements transaction.Repository for PostgreSQL
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, user_id, connected_account_id, provider_transaction_id, provider_account_id,
	amount, currency, date, authorized_date, name, merchant_name,
	category_primary, category_detailed, payment_channel, pending,
	location_city, location_region, location_country,
	user_category, notes, hidden, created_at, updated_at`

// Upsert creates or refreshes a transaction keyed by provider_transaction_id.
// The ON CONFLICT branch touches only provider-sourced columns; user_category,
// notes and hidden survive re-syncs untouched.
func (r *TransactionRepository) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO transactions (
			id, user_id, connected_account_id, provider_transaction_id, provider_account_id,
			amount, currency, date, authorized_date, name, merchant_name,
			category_primary, category_detailed, payment_channel, pending,
			location_city, location_region, location_country
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (provider_transaction_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			date = EXCLUDED.date,
			authorized_date = EXCLUDED.authorized_date,
			name = EXCLUDED.name,
			merchant_name = EXCLUDED.merchant_name,
			category_primary = EXCLUDED.category_primary,
			category_detailed = EXCLUDED.category_detailed,
			payment_channel = EXCLUDED.payment_channel,
			pending = EXCLUDED.pending,
			location_city = EXCLUDED.location_city,
			location_region = EXCLUDED.location_region,
			location_country = EXCLUDED.location_country,
			updated_at = NOW()
		RETURNING ` + transactionColumns

	row := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, params.ConnectedAccountID,
		params.ProviderTransactionID, params.ProviderAccountID,
		params.Amount, params.Currency, params.Date, nullTime(params.AuthorizedDate),
		params.Name, nullString(params.MerchantName),
		nullString(params.CategoryPrimary), nullString(params.CategoryDetailed),
		nullString(params.PaymentChannel), params.Pending,
		nullString(params.LocationCity), nullString(params.LocationRegion), nullString(params.LocationCountry),
	)

	txn, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return txn, nil
}

// DeleteByProviderTransactionID removes a transaction the provider reported
// as removed. Unknown IDs delete zero rows and are not an error.
func (r *TransactionRepository) DeleteByProviderTransactionID(ctx context.Context, providerTransactionID string) (bool, error) {
	query := `DELETE FROM transactions WHERE provider_transaction_id = $1`

	result, err := r.db.ExecContext(ctx, query, providerTransactionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted transactions: %w", err)
	}
	return affected > 0, nil
}

// DeleteByConnectedAccount removes every transaction owned by a connected account
func (r *TransactionRepository) DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error) {
	query := `DELETE FROM transactions WHERE connected_account_id = $1`

	result, err := r.db.ExecContext(ctx, query, connectedAccountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete account transactions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted transactions: %w", err)
	}
	return affected, nil
}

// ListByUserID retrieves transactions for a user, newest first
func (r *TransactionRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*transaction.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	var authorizedDate sql.NullTime
	var merchantName, categoryPrimary, categoryDetailed, paymentChannel sql.NullString
	var locationCity, locationRegion, locationCountry sql.NullString
	var userCategory, notes sql.NullString

	err := row.Scan(
		&txn.ID, &txn.UserID, &txn.ConnectedAccountID,
		&txn.ProviderTransactionID, &txn.ProviderAccountID,
		&txn.Amount, &txn.Currency, &txn.Date, &authorizedDate,
		&txn.Name, &merchantName,
		&categoryPrimary, &categoryDetailed, &paymentChannel, &txn.Pending,
		&locationCity, &locationRegion, &locationCountry,
		&userCategory, &notes, &txn.Hidden,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.AuthorizedDate = timePtr(authorizedDate)
	txn.MerchantName = merchantName.String
	txn.CategoryPrimary = categoryPrimary.String
	txn.CategoryDetailed = categoryDetailed.String
	txn.PaymentChannel = paymentChannel.String
	txn.LocationCity = locationCity.String
	txn.LocationRegion = locationRegion.String
	txn.LocationCountry = locationCountry.String
	txn.UserCategory = stringPtr(userCategory)
	txn.Notes = stringPtr(notes)

	return &txn, nil
}
