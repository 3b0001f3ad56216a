package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nestegg/internal/aggregator"
	"nestegg/internal/domain/connection"
)

// ConnectedAccountRepository implements connection.Repository for PostgreSQL
type ConnectedAccountRepository struct {
	db *DB
}

// NewConnectedAccountRepository creates a new PostgreSQL connected account repository
func NewConnectedAccountRepository(db *DB) *ConnectedAccountRepository {
	return &ConnectedAccountRepository{db: db}
}

const connectedAccountColumns = `
	id, user_id, provider, provider_connection_id, encrypted_credential,
	provider_account_id, institution_id, institution_name, account_name,
	kind, subtype, mask, is_active, last_synced_at, last_sync_error,
	transactions_cursor, created_at, updated_at`

// Upsert creates or refreshes a connected account keyed by provider_account_id.
// Relinking reactivates the account and refreshes the stored credential;
// sync state (cursor, last error) is preserved.
func (r *ConnectedAccountRepository) Upsert(ctx context.Context, params connection.UpsertParams) (*connection.ConnectedAccount, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO connected_accounts (
			id, user_id, provider, provider_connection_id, encrypted_credential,
			provider_account_id, institution_id, institution_name, account_name,
			kind, subtype, mask, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE)
		ON CONFLICT (provider_account_id) DO UPDATE SET
			provider_connection_id = EXCLUDED.provider_connection_id,
			encrypted_credential = EXCLUDED.encrypted_credential,
			institution_id = EXCLUDED.institution_id,
			institution_name = EXCLUDED.institution_name,
			account_name = EXCLUDED.account_name,
			kind = EXCLUDED.kind,
			subtype = EXCLUDED.subtype,
			mask = EXCLUDED.mask,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING ` + connectedAccountColumns

	row := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, string(params.Provider), params.ProviderConnectionID,
		params.EncryptedCredential, params.ProviderAccountID,
		nullString(params.InstitutionID), nullString(params.InstitutionName),
		params.AccountName, string(params.Kind), nullString(params.Subtype), nullString(params.Mask),
	)

	account, err := scanConnectedAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert connected account: %w", err)
	}
	return account, nil
}

// GetByID retrieves a connected account by its ID. Returns nil when missing.
func (r *ConnectedAccountRepository) GetByID(ctx context.Context, id string) (*connection.ConnectedAccount, error) {
	query := `SELECT` + connectedAccountColumns + `
		FROM connected_accounts
		WHERE id = $1`

	account, err := scanConnectedAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connected account: %w", err)
	}
	return account, nil
}

// ListActiveByUserID retrieves all active connected accounts for a user
func (r *ConnectedAccountRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*connection.ConnectedAccount, error) {
	query := `SELECT` + connectedAccountColumns + `
		FROM connected_accounts
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at`

	return r.list(ctx, query, userID)
}

// ListByConnectionID retrieves every account sharing a provider connection
func (r *ConnectedAccountRepository) ListByConnectionID(ctx context.Context, providerConnectionID string) ([]*connection.ConnectedAccount, error) {
	query := `SELECT` + connectedAccountColumns + `
		FROM connected_accounts
		WHERE provider_connection_id = $1
		ORDER BY created_at`

	return r.list(ctx, query, providerConnectionID)
}

// ListUserIDs returns the distinct users with at least one active account
func (r *ConnectedAccountRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM connected_accounts
		WHERE is_active = TRUE
		ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user IDs: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}

// MarkSynced stamps a successful sync and clears the last error
func (r *ConnectedAccountRepository) MarkSynced(ctx context.Context, id string, syncedAt time.Time) error {
	query := `
		UPDATE connected_accounts
		SET last_synced_at = $2, last_sync_error = NULL, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, syncedAt); err != nil {
		return fmt.Errorf("failed to mark account synced: %w", err)
	}
	return nil
}

// RecordSyncError persists the last sync failure message
func (r *ConnectedAccountRepository) RecordSyncError(ctx context.Context, id string, message string) error {
	query := `
		UPDATE connected_accounts
		SET last_sync_error = $2, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, message); err != nil {
		return fmt.Errorf("failed to record sync error: %w", err)
	}
	return nil
}

// UpdateCursor persists cursor, sync timestamp and cleared error atomically
func (r *ConnectedAccountRepository) UpdateCursor(ctx context.Context, id string, cursor string, syncedAt time.Time) error {
	query := `
		UPDATE connected_accounts
		SET transactions_cursor = $2, last_synced_at = $3, last_sync_error = NULL, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, cursor, syncedAt); err != nil {
		return fmt.Errorf("failed to update cursor: %w", err)
	}
	return nil
}

// Deactivate marks a connected account inactive
func (r *ConnectedAccountRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE connected_accounts
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	return nil
}

func (r *ConnectedAccountRepository) list(ctx context.Context, query string, arg any) ([]*connection.ConnectedAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*connection.ConnectedAccount
	for rows.Next() {
		account, err := scanConnectedAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connected account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnectedAccount(row rowScanner) (*connection.ConnectedAccount, error) {
	var account connection.ConnectedAccount
	var provider, kind string
	var institutionID, institutionName, subtype, mask, cursor, lastError sql.NullString
	var lastSyncedAt sql.NullTime

	err := row.Scan(
		&account.ID, &account.UserID, &provider, &account.ProviderConnectionID,
		&account.EncryptedCredential, &account.ProviderAccountID,
		&institutionID, &institutionName, &account.AccountName,
		&kind, &subtype, &mask, &account.IsActive,
		&lastSyncedAt, &lastError, &cursor,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Provider = aggregator.Type(provider)
	account.Kind = aggregator.AccountKind(kind)
	account.InstitutionID = institutionID.String
	account.InstitutionName = institutionName.String
	account.Subtype = subtype.String
	account.Mask = mask.String
	account.TransactionsCursor = cursor.String
	if lastSyncedAt.Valid {
		account.LastSyncedAt = &lastSyncedAt.Time
	}
	if lastError.Valid {
		account.LastSyncError = &lastError.String
	}

	return &account, nil
}
