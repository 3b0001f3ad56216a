package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"nestegg/internal/domain/networth"
)

// LiabilityRepository implements networth.LiabilityRepository for PostgreSQL
type LiabilityRepository struct {
	db *DB
}

// NewLiabilityRepository creates a new PostgreSQL liability repository
func NewLiabilityRepository(db *DB) *LiabilityRepository {
	return &LiabilityRepository{db: db}
}

const liabilityColumns = `
	id, user_id, category, name, balance, interest_rate,
	connected_account_id, last_synced_at, created_at, updated_at`

// Create creates a new liability
func (r *LiabilityRepository) Create(ctx context.Context, params networth.CreateLiabilityParams) (*networth.Liability, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO liabilities (id, user_id, category, name, balance, connected_account_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + liabilityColumns

	row := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, params.Category, params.Name,
		params.Balance, nullStringPtr(params.ConnectedAccountID),
	)

	liability, err := scanLiability(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create liability: %w", err)
	}
	return liability, nil
}

// FindByConnectedAccount returns the liability linked to a connected account,
// or nil when none exists.
func (r *LiabilityRepository) FindByConnectedAccount(ctx context.Context, connectedAccountID string) (*networth.Liability, error) {
	query := `SELECT` + liabilityColumns + `
		FROM liabilities
		WHERE connected_account_id = $1`

	liability, err := scanLiability(r.db.QueryRowContext(ctx, query, connectedAccountID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find liability: %w", err)
	}
	return liability, nil
}

// UpdateBalance overwrites the liability's balance in place and stamps the sync time
func (r *LiabilityRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal, syncedAt time.Time) error {
	query := `
		UPDATE liabilities
		SET balance = $2, last_synced_at = $3, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, balance, syncedAt); err != nil {
		return fmt.Errorf("failed to update liability balance: %w", err)
	}
	return nil
}

// UnlinkConnectedAccount detaches any liability linked to the connected
// account, keeping it as a manual entry.
func (r *LiabilityRepository) UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error {
	query := `
		UPDATE liabilities
		SET connected_account_id = NULL, updated_at = NOW()
		WHERE connected_account_id = $1`

	if _, err := r.db.ExecContext(ctx, query, connectedAccountID); err != nil {
		return fmt.Errorf("failed to unlink liability: %w", err)
	}
	return nil
}

// ListByUserID retrieves all liabilities for a user
func (r *LiabilityRepository) ListByUserID(ctx context.Context, userID string) ([]*networth.Liability, error) {
	query := `SELECT` + liabilityColumns + `
		FROM liabilities
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list liabilities: %w", err)
	}
	defer rows.Close()

	var liabilities []*networth.Liability
	for rows.Next() {
		liability, err := scanLiability(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan liability: %w", err)
		}
		liabilities = append(liabilities, liability)
	}
	return liabilities, rows.Err()
}

func scanLiability(row rowScanner) (*networth.Liability, error) {
	var liability networth.Liability
	var interestRate decimal.NullDecimal
	var connectedAccountID sql.NullString
	var lastSyncedAt sql.NullTime

	err := row.Scan(
		&liability.ID, &liability.UserID, &liability.Category, &liability.Name,
		&liability.Balance, &interestRate,
		&connectedAccountID, &lastSyncedAt,
		&liability.CreatedAt, &liability.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	liability.InterestRate = decimalPtr(interestRate)
	liability.ConnectedAccountID = stringPtr(connectedAccountID)
	liability.IsConnected = connectedAccountID.Valid
	liability.LastSyncedAt = timePtr(lastSyncedAt)

	return &liability, nil
}
