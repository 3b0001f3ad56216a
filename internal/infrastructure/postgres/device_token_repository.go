package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"nestegg/internal/domain/notification"
)

// DeviceTokenRepository implements notification.Repository for PostgreSQL
type DeviceTokenRepository struct {
	db *DB
}

// NewDeviceTokenRepository creates a new PostgreSQL device token repository
func NewDeviceTokenRepository(db *DB) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

const deviceTokenColumns = `
	id, user_id, token, device_type, is_active, created_at, last_used`

// UpsertDeviceToken registers a token. A token already registered (possibly
// by another user on a shared device) is reassigned and reactivated.
func (r *DeviceTokenRepository) UpsertDeviceToken(ctx context.Context, params notification.CreateDeviceTokenParams) (*notification.DeviceToken, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO device_tokens (id, user_id, token, device_type, is_active, last_used)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			device_type = EXCLUDED.device_type,
			is_active = TRUE,
			last_used = NOW()
		RETURNING ` + deviceTokenColumns

	row := r.db.QueryRowContext(ctx, query, uuid.NewString(), params.UserID, params.Token, params.DeviceType)

	var dt notification.DeviceToken
	err := row.Scan(&dt.ID, &dt.UserID, &dt.Token, &dt.DeviceType, &dt.IsActive, &dt.CreatedAt, &dt.LastUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device token: %w", err)
	}
	return &dt, nil
}

// GetActiveTokensByUserID retrieves the user's active device tokens
func (r *DeviceTokenRepository) GetActiveTokensByUserID(ctx context.Context, userID string) ([]*notification.DeviceToken, error) {
	query := `SELECT` + deviceTokenColumns + `
		FROM device_tokens
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY last_used DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*notification.DeviceToken
	for rows.Next() {
		var dt notification.DeviceToken
		if err := rows.Scan(&dt.ID, &dt.UserID, &dt.Token, &dt.DeviceType, &dt.IsActive, &dt.CreatedAt, &dt.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, &dt)
	}
	return tokens, rows.Err()
}

// DeactivateToken marks a device token inactive. FCM reports stale tokens
// on send; they are deactivated rather than deleted so re-registration is
// an update.
func (r *DeviceTokenRepository) DeactivateToken(ctx context.Context, token string) error {
	query := `
		UPDATE device_tokens
		SET is_active = FALSE
		WHERE token = $1`

	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("failed to deactivate device token: %w", err)
	}
	return nil
}
