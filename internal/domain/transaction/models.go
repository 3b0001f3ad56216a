// Package transaction holds the ledger entries mirrored from aggregator
// providers plus the user's local overrides on them.
package transaction

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrForbidden           = errors.New("access forbidden")
)

// Transaction represents one ledger entry. Amount follows the
// outflow-positive convention: spending is positive, income is negative.
// Provider fields are overwritten on every sync; user override fields
// (UserCategory, Notes, Hidden) are never touched by the sync path.
type Transaction struct {
	ID                    string          `json:"id"`
	UserID                string          `json:"userId"`
	ConnectedAccountID    string          `json:"connectedAccountId"`
	ProviderTransactionID string          `json:"providerTransactionId"`
	ProviderAccountID     string          `json:"providerAccountId"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Date                  time.Time       `json:"date"`
	AuthorizedDate        *time.Time      `json:"authorizedDate"`
	Name                  string          `json:"name"`
	MerchantName          string          `json:"merchantName"`
	CategoryPrimary       string          `json:"categoryPrimary"`
	CategoryDetailed      string          `json:"categoryDetailed"`
	PaymentChannel        string          `json:"paymentChannel"`
	Pending               bool            `json:"pending"`
	LocationCity          string          `json:"locationCity"`
	LocationRegion        string          `json:"locationRegion"`
	LocationCountry       string          `json:"locationCountry"`
	UserCategory          *string         `json:"userCategory"`
	Notes                 *string         `json:"notes"`
	Hidden                bool            `json:"hidden"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// UpsertParams contains parameters for upserting a transaction by its
// provider transaction ID.
type UpsertParams struct {
	ID                    string
	UserID                string
	ConnectedAccountID    string
	ProviderTransactionID string
	ProviderAccountID     string
	Amount                decimal.Decimal
	Currency              string
	Date                  time.Time
	AuthorizedDate        *time.Time
	Name                  string
	MerchantName          string
	CategoryPrimary       string
	CategoryDetailed      string
	PaymentChannel        string
	Pending               bool
	LocationCity          string
	LocationRegion        string
	LocationCountry       string
}

// Validate validates the upsert parameters
func (p UpsertParams) Validate() error {
	if p.ID == "" {
		return errors.New("transaction ID is required")
	}
	if p.UserID == "" {
		return errors.New("valid user ID is required")
	}
	if p.ConnectedAccountID == "" {
		return errors.New("connected account ID is required")
	}
	if p.ProviderTransactionID == "" {
		return errors.New("provider transaction ID is required")
	}
	if p.Date.IsZero() {
		return errors.New("transaction date is required")
	}
	return nil
}
