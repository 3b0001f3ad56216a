// Package investment holds the securities catalog and per-account holdings
// mirrored from aggregator providers.
package investment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrSecurityNotFound = errors.New("security not found")
	ErrHoldingNotFound  = errors.New("holding not found")
)

// Security represents a tradable instrument. The catalog is global: one
// row per provider security ID, shared across users, refreshed in place.
type Security struct {
	ID                 string           `json:"id"`
	ProviderSecurityID string           `json:"providerSecurityId"`
	Name               string           `json:"name"`
	TickerSymbol       string           `json:"tickerSymbol"`
	Type               string           `json:"type"`
	ClosePrice         *decimal.Decimal `json:"closePrice"`
	ClosePriceAsOf     *time.Time       `json:"closePriceAsOf"`
	IsCashEquivalent   bool             `json:"isCashEquivalent"`
	Currency           string           `json:"currency"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// Holding represents one investment position in a connected account.
// The per-account set is replaced wholesale on every holdings sync.
type Holding struct {
	ID                   string           `json:"id"`
	UserID               string           `json:"userId"`
	ConnectedAccountID   string           `json:"connectedAccountId"`
	SecurityID           string           `json:"securityId"`
	Quantity             decimal.Decimal  `json:"quantity"`
	InstitutionPrice     decimal.Decimal  `json:"institutionPrice"`
	InstitutionPriceAsOf *time.Time       `json:"institutionPriceAsOf"`
	InstitutionValue     decimal.Decimal  `json:"institutionValue"`
	CostBasis            *decimal.Decimal `json:"costBasis"`
	Currency             string           `json:"currency"`
	CreatedAt            time.Time        `json:"createdAt"`
}

// UpsertSecurityParams contains parameters for upserting a security by its
// provider security ID.
type UpsertSecurityParams struct {
	ID                 string
	ProviderSecurityID string
	Name               string
	TickerSymbol       string
	Type               string
	ClosePrice         *decimal.Decimal
	ClosePriceAsOf     *time.Time
	IsCashEquivalent   bool
	Currency           string
}

// Validate validates the upsert parameters
func (p UpsertSecurityParams) Validate() error {
	if p.ID == "" {
		return errors.New("security ID is required")
	}
	if p.ProviderSecurityID == "" {
		return errors.New("provider security ID is required")
	}
	return nil
}

// CreateHoldingParams contains parameters for inserting a holding row.
type CreateHoldingParams struct {
	ID                   string
	UserID               string
	ConnectedAccountID   string
	SecurityID           string
	Quantity             decimal.Decimal
	InstitutionPrice     decimal.Decimal
	InstitutionPriceAsOf *time.Time
	InstitutionValue     decimal.Decimal
	CostBasis            *decimal.Decimal
	Currency             string
}

// Validate validates the create parameters
func (p CreateHoldingParams) Validate() error {
	if p.ID == "" {
		return errors.New("holding ID is required")
	}
	if p.UserID == "" {
		return errors.New("valid user ID is required")
	}
	if p.ConnectedAccountID == "" {
		return errors.New("connected account ID is required")
	}
	if p.SecurityID == "" {
		return errors.New("security ID is required")
	}
	return nil
}
