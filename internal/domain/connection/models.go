// Package connection holds the connected-account domain: externally linked
// financial accounts, their encrypted provider credentials, and sync state.
package connection

import (
	"errors"
	"time"

	"nestegg/internal/aggregator"
)

// Domain errors
var (
	ErrConnectionNotFound = errors.New("connected account not found")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidInput       = errors.New("invalid input")
)

// ConnectedAccount represents one external account reachable through an
// aggregator provider. Several accounts may share a ProviderConnectionID
// (one institution login yields many accounts) and therefore share the
// same credential; ProviderAccountID is unique.
type ConnectedAccount struct {
	ID                   string                 `json:"id"`
	UserID               string                 `json:"userId"`
	Provider             aggregator.Type        `json:"provider"`
	ProviderConnectionID string                 `json:"providerConnectionId"`
	EncryptedCredential  string                 `json:"-"`
	ProviderAccountID    string                 `json:"providerAccountId"`
	InstitutionID        string                 `json:"institutionId"`
	InstitutionName      string                 `json:"institutionName"`
	AccountName          string                 `json:"accountName"`
	Kind                 aggregator.AccountKind `json:"kind"`
	Subtype              string                 `json:"subtype"`
	Mask                 string                 `json:"mask"`
	IsActive             bool                   `json:"isActive"`
	LastSyncedAt         *time.Time             `json:"lastSyncedAt"`
	LastSyncError        *string                `json:"lastSyncError"`
	TransactionsCursor   string                 `json:"-"`
	CreatedAt            time.Time              `json:"createdAt"`
	UpdatedAt            time.Time              `json:"updatedAt"`
}

// IsInvestment reports whether this account syncs holdings instead of
// the transaction stream.
func (a *ConnectedAccount) IsInvestment() bool {
	return a.Kind == aggregator.KindInvestment
}

// UpsertParams contains parameters for creating or refreshing a connected
// account keyed by its provider account ID.
type UpsertParams struct {
	ID                   string
	UserID               string
	Provider             aggregator.Type
	ProviderConnectionID string
	EncryptedCredential  string
	ProviderAccountID    string
	InstitutionID        string
	InstitutionName      string
	AccountName          string
	Kind                 aggregator.AccountKind
	Subtype              string
	Mask                 string
}

// Validate validates the upsert parameters
func (p UpsertParams) Validate() error {
	if p.ID == "" {
		return errors.New("connected account ID is required")
	}
	if p.UserID == "" {
		return errors.New("valid user ID is required")
	}
	if p.Provider == "" {
		return errors.New("provider is required")
	}
	if p.ProviderAccountID == "" {
		return errors.New("provider account ID is required")
	}
	if p.EncryptedCredential == "" {
		return errors.New("encrypted credential is required")
	}
	if p.AccountName == "" {
		return errors.New("account name is required")
	}
	return nil
}
