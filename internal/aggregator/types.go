// Package aggregator defines the provider-agnostic boundary to external
// financial data aggregators. Concrete providers normalize their payloads
// into the canonical types in this package; provider-specific shapes never
// leak past it.
package aggregator

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies an external aggregator provider.
type Type string

const (
	TypePlaid    Type = "plaid"
	TypeFinicity Type = "finicity"
	TypeYodlee   Type = "yodlee"
	TypeMX       Type = "mx"
	TypeAkoya    Type = "akoya"
)

// AllTypes lists every declared provider variant, backed or not.
func AllTypes() []Type {
	return []Type{TypePlaid, TypeFinicity, TypeYodlee, TypeMX, TypeAkoya}
}

// AccountKind is the normalized account classification shared by all providers.
type AccountKind string

const (
	KindDepository AccountKind = "depository" // checking, savings
	KindCredit     AccountKind = "credit"     // credit cards
	KindLoan       AccountKind = "loan"       // mortgages, auto, student
	KindInvestment AccountKind = "investment" // brokerage, retirement
	KindOther      AccountKind = "other"
)

// AccountInfo is the canonical representation of one external account.
type AccountInfo struct {
	ProviderAccountID string
	Name              string
	Kind              AccountKind
	Subtype           string
	Mask              string
	CurrentBalance    *decimal.Decimal
	AvailableBalance  *decimal.Decimal
	CreditLimit       *decimal.Decimal
	InstitutionID     string
	InstitutionName   string
	Currency          string
}

// TransactionInfo is the canonical representation of one ledger entry.
// Amount follows the outflow-positive convention: spending is positive,
// income is negative.
type TransactionInfo struct {
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

// SecurityInfo is the canonical representation of a tradable instrument.
type SecurityInfo struct {
	ProviderSecurityID string
	Name               string
	TickerSymbol       string
	Type               string
	ClosePrice         *decimal.Decimal
	ClosePriceAsOf     *time.Time
	IsCashEquivalent   bool
	Currency           string
}

// HoldingInfo is the canonical representation of one investment position.
type HoldingInfo struct {
	ProviderAccountID    string
	ProviderSecurityID   string
	Quantity             decimal.Decimal
	InstitutionPrice     decimal.Decimal
	InstitutionPriceAsOf *time.Time
	InstitutionValue     decimal.Decimal
	CostBasis            *decimal.Decimal
	Currency             string
}

// LinkOptions carries provider-specific knobs for creating a link session.
type LinkOptions struct {
	InstitutionID string
	RedirectURI   string
	WebhookURL    string
}

// LinkSession is the result of creating a link flow for a user. Plaid-style
// providers return a LinkToken; redirect-based providers return a ConnectURL.
type LinkSession struct {
	Provider   Type
	LinkToken  string
	ConnectURL string
	Expiration *time.Time
}

// ExchangeResult is the outcome of exchanging a public token. Credential is
// the plaintext access credential; callers encrypt it before storing.
type ExchangeResult struct {
	Provider        Type
	Credential      string
	ConnectionID    string
	Accounts        []AccountInfo
	InstitutionID   string
	InstitutionName string
}

// TransactionSyncPage is one page of the incremental transaction stream.
// Removed carries provider transaction IDs only.
type TransactionSyncPage struct {
	Added      []TransactionInfo
	Modified   []TransactionInfo
	Removed    []string
	NextCursor string
	HasMore    bool
}

// HoldingsSnapshot is the full current holdings state for a connection.
// The holdings API has no cursor or change events; every fetch returns
// the complete snapshot.
type HoldingsSnapshot struct {
	Holdings   []HoldingInfo
	Securities []SecurityInfo
}
