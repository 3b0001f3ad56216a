// Package networth holds the asset and liability entries that make up a
// user's net worth. Entries are either manual or connected: a connected
// entry mirrors one external account and is overwritten in place on every
// sync.
package networth

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Asset categories
const (
	AssetCash              = "cash"
	AssetSavings           = "savings"
	AssetRetirement401k    = "retirement_401k"
	AssetRetirementIRA     = "retirement_ira"
	AssetRetirementRoth    = "retirement_roth"
	AssetRetirementHSA     = "retirement_hsa"
	AssetRetirementPension = "retirement_pension"
	AssetRetirementOther   = "retirement_other"
	AssetBrokerage         = "brokerage"
	AssetRealEstatePrimary = "real_estate_primary"
	AssetRealEstateRental  = "real_estate_rental"
	AssetRealEstateLand    = "real_estate_land"
	AssetVehicle           = "vehicle"
	AssetBusiness          = "business"
	AssetValuables         = "valuables"
	AssetOther             = "other"
)

// Liability categories
const (
	LiabilityMortgage     = "mortgage"
	LiabilityCreditCard   = "credit_card"
	LiabilityAutoLoan     = "auto_loan"
	LiabilityStudentLoan  = "student_loan"
	LiabilityPersonalLoan = "personal_loan"
	LiabilityOther        = "other"
)

var validAssetCategories = map[string]struct{}{
	AssetCash: {}, AssetSavings: {}, AssetRetirement401k: {}, AssetRetirementIRA: {},
	AssetRetirementRoth: {}, AssetRetirementHSA: {}, AssetRetirementPension: {},
	AssetRetirementOther: {}, AssetBrokerage: {}, AssetRealEstatePrimary: {},
	AssetRealEstateRental: {}, AssetRealEstateLand: {}, AssetVehicle: {},
	AssetBusiness: {}, AssetValuables: {}, AssetOther: {},
}

var validLiabilityCategories = map[string]struct{}{
	LiabilityMortgage: {}, LiabilityCreditCard: {}, LiabilityAutoLoan: {},
	LiabilityStudentLoan: {}, LiabilityPersonalLoan: {}, LiabilityOther: {},
}

// Domain errors
var (
	ErrEntryNotFound   = errors.New("net worth entry not found")
	ErrInvalidCategory = errors.New("invalid net worth category")
	ErrForbidden       = errors.New("access forbidden")
)

// Asset represents something the user owns. Connected assets carry the
// ID of the connected account they mirror.
type Asset struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"userId"`
	Category           string           `json:"category"`
	Name               string           `json:"name"`
	Value              decimal.Decimal  `json:"value"`
	InterestRate       *decimal.Decimal `json:"interestRate"`
	ConnectedAccountID *string          `json:"connectedAccountId"`
	IsConnected        bool             `json:"isConnected"`
	LastSyncedAt       *time.Time       `json:"lastSyncedAt"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// Liability represents something the user owes. Balance is always the
// positive amount owed.
type Liability struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"userId"`
	Category           string           `json:"category"`
	Name               string           `json:"name"`
	Balance            decimal.Decimal  `json:"balance"`
	InterestRate       *decimal.Decimal `json:"interestRate"`
	ConnectedAccountID *string          `json:"connectedAccountId"`
	IsConnected        bool             `json:"isConnected"`
	LastSyncedAt       *time.Time       `json:"lastSyncedAt"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// CreateAssetParams contains parameters for creating an asset
type CreateAssetParams struct {
	ID                 string
	UserID             string
	Category           string
	Name               string
	Value              decimal.Decimal
	ConnectedAccountID *string
}

// Validate validates the create parameters
func (p CreateAssetParams) Validate() error {
	if p.ID == "" {
		return errors.New("asset ID is required")
	}
	if p.UserID == "" {
		return errors.New("valid user ID is required")
	}
	if p.Name == "" {
		return errors.New("asset name is required")
	}
	if !IsValidAssetCategory(p.Category) {
		return ErrInvalidCategory
	}
	return nil
}

// CreateLiabilityParams contains parameters for creating a liability
type CreateLiabilityParams struct {
	ID                 string
	UserID             string
	Category           string
	Name               string
	Balance            decimal.Decimal
	ConnectedAccountID *string
}

// Validate validates the create parameters
func (p CreateLiabilityParams) Validate() error {
	if p.ID == "" {
		return errors.New("liability ID is required")
	}
	if p.UserID == "" {
		return errors.New("valid user ID is required")
	}
	if p.Name == "" {
		return errors.New("liability name is required")
	}
	if !IsValidLiabilityCategory(p.Category) {
		return ErrInvalidCategory
	}
	return nil
}

// IsValidAssetCategory checks if the provided asset category is valid.
func IsValidAssetCategory(c string) bool {
	_, ok := validAssetCategories[c]
	return ok
}

// IsValidLiabilityCategory checks if the provided liability category is valid.
func IsValidLiabilityCategory(c string) bool {
	_, ok := validLiabilityCategories[c]
	return ok
}
