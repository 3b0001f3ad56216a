package sync

import (
	"fmt"
	"strings"

	"nestegg/internal/aggregator"
	"nestegg/internal/domain/networth"
)

// EntryClass says which side of the net worth ledger an account maps to.
type EntryClass string

const (
	ClassAsset     EntryClass = "asset"
	ClassLiability EntryClass = "liability"
)

// Mapping is the resolved net worth placement for an account kind/subtype.
type Mapping struct {
	Class    EntryClass
	Category string
}

type kindSubtype struct {
	kind    aggregator.AccountKind
	subtype string
}

// Exact (kind, subtype) placements. Lookups fall through to the
// subtype-less entries, then to the coarse per-kind defaults below.
var assetMappings = map[kindSubtype]string{
	{aggregator.KindDepository, "checking"}:     networth.AssetCash,
	{aggregator.KindDepository, "savings"}:      networth.AssetSavings,
	{aggregator.KindDepository, "money market"}: networth.AssetSavings,
	{aggregator.KindDepository, "cd"}:           networth.AssetSavings,
	{aggregator.KindInvestment, "401k"}:         networth.AssetRetirement401k,
	{aggregator.KindInvestment, "403b"}:         networth.AssetRetirement401k,
	{aggregator.KindInvestment, "ira"}:          networth.AssetRetirementIRA,
	{aggregator.KindInvestment, "roth"}:         networth.AssetRetirementRoth,
	{aggregator.KindInvestment, "hsa"}:          networth.AssetRetirementHSA,
	{aggregator.KindInvestment, "pension"}:      networth.AssetRetirementPension,
	{aggregator.KindInvestment, "brokerage"}:    networth.AssetBrokerage,
	{aggregator.KindInvestment, "529"}:          networth.AssetOther,
	{aggregator.KindOther, "other"}:             networth.AssetOther,
}

var liabilityMappings = map[kindSubtype]string{
	{aggregator.KindCredit, "credit card"}: networth.LiabilityCreditCard,
	{aggregator.KindLoan, "auto"}:          networth.LiabilityAutoLoan,
	{aggregator.KindLoan, "student"}:       networth.LiabilityStudentLoan,
	{aggregator.KindLoan, "mortgage"}:      networth.LiabilityMortgage,
	{aggregator.KindLoan, "personal"}:      networth.LiabilityPersonalLoan,
}

// MapAccount resolves the net worth placement for an account. Resolution is
// ordered: exact (kind, subtype), then (kind, ""), then a coarse per-kind
// default. Kinds outside the known classes fail with ErrMapping.
func MapAccount(kind aggregator.AccountKind, subtype string) (Mapping, error) {
	key := kindSubtype{kind, strings.ToLower(subtype)}

	if category, ok := assetMappings[key]; ok {
		return Mapping{Class: ClassAsset, Category: category}, nil
	}
	if category, ok := liabilityMappings[key]; ok {
		return Mapping{Class: ClassLiability, Category: category}, nil
	}

	typeOnly := kindSubtype{kind, ""}
	if category, ok := assetMappings[typeOnly]; ok {
		return Mapping{Class: ClassAsset, Category: category}, nil
	}
	if category, ok := liabilityMappings[typeOnly]; ok {
		return Mapping{Class: ClassLiability, Category: category}, nil
	}

	switch kind {
	case aggregator.KindDepository, aggregator.KindInvestment:
		return Mapping{Class: ClassAsset, Category: networth.AssetOther}, nil
	case aggregator.KindCredit, aggregator.KindLoan:
		return Mapping{Class: ClassLiability, Category: networth.LiabilityOther}, nil
	}

	return Mapping{}, fmt.Errorf("%w: no placement for account kind %q subtype %q", ErrMapping, kind, subtype)
}
