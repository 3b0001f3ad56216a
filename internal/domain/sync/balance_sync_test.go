package sync

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"nestegg/internal/aggregator"
	"nestegg/internal/domain/networth"
)

func decPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func balanceProvider(infos []aggregator.AccountInfo) *MockProvider {
	return &MockProvider{
		GetAccountsWithBalancesFunc: func(ctx context.Context, credential string) ([]aggregator.AccountInfo, error) {
			return infos, nil
		},
	}
}

func TestBalanceSync_CreatesAssetForNewCheckingAccount(t *testing.T) {
	account := testAccount("ca-1", "user-1", aggregator.KindDepository, "checking")
	provider := balanceProvider([]aggregator.AccountInfo{
		{ProviderAccountID: account.ProviderAccountID, CurrentBalance: decPtr(1250.75)},
	})

	accounts := &MockConnectionRepository{}
	assets := &MockAssetRepository{}
	svc := NewBalanceSyncService(&MockResolver{Provider: provider}, &MockVault{}, accounts, assets, &MockLiabilityRepository{})

	ok, msg := svc.SyncAccount(context.Background(), account)
	if !ok {
		t.Fatalf("SyncAccount() failed: %s", msg)
	}

	if len(assets.Created) != 1 {
		t.Fatalf("created %d assets, want 1", len(assets.Created))
	}
	created := assets.Created[0]
	if created.Category != networth.AssetCash {
		t.Errorf("category = %q, want cash", created.Category)
	}
	if !created.Value.Equal(decimal.NewFromFloat(1250.75)) {
		t.Errorf("value = %v, want 1250.75", created.Value)
	}
	if created.Name != "Chase Account ca-1" {
		t.Errorf("name = %q, want institution-prefixed name", created.Name)
	}
	if created.ConnectedAccountID == nil || *created.ConnectedAccountID != account.ID {
		t.Error("expected asset linked to the connected account")
	}
	if len(accounts.SyncedIDs) != 1 || accounts.SyncedIDs[0] != account.ID {
		t.Errorf("synced IDs = %v, want [%s]", accounts.SyncedIDs, account.ID)
	}
}

func TestBalanceSync_UpdatesExistingAssetInPlace(t *testing.T) {
	account := testAccount("ca-1", "user-1", aggregator.KindDepository, "savings")
	provider := balanceProvider([]aggregator.AccountInfo{
		{ProviderAccountID: account.ProviderAccountID, CurrentBalance: decPtr(2000)},
	})

	existing := &networth.Asset{ID: "asset-1", ConnectedAccountID: &account.ID}
	assets := &MockAssetRepository{
		FindByConnectedAccountFunc: func(ctx context.Context, connectedAccountID string) (*networth.Asset, error) {
			return existing, nil
		},
	}
	svc := NewBalanceSyncService(&MockResolver{Provider: provider}, &MockVault{}, &MockConnectionRepository{}, assets, &MockLiabilityRepository{})

	if ok, msg := svc.SyncAccount(context.Background(), account); !ok {
		t.Fatalf("SyncAccount() failed: %s", msg)
	}

	if len(assets.Created) != 0 {
		t.Errorf("created %d assets, want 0 (update in place)", len(assets.Created))
	}
	if got, ok := assets.Updated["asset-1"]; !ok || !got.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("updated value = %v, want 2000", got)
	}
}

func TestBalanceSync_LiabilityNormalizedToPositiveOwed(t *testing.T) {
	account := testAccount("ca-1", "user-1", aggregator.KindCredit, "credit card")
	provider := balanceProvider([]aggregator.AccountInfo{
		{ProviderAccountID: account.ProviderAccountID, CurrentBalance: decPtr(-432.10)},
	})

	liabilities := &MockLiabilityRepository{}
	svc := NewBalanceSyncService(&MockResolver{Provider: provider}, &MockVault{}, &MockConnectionRepository{}, &MockAssetRepository{}, liabilities)

	if ok, msg := svc.SyncAccount(context.Background(), account); !ok {
		t.Fatalf("SyncAccount() failed: %s", msg)
	}

	if len(liabilities.Created) != 1 {
		t.Fatalf("created %d liabilities, want 1", len(liabilities.Created))
	}
	created := liabilities.Created[0]
	if created.Category != networth.LiabilityCreditCard {
		t.Errorf("category = %q, want credit_card", created.Category)
	}
	if !created.Balance.Equal(decimal.NewFromFloat(432.10)) {
		t.Errorf("balance = %v, want positive 432.10", created.Balance)
	}
}

func TestBalanceSync_ProviderFailureRecordedOnAccount(t *testing.T) {
	account := testAccount("ca-1", "user-1", aggregator.KindDepository, "checking")
	provider := &MockProvider{
		GetAccountsWithBalancesFunc: func(ctx context.Context, credential string) ([]aggregator.AccountInfo, error) {
			return nil, &timeoutErr{}
		},
	}

	accounts := &MockConnectionRepository{}
	svc := NewBalanceSyncService(&MockResolver{Provider: provider}, &MockVault{}, accounts, &MockAssetRepository{}, &MockLiabilityRepository{})

	ok, msg := svc.SyncAccount(context.Background(), account)
	if ok {
		t.Fatal("expected failure")
	}
	if msg == "" {
		t.Error("expected a failure message")
	}
	if recorded := accounts.RecordedErrors[account.ID]; recorded != msg {
		t.Errorf("recorded error = %q, want %q", recorded, msg)
	}
	if len(accounts.SyncedIDs) != 0 {
		t.Error("failed sync must not stamp last_synced_at")
	}
}

func TestBalanceSync_AccountMissingFromProvider(t *testing.T) {
	account := testAccount("ca-1", "user-1", aggregator.KindDepository, "checking")
	provider := balanceProvider([]aggregator.AccountInfo{
		{ProviderAccountID: "someone-else", CurrentBalance: decPtr(10)},
	})

	accounts := &MockConnectionRepository{}
	svc := NewBalanceSyncService(&MockResolver{Provider: provider}, &MockVault{}, accounts, &MockAssetRepository{}, &MockLiabilityRepository{})

	ok, msg := svc.SyncAccount(context.Background(), account)
	if ok {
		t.Fatal("expected failure")
	}
	if !strings.Contains(msg, "not returned by provider") {
		t.Errorf("message = %q, want provider-missing diagnostic", msg)
	}
}

func TestBalanceSync_MappingFailure(t *testing.T) {
	account := testAccount("ca-1", "user-1", aggregator.AccountKind("exotic"), "foo")
	provider := balanceProvider([]aggregator.AccountInfo{
		{ProviderAccountID: account.ProviderAccountID, CurrentBalance: decPtr(10)},
	})

	accounts := &MockConnectionRepository{}
	svc := NewBalanceSyncService(&MockResolver{Provider: provider}, &MockVault{}, accounts, &MockAssetRepository{}, &MockLiabilityRepository{})

	ok, msg := svc.SyncAccount(context.Background(), account)
	if ok {
		t.Fatal("expected failure")
	}
	if !strings.Contains(msg, "mapping error") {
		t.Errorf("message = %q, want mapping error", msg)
	}
}

func TestBalanceSync_FallsBackToAvailableBalance(t *testing.T) {
	account := testAccount("ca-1", "user-1", aggregator.KindDepository, "checking")
	provider := balanceProvider([]aggregator.AccountInfo{
		{ProviderAccountID: account.ProviderAccountID, AvailableBalance: decPtr(99.99)},
	})

	assets := &MockAssetRepository{}
	svc := NewBalanceSyncService(&MockResolver{Provider: provider}, &MockVault{}, &MockConnectionRepository{}, assets, &MockLiabilityRepository{})

	if ok, msg := svc.SyncAccount(context.Background(), account); !ok {
		t.Fatalf("SyncAccount() failed: %s", msg)
	}
	if len(assets.Created) != 1 || !assets.Created[0].Value.Equal(decimal.NewFromFloat(99.99)) {
		t.Errorf("expected available balance to be used, got %+v", assets.Created)
	}
}

// timeoutErr is a plain transient failure with no credential class.
type timeoutErr struct{}

func (*timeoutErr) Error() string { return "request timed out" }
