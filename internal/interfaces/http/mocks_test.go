package http

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"nestegg/internal/aggregator"
	"nestegg/internal/domain/connection"
	"nestegg/internal/domain/investment"
	"nestegg/internal/domain/networth"
	"nestegg/internal/domain/transaction"
)

// MockConnectionRepo implements connection.Repository for testing
type MockConnectionRepo struct {
	UpsertFunc             func(ctx context.Context, params connection.UpsertParams) (*connection.ConnectedAccount, error)
	GetByIDFunc            func(ctx context.Context, id string) (*connection.ConnectedAccount, error)
	ListActiveByUserIDFunc func(ctx context.Context, userID string) ([]*connection.ConnectedAccount, error)
	ListByConnectionIDFunc func(ctx context.Context, providerConnectionID string) ([]*connection.ConnectedAccount, error)
	ListUserIDsFunc        func(ctx context.Context) ([]string, error)
	DeactivatedIDs         []string
}

func (m *MockConnectionRepo) Upsert(ctx context.Context, params connection.UpsertParams) (*connection.ConnectedAccount, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return &connection.ConnectedAccount{ID: params.ID, UserID: params.UserID, AccountName: params.AccountName}, nil
}

func (m *MockConnectionRepo) GetByID(ctx context.Context, id string) (*connection.ConnectedAccount, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockConnectionRepo) ListActiveByUserID(ctx context.Context, userID string) ([]*connection.ConnectedAccount, error) {
	if m.ListActiveByUserIDFunc != nil {
		return m.ListActiveByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockConnectionRepo) ListByConnectionID(ctx context.Context, providerConnectionID string) ([]*connection.ConnectedAccount, error) {
	if m.ListByConnectionIDFunc != nil {
		return m.ListByConnectionIDFunc(ctx, providerConnectionID)
	}
	return nil, nil
}

func (m *MockConnectionRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	if m.ListUserIDsFunc != nil {
		return m.ListUserIDsFunc(ctx)
	}
	return nil, nil
}

func (m *MockConnectionRepo) MarkSynced(ctx context.Context, id string, syncedAt time.Time) error {
	return nil
}

func (m *MockConnectionRepo) RecordSyncError(ctx context.Context, id string, message string) error {
	return nil
}

func (m *MockConnectionRepo) UpdateCursor(ctx context.Context, id string, cursor string, syncedAt time.Time) error {
	return nil
}

func (m *MockConnectionRepo) Deactivate(ctx context.Context, id string) error {
	m.DeactivatedIDs = append(m.DeactivatedIDs, id)
	return nil
}

// MockProvider implements aggregator.Provider for testing
type MockProvider struct {
	CreateLinkSessionFunc   func(ctx context.Context, userID string, opts aggregator.LinkOptions) (*aggregator.LinkSession, error)
	ExchangePublicTokenFunc func(ctx context.Context, publicToken string) (*aggregator.ExchangeResult, error)
	GetBalancesFunc         func(ctx context.Context, credential string) ([]aggregator.AccountInfo, error)
	SyncTransactionsFunc    func(ctx context.Context, credential, cursor string) (*aggregator.TransactionSyncPage, error)
	GetHoldingsFunc         func(ctx context.Context, credential string) (*aggregator.HoldingsSnapshot, error)
	DisconnectCalls         int
}

func (m *MockProvider) Type() aggregator.Type { return aggregator.TypePlaid }

func (m *MockProvider) CreateLinkSession(ctx context.Context, userID string, opts aggregator.LinkOptions) (*aggregator.LinkSession, error) {
	if m.CreateLinkSessionFunc != nil {
		return m.CreateLinkSessionFunc(ctx, userID, opts)
	}
	return &aggregator.LinkSession{Provider: aggregator.TypePlaid, LinkToken: "link-test"}, nil
}

func (m *MockProvider) ExchangePublicToken(ctx context.Context, publicToken string) (*aggregator.ExchangeResult, error) {
	if m.ExchangePublicTokenFunc != nil {
		return m.ExchangePublicTokenFunc(ctx, publicToken)
	}
	return &aggregator.ExchangeResult{Provider: aggregator.TypePlaid, Credential: "access-token", ConnectionID: "item-1"}, nil
}

func (m *MockProvider) GetAccounts(ctx context.Context, credential string) ([]aggregator.AccountInfo, error) {
	return m.GetAccountsWithBalances(ctx, credential)
}

func (m *MockProvider) GetAccountsWithBalances(ctx context.Context, credential string) ([]aggregator.AccountInfo, error) {
	if m.GetBalancesFunc != nil {
		return m.GetBalancesFunc(ctx, credential)
	}
	return nil, nil
}

func (m *MockProvider) SyncTransactions(ctx context.Context, credential, cursor string) (*aggregator.TransactionSyncPage, error) {
	if m.SyncTransactionsFunc != nil {
		return m.SyncTransactionsFunc(ctx, credential, cursor)
	}
	return &aggregator.TransactionSyncPage{}, nil
}

func (m *MockProvider) GetHoldings(ctx context.Context, credential string) (*aggregator.HoldingsSnapshot, error) {
	if m.GetHoldingsFunc != nil {
		return m.GetHoldingsFunc(ctx, credential)
	}
	return &aggregator.HoldingsSnapshot{}, nil
}

func (m *MockProvider) Disconnect(ctx context.Context, credential string) (bool, error) {
	m.DisconnectCalls++
	return true, nil
}

func (m *MockProvider) SupportsInstitution(institutionName string) bool { return true }

func (m *MockProvider) GetInstitutionName(ctx context.Context, institutionID string) (string, error) {
	return "", nil
}

// MockResolver resolves every lookup to the same provider
type MockResolver struct {
	Provider aggregator.Provider
	Err      error
}

func (m *MockResolver) GetProvider(t aggregator.Type) (aggregator.Provider, error) {
	return m.Provider, m.Err
}

func (m *MockResolver) GetDefaultProvider() (aggregator.Provider, error) {
	return m.Provider, m.Err
}

func (m *MockResolver) GetProviderForInstitution(institutionName string) (aggregator.Provider, error) {
	return m.Provider, m.Err
}

// MockVault is a transparent Encryptor for testing
type MockVault struct{}

func (m *MockVault) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }

func (m *MockVault) Decrypt(ciphertext string) (string, error) {
	if len(ciphertext) > 4 && ciphertext[:4] == "enc:" {
		return ciphertext[4:], nil
	}
	return ciphertext, nil
}

// MockPurger counts cascade deletions
type MockPurger struct {
	Deleted []string
}

func (m *MockPurger) DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error) {
	m.Deleted = append(m.Deleted, connectedAccountID)
	return 0, nil
}

// MockUnlinker counts net worth unlink calls
type MockUnlinker struct {
	Unlinked []string
}

func (m *MockUnlinker) UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error {
	m.Unlinked = append(m.Unlinked, connectedAccountID)
	return nil
}

// MockAssetRepo implements networth.AssetRepository for testing
type MockAssetRepo struct{}

func (m *MockAssetRepo) Create(ctx context.Context, params networth.CreateAssetParams) (*networth.Asset, error) {
	return &networth.Asset{ID: params.ID}, nil
}

func (m *MockAssetRepo) FindByConnectedAccount(ctx context.Context, connectedAccountID string) (*networth.Asset, error) {
	return nil, nil
}

func (m *MockAssetRepo) UpdateValue(ctx context.Context, id string, value decimal.Decimal, syncedAt time.Time) error {
	return nil
}

func (m *MockAssetRepo) UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error {
	return nil
}

func (m *MockAssetRepo) ListByUserID(ctx context.Context, userID string) ([]*networth.Asset, error) {
	return nil, nil
}

// MockLiabilityRepo implements networth.LiabilityRepository for testing
type MockLiabilityRepo struct{}

func (m *MockLiabilityRepo) Create(ctx context.Context, params networth.CreateLiabilityParams) (*networth.Liability, error) {
	return &networth.Liability{ID: params.ID}, nil
}

func (m *MockLiabilityRepo) FindByConnectedAccount(ctx context.Context, connectedAccountID string) (*networth.Liability, error) {
	return nil, nil
}

func (m *MockLiabilityRepo) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal, syncedAt time.Time) error {
	return nil
}

func (m *MockLiabilityRepo) UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error {
	return nil
}

func (m *MockLiabilityRepo) ListByUserID(ctx context.Context, userID string) ([]*networth.Liability, error) {
	return nil, nil
}

// MockTransactionRepo implements transaction.Repository for testing
type MockTransactionRepo struct{}

func (m *MockTransactionRepo) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, error) {
	return &transaction.Transaction{ID: params.ID}, nil
}

func (m *MockTransactionRepo) DeleteByProviderTransactionID(ctx context.Context, providerTransactionID string) (bool, error) {
	return false, nil
}

func (m *MockTransactionRepo) DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error) {
	return 0, nil
}

func (m *MockTransactionRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*transaction.Transaction, error) {
	return nil, nil
}

// MockSecurityRepo implements investment.SecurityRepository for testing
type MockSecurityRepo struct{}

func (m *MockSecurityRepo) Upsert(ctx context.Context, params investment.UpsertSecurityParams) (*investment.Security, error) {
	return &investment.Security{ID: params.ID, ProviderSecurityID: params.ProviderSecurityID}, nil
}

func (m *MockSecurityRepo) GetByProviderSecurityID(ctx context.Context, providerSecurityID string) (*investment.Security, error) {
	return nil, nil
}

// MockHoldingRepo implements investment.HoldingRepository for testing
type MockHoldingRepo struct{}

func (m *MockHoldingRepo) Create(ctx context.Context, params investment.CreateHoldingParams) (*investment.Holding, error) {
	return &investment.Holding{ID: params.ID}, nil
}

func (m *MockHoldingRepo) DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error) {
	return 0, nil
}

func (m *MockHoldingRepo) ListByUserID(ctx context.Context, userID string) ([]*investment.Holding, error) {
	return nil, nil
}
