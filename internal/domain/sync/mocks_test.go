package sync

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

// MockConnectionRepository is a mock implementation of connection.Repository
type MockConnectionRepository struct {
	UpsertFunc             func(ctx context.Context, params connection.UpsertParams) (*connection.ConnectedAccount, error)
	GetByIDFunc            func(ctx context.Context, id string) (*connection.ConnectedAccount, error)
	ListActiveByUserIDFunc func(ctx context.Context, userID string) ([]*connection.ConnectedAccount, error)
	ListByConnectionIDFunc func(ctx context.Context, providerConnectionID string) ([]*connection.ConnectedAccount, error)
	ListUserIDsFunc        func(ctx context.Context) ([]string, error)
	MarkSyncedFunc         func(ctx context.Context, id string, syncedAt time.Time) error
	RecordSyncErrorFunc    func(ctx context.Context, id string, message string) error
	UpdateCursorFunc       func(ctx context.Context, id string, cursor string, syncedAt time.Time) error
	DeactivateFunc         func(ctx context.Context, id string) error

	SyncedIDs      []string
	RecordedErrors map[string]string
	Cursors        map[string]string
}

func (m *MockConnectionRepository) Upsert(ctx context.Context, params connection.UpsertParams) (*connection.ConnectedAccount, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockConnectionRepository) GetByID(ctx context.Context, id string) (*connection.ConnectedAccount, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockConnectionRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*connection.ConnectedAccount, error) {
	if m.ListActiveByUserIDFunc != nil {
		return m.ListActiveByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockConnectionRepository) ListByConnectionID(ctx context.Context, providerConnectionID string) ([]*connection.ConnectedAccount, error) {
	if m.ListByConnectionIDFunc != nil {
		return m.ListByConnectionIDFunc(ctx, providerConnectionID)
	}
	return nil, nil
}

func (m *MockConnectionRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	if m.ListUserIDsFunc != nil {
		return m.ListUserIDsFunc(ctx)
	}
	return nil, nil
}

func (m *MockConnectionRepository) MarkSynced(ctx context.Context, id string, syncedAt time.Time) error {
	if m.MarkSyncedFunc != nil {
		return m.MarkSyncedFunc(ctx, id, syncedAt)
	}
	m.SyncedIDs = append(m.SyncedIDs, id)
	return nil
}

func (m *MockConnectionRepository) RecordSyncError(ctx context.Context, id string, message string) error {
	if m.RecordSyncErrorFunc != nil {
		return m.RecordSyncErrorFunc(ctx, id, message)
	}
	if m.RecordedErrors == nil {
		m.RecordedErrors = make(map[string]string)
	}
	m.RecordedErrors[id] = message
	return nil
}

func (m *MockConnectionRepository) UpdateCursor(ctx context.Context, id string, cursor string, syncedAt time.Time) error {
	if m.UpdateCursorFunc != nil {
		return m.UpdateCursorFunc(ctx, id, cursor, syncedAt)
	}
	if m.Cursors == nil {
		m.Cursors = make(map[string]string)
	}
	m.Cursors[id] = cursor
	return nil
}

func (m *MockConnectionRepository) Deactivate(ctx context.Context, id string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, id)
	}
	return nil
}

// MockProvider is a mock implementation of aggregator.Provider
type MockProvider struct {
	GetAccountsWithBalancesFunc func(ctx context.Context, credential string) ([]aggregator.AccountInfo, error)
	SyncTransactionsFunc        func(ctx context.Context, credential, cursor string) (*aggregator.TransactionSyncPage, error)
	GetHoldingsFunc             func(ctx context.Context, credential string) (*aggregator.HoldingsSnapshot, error)
}

func (m *MockProvider) Type() aggregator.Type { return aggregator.TypePlaid }
func (m *MockProvider) CreateLinkSession(ctx context.Context, userID string, opts aggregator.LinkOptions) (*aggregator.LinkSession, error) {
	return nil, nil
}
func (m *MockProvider) ExchangePublicToken(ctx context.Context, publicToken string) (*aggregator.ExchangeResult, error) {
	return nil, nil
}
func (m *MockProvider) GetAccounts(ctx context.Context, credential string) ([]aggregator.AccountInfo, error) {
	return nil, nil
}
func (m *MockProvider) GetAccountsWithBalances(ctx context.Context, credential string) ([]aggregator.AccountInfo, error) {
	if m.GetAccountsWithBalancesFunc != nil {
		return m.GetAccountsWithBalancesFunc(ctx, credential)
	}
	return nil, nil
}
func (m *MockProvider) SyncTransactions(ctx context.Context, credential, cursor string) (*aggregator.TransactionSyncPage, error) {
	if m.SyncTransactionsFunc != nil {
		return m.SyncTransactionsFunc(ctx, credential, cursor)
	}
	return &aggregator.TransactionSyncPage{NextCursor: cursor}, nil
}
func (m *MockProvider) GetHoldings(ctx context.Context, credential string) (*aggregator.HoldingsSnapshot, error) {
	if m.GetHoldingsFunc != nil {
		return m.GetHoldingsFunc(ctx, credential)
	}
	return &aggregator.HoldingsSnapshot{}, nil
}
func (m *MockProvider) Disconnect(ctx context.Context, credential string) (bool, error) {
	return true, nil
}
func (m *MockProvider) SupportsInstitution(institutionID string) bool { return true }
func (m *MockProvider) GetInstitutionName(ctx context.Context, institutionID string) (string, error) {
	return "", nil
}

// MockResolver is a mock implementation of ProviderResolver
type MockResolver struct {
	Provider aggregator.Provider
	Err      error
}

func (m *MockResolver) GetProvider(t aggregator.Type) (aggregator.Provider, error) {
	return m.Provider, m.Err
}

// MockVault decrypts by stripping an "enc:" prefix.
type MockVault struct {
	DecryptFunc func(ciphertext string) (string, error)
}

func (m *MockVault) Decrypt(ciphertext string) (string, error) {
	if m.DecryptFunc != nil {
		return m.DecryptFunc(ciphertext)
	}
	return ciphertext[len("enc:"):], nil
}

// MockAssetRepository is an in-memory mock of networth.AssetRepository
type MockAssetRepository struct {
	CreateFunc                 func(ctx context.Context, params networth.CreateAssetParams) (*networth.Asset, error)
	FindByConnectedAccountFunc func(ctx context.Context, connectedAccountID string) (*networth.Asset, error)
	UpdateValueFunc            func(ctx context.Context, id string, value decimal.Decimal, syncedAt time.Time) error

	Created []networth.CreateAssetParams
	Updated map[string]decimal.Decimal
}

func (m *MockAssetRepository) Create(ctx context.Context, params networth.CreateAssetParams) (*networth.Asset, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	m.Created = append(m.Created, params)
	return &networth.Asset{ID: params.ID, Category: params.Category, Value: params.Value}, nil
}

func (m *MockAssetRepository) FindByConnectedAccount(ctx context.Context, connectedAccountID string) (*networth.Asset, error) {
	if m.FindByConnectedAccountFunc != nil {
		return m.FindByConnectedAccountFunc(ctx, connectedAccountID)
	}
	return nil, nil
}

func (m *MockAssetRepository) UpdateValue(ctx context.Context, id string, value decimal.Decimal, syncedAt time.Time) error {
	if m.UpdateValueFunc != nil {
		return m.UpdateValueFunc(ctx, id, value, syncedAt)
	}
	if m.Updated == nil {
		m.Updated = make(map[string]decimal.Decimal)
	}
	m.Updated[id] = value
	return nil
}

func (m *MockAssetRepository) UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error {
	return nil
}

func (m *MockAssetRepository) ListByUserID(ctx context.Context, userID string) ([]*networth.Asset, error) {
	return nil, nil
}

// MockLiabilityRepository is an in-memory mock of networth.LiabilityRepository
type MockLiabilityRepository struct {
	CreateFunc                 func(ctx context.Context, params networth.CreateLiabilityParams) (*networth.Liability, error)
	FindByConnectedAccountFunc func(ctx context.Context, connectedAccountID string) (*networth.Liability, error)
	UpdateBalanceFunc          func(ctx context.Context, id string, balance decimal.Decimal, syncedAt time.Time) error

	Created []networth.CreateLiabilityParams
	Updated map[string]decimal.Decimal
}

func (m *MockLiabilityRepository) Create(ctx context.Context, params networth.CreateLiabilityParams) (*networth.Liability, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	m.Created = append(m.Created, params)
	return &networth.Liability{ID: params.ID, Category: params.Category, Balance: params.Balance}, nil
}

func (m *MockLiabilityRepository) FindByConnectedAccount(ctx context.Context, connectedAccountID string) (*networth.Liability, error) {
	if m.FindByConnectedAccountFunc != nil {
		return m.FindByConnectedAccountFunc(ctx, connectedAccountID)
	}
	return nil, nil
}

func (m *MockLiabilityRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal, syncedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, id, balance, syncedAt)
	}
	if m.Updated == nil {
		m.Updated = make(map[string]decimal.Decimal)
	}
	m.Updated[id] = balance
	return nil
}

func (m *MockLiabilityRepository) UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error {
	return nil
}

func (m *MockLiabilityRepository) ListByUserID(ctx context.Context, userID string) ([]*networth.Liability, error) {
	return nil, nil
}

// MockTransactionRepository keeps rows keyed by provider transaction ID so
// tests can assert idempotency.
type MockTransactionRepository struct {
	UpsertFunc func(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, error)

	Rows map[string]transaction.UpsertParams
}

func (m *MockTransactionRepository) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	if m.Rows == nil {
		m.Rows = make(map[string]transaction.UpsertParams)
	}
	m.Rows[params.ProviderTransactionID] = params
	return &transaction.Transaction{ID: params.ID, ProviderTransactionID: params.ProviderTransactionID}, nil
}

func (m *MockTransactionRepository) DeleteByProviderTransactionID(ctx context.Context, providerTransactionID string) (bool, error) {
	if _, ok := m.Rows[providerTransactionID]; ok {
		delete(m.Rows, providerTransactionID)
		return true, nil
	}
	return false, nil
}

func (m *MockTransactionRepository) DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error) {
	var deleted int64
	for id, row := range m.Rows {
		if row.ConnectedAccountID == connectedAccountID {
			delete(m.Rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockTransactionRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*transaction.Transaction, error) {
	return nil, nil
}

// MockSecurityRepository keeps the catalog keyed by provider security ID.
type MockSecurityRepository struct {
	UpsertFunc func(ctx context.Context, params investment.UpsertSecurityParams) (*investment.Security, error)

	Rows map[string]*investment.Security
}

func (m *MockSecurityRepository) Upsert(ctx context.Context, params investment.UpsertSecurityParams) (*investment.Security, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	if m.Rows == nil {
		m.Rows = make(map[string]*investment.Security)
	}
	if existing, ok := m.Rows[params.ProviderSecurityID]; ok {
		existing.Name = params.Name
		existing.ClosePrice = params.ClosePrice
		return existing, nil
	}
	sec := &investment.Security{ID: params.ID, ProviderSecurityID: params.ProviderSecurityID, Name: params.Name}
	m.Rows[params.ProviderSecurityID] = sec
	return sec, nil
}

func (m *MockSecurityRepository) GetByProviderSecurityID(ctx context.Context, providerSecurityID string) (*investment.Security, error) {
	return m.Rows[providerSecurityID], nil
}

// MockHoldingRepository keeps holdings as a flat slice.
type MockHoldingRepository struct {
	CreateFunc func(ctx context.Context, params investment.CreateHoldingParams) (*investment.Holding, error)

	Rows []investment.CreateHoldingParams
}

func (m *MockHoldingRepository) Create(ctx context.Context, params investment.CreateHoldingParams) (*investment.Holding, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	m.Rows = append(m.Rows, params)
	return &investment.Holding{ID: params.ID}, nil
}

func (m *MockHoldingRepository) DeleteByConnectedAccount(ctx context.Context, connectedAccountID string) (int64, error) {
	var kept []investment.CreateHoldingParams
	var deleted int64
	for _, row := range m.Rows {
		if row.ConnectedAccountID == connectedAccountID {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.Rows = kept
	return deleted, nil
}

func (m *MockHoldingRepository) ListByUserID(ctx context.Context, userID string) ([]*investment.Holding, error) {
	return nil, nil
}

func testAccount(id, userID string, kind aggregator.AccountKind, subtype string) *connection.ConnectedAccount {
	return &connection.ConnectedAccount{
		ID:                  id,
		UserID:              userID,
		Provider:            aggregator.TypePlaid,
		EncryptedCredential: "enc:access-token",
		ProviderAccountID:   "plaid-" + id,
		InstitutionName:     "Chase",
		AccountName:         "Account " + id,
		Kind:                kind,
		Subtype:             subtype,
		IsActive:            true,
	}
}
