// Package sync implements the synchronization engine: balance, transaction
// and holdings synchronizers plus the batch orchestrator that drives them
// across all users.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nestegg/internal/aggregator"
	"nestegg/internal/domain/connection"
	"nestegg/internal/domain/networth"
)

// ProviderResolver resolves aggregator providers. Implemented by
// aggregator.Registry.
type ProviderResolver interface {
	GetProvider(t aggregator.Type) (aggregator.Provider, error)
}

// Decryptor opens stored credentials. Implemented by the AES-GCM encryptor
// in the infrastructure layer.
type Decryptor interface {
	Decrypt(ciphertext string) (string, error)
}

// BalanceSyncService refreshes the net worth entry mirroring a connected
// account from the provider's live balance.
type BalanceSyncService struct {
	providers   ProviderResolver
	vault       Decryptor
	accounts    connection.Repository
	assets      networth.AssetRepository
	liabilities networth.LiabilityRepository
}

// NewBalanceSyncService creates a new balance sync service
func NewBalanceSyncService(
	providers ProviderResolver,
	vault Decryptor,
	accounts connection.Repository,
	assets networth.AssetRepository,
	liabilities networth.LiabilityRepository,
) *BalanceSyncService {
	return &BalanceSyncService{
		providers:   providers,
		vault:       vault,
		accounts:    accounts,
		assets:      assets,
		liabilities: liabilities,
	}
}

// SyncAccount syncs one account's balance into its asset or liability.
// Failures never escape: every one is persisted as the account's last sync
// error and returned as (false, message).
func (s *BalanceSyncService) SyncAccount(ctx context.Context, account *connection.ConnectedAccount) (bool, string) {
	if err := s.syncAccount(ctx, account); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (s *BalanceSyncService) syncAccount(ctx context.Context, account *connection.ConnectedAccount) error {
	provider, err := s.providers.GetProvider(account.Provider)
	if err != nil {
		return s.recordFailure(ctx, account, fmt.Errorf("%w: resolving provider: %v", ErrProvider, err))
	}

	credential, err := s.vault.Decrypt(account.EncryptedCredential)
	if err != nil {
		return s.recordFailure(ctx, account, fmt.Errorf("%w: decrypting credential: %v", ErrCredential, err))
	}

	infos, err := provider.GetAccountsWithBalances(ctx, credential)
	if err != nil {
		return s.recordFailure(ctx, account, classifyProviderErr("fetching balances", err))
	}

	var info *aggregator.AccountInfo
	for i := range infos {
		if infos[i].ProviderAccountID == account.ProviderAccountID {
			info = &infos[i]
			break
		}
	}
	if info == nil {
		return s.recordFailure(ctx, account, fmt.Errorf("%w: account %s not returned by provider", ErrProvider, account.ProviderAccountID))
	}

	mapping, err := MapAccount(account.Kind, account.Subtype)
	if err != nil {
		return s.recordFailure(ctx, account, err)
	}

	// Current balance when the provider has one, otherwise available.
	balance := decimal.Zero
	if info.CurrentBalance != nil {
		balance = *info.CurrentBalance
	} else if info.AvailableBalance != nil {
		balance = *info.AvailableBalance
	}

	now := time.Now().UTC()
	if mapping.Class == ClassAsset {
		err = s.applyAsset(ctx, account, mapping.Category, balance, now)
	} else {
		// Providers report owed amounts with inconsistent signs; the
		// liability balance is always the positive amount owed.
		err = s.applyLiability(ctx, account, mapping.Category, balance.Abs(), now)
	}
	if err != nil {
		return s.recordFailure(ctx, account, fmt.Errorf("%w: %v", ErrPersistence, err))
	}

	if err := s.accounts.MarkSynced(ctx, account.ID, now); err != nil {
		return fmt.Errorf("%w: stamping sync time: %v", ErrPersistence, err)
	}
	return nil
}

func (s *BalanceSyncService) applyAsset(ctx context.Context, account *connection.ConnectedAccount, category string, balance decimal.Decimal, now time.Time) error {
	asset, err := s.assets.FindByConnectedAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	if asset != nil {
		return s.assets.UpdateValue(ctx, asset.ID, balance, now)
	}

	_, err = s.assets.Create(ctx, networth.CreateAssetParams{
		ID:                 uuid.NewString(),
		UserID:             account.UserID,
		Category:           category,
		Name:               entryName(account),
		Value:              balance,
		ConnectedAccountID: &account.ID,
	})
	return err
}

func (s *BalanceSyncService) applyLiability(ctx context.Context, account *connection.ConnectedAccount, category string, balance decimal.Decimal, now time.Time) error {
	liability, err := s.liabilities.FindByConnectedAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	if liability != nil {
		return s.liabilities.UpdateBalance(ctx, liability.ID, balance, now)
	}

	_, err = s.liabilities.Create(ctx, networth.CreateLiabilityParams{
		ID:                 uuid.NewString(),
		UserID:             account.UserID,
		Category:           category,
		Name:               entryName(account),
		Balance:            balance,
		ConnectedAccountID: &account.ID,
	})
	return err
}

func (s *BalanceSyncService) recordFailure(ctx context.Context, account *connection.ConnectedAccount, err error) error {
	if repoErr := s.accounts.RecordSyncError(ctx, account.ID, err.Error()); repoErr != nil {
		log.Printf("Account %s: failed to record sync error: %v", account.ID, repoErr)
	}
	return err
}

func entryName(account *connection.ConnectedAccount) string {
	if account.InstitutionName == "" {
		return account.AccountName
	}
	return account.InstitutionName + " " + account.AccountName
}
