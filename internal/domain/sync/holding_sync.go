package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"nestegg/internal/domain/connection"
	"nestegg/internal/domain/investment"
)

// HoldingSyncResult counts the outcome of one account's holdings refresh.
type HoldingSyncResult struct {
	Added      int `json:"added"`
	Securities int `json:"securities"`
	Unresolved int `json:"unresolved"`
}

// HoldingSyncService performs a full-refresh holdings sync: the provider
// has no cursor for positions, so the account's holdings are replaced
// wholesale with the latest snapshot.
type HoldingSyncService struct {
	providers  ProviderResolver
	vault      Decryptor
	accounts   connection.Repository
	securities investment.SecurityRepository
	holdings   investment.HoldingRepository
}

// NewHoldingSyncService creates a new holding sync service
func NewHoldingSyncService(
	providers ProviderResolver,
	vault Decryptor,
	accounts connection.Repository,
	securities investment.SecurityRepository,
	holdings investment.HoldingRepository,
) *HoldingSyncService {
	return &HoldingSyncService{
		providers:  providers,
		vault:      vault,
		accounts:   accounts,
		securities: securities,
		holdings:   holdings,
	}
}

// SyncAccount replaces the account's holdings with the provider's current
// snapshot. Failures are persisted on the account and returned as
// (false, message).
func (s *HoldingSyncService) SyncAccount(ctx context.Context, account *connection.ConnectedAccount) (*HoldingSyncResult, bool, string) {
	result, err := s.syncAccount(ctx, account)
	if err != nil {
		return result, false, err.Error()
	}
	return result, true, ""
}

func (s *HoldingSyncService) syncAccount(ctx context.Context, account *connection.ConnectedAccount) (*HoldingSyncResult, error) {
	result := &HoldingSyncResult{}

	provider, err := s.providers.GetProvider(account.Provider)
	if err != nil {
		return result, s.recordFailure(ctx, account, fmt.Errorf("%w: resolving provider: %v", ErrProvider, err))
	}

	credential, err := s.vault.Decrypt(account.EncryptedCredential)
	if err != nil {
		return result, s.recordFailure(ctx, account, fmt.Errorf("%w: decrypting credential: %v", ErrCredential, err))
	}

	snapshot, err := provider.GetHoldings(ctx, credential)
	if err != nil {
		return result, s.recordFailure(ctx, account, classifyProviderErr("fetching holdings", err))
	}

	// Refresh the global securities catalog first so every snapshot entry
	// can resolve to an internal security ID.
	securityIDs := make(map[string]string, len(snapshot.Securities))
	for _, info := range snapshot.Securities {
		security, err := s.securities.Upsert(ctx, investment.UpsertSecurityParams{
			ID:                 uuid.NewString(),
			ProviderSecurityID: info.ProviderSecurityID,
			Name:               info.Name,
			TickerSymbol:       info.TickerSymbol,
			Type:               info.Type,
			ClosePrice:         info.ClosePrice,
			ClosePriceAsOf:     info.ClosePriceAsOf,
			IsCashEquivalent:   info.IsCashEquivalent,
			Currency:           info.Currency,
		})
		if err != nil {
			return result, s.recordFailure(ctx, account, fmt.Errorf("%w: upserting security %s: %v", ErrPersistence, info.ProviderSecurityID, err))
		}
		securityIDs[info.ProviderSecurityID] = security.ID
	}
	result.Securities = len(securityIDs)

	// Full refresh: drop the account's holdings, then insert the snapshot.
	if _, err := s.holdings.DeleteByConnectedAccount(ctx, account.ID); err != nil {
		return result, s.recordFailure(ctx, account, fmt.Errorf("%w: clearing holdings: %v", ErrPersistence, err))
	}

	for _, info := range snapshot.Holdings {
		if info.ProviderAccountID != account.ProviderAccountID {
			continue
		}

		securityID, ok := securityIDs[info.ProviderSecurityID]
		if !ok {
			// The snapshot referenced a security it did not describe.
			// Dropped rather than inserted dangling.
			result.Unresolved++
			continue
		}

		_, err := s.holdings.Create(ctx, investment.CreateHoldingParams{
			ID:                   uuid.NewString(),
			UserID:               account.UserID,
			ConnectedAccountID:   account.ID,
			SecurityID:           securityID,
			Quantity:             info.Quantity,
			InstitutionPrice:     info.InstitutionPrice,
			InstitutionPriceAsOf: info.InstitutionPriceAsOf,
			InstitutionValue:     info.InstitutionValue,
			CostBasis:            info.CostBasis,
			Currency:             info.Currency,
		})
		if err != nil {
			return result, s.recordFailure(ctx, account, fmt.Errorf("%w: inserting holding: %v", ErrPersistence, err))
		}
		result.Added++
	}

	if result.Unresolved > 0 {
		log.Printf("Account %s: dropped %d holdings with unresolved securities", account.ID, result.Unresolved)
	}

	if err := s.accounts.MarkSynced(ctx, account.ID, time.Now().UTC()); err != nil {
		return result, fmt.Errorf("%w: stamping sync time: %v", ErrPersistence, err)
	}
	return result, nil
}

func (s *HoldingSyncService) recordFailure(ctx context.Context, account *connection.ConnectedAccount, err error) error {
	if repoErr := s.accounts.RecordSyncError(ctx, account.ID, err.Error()); repoErr != nil {
		log.Printf("Account %s: failed to record sync error: %v", account.ID, repoErr)
	}
	return err
}
