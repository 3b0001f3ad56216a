package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"nestegg/internal/aggregator"
	"nestegg/internal/domain/connection"
	"nestegg/internal/domain/transaction"
)

// TransactionSyncResult counts the changes applied during one account's
// transaction sync.
type TransactionSyncResult struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Removed  int `json:"removed"`
}

// TransactionSyncService drives the incremental transaction stream for a
// connected account through the provider's cursor protocol.
type TransactionSyncService struct {
	providers    ProviderResolver
	vault        Decryptor
	accounts     connection.Repository
	transactions transaction.Repository
}

// NewTransactionSyncService creates a new transaction sync service
func NewTransactionSyncService(
	providers ProviderResolver,
	vault Decryptor,
	accounts connection.Repository,
	transactions transaction.Repository,
) *TransactionSyncService {
	return &TransactionSyncService{
		providers:    providers,
		vault:        vault,
		accounts:     accounts,
		transactions: transactions,
	}
}

// SyncAccount pulls every pending page of the account's transaction stream.
// On success the final cursor is persisted; a mid-run failure leaves the
// stored cursor untouched so the next run replays from the last durable
// point (at-least-once, the upserts are idempotent).
func (s *TransactionSyncService) SyncAccount(ctx context.Context, account *connection.ConnectedAccount) (*TransactionSyncResult, bool, string) {
	result, err := s.syncAccount(ctx, account)
	if err != nil {
		return result, false, err.Error()
	}
	return result, true, ""
}

func (s *TransactionSyncService) syncAccount(ctx context.Context, account *connection.ConnectedAccount) (*TransactionSyncResult, error) {
	result := &TransactionSyncResult{}

	provider, err := s.providers.GetProvider(account.Provider)
	if err != nil {
		return result, s.recordFailure(ctx, account, fmt.Errorf("%w: resolving provider: %v", ErrProvider, err))
	}

	credential, err := s.vault.Decrypt(account.EncryptedCredential)
	if err != nil {
		return result, s.recordFailure(ctx, account, fmt.Errorf("%w: decrypting credential: %v", ErrCredential, err))
	}

	cursor := account.TransactionsCursor
	for {
		if err := ctx.Err(); err != nil {
			return result, s.recordFailure(ctx, account, fmt.Errorf("%w: sync canceled: %v", ErrProvider, err))
		}

		page, err := provider.SyncTransactions(ctx, credential, cursor)
		if err != nil {
			return result, s.recordFailure(ctx, account, classifyProviderErr("fetching transaction page", err))
		}

		if err := s.applyPage(ctx, account, page, result); err != nil {
			return result, s.recordFailure(ctx, account, fmt.Errorf("%w: %v", ErrPersistence, err))
		}

		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	// One update: cursor, timestamp and cleared error advance together.
	if err := s.accounts.UpdateCursor(ctx, account.ID, cursor, time.Now().UTC()); err != nil {
		return result, fmt.Errorf("%w: persisting cursor: %v", ErrPersistence, err)
	}

	log.Printf("Account %s: transaction sync applied added=%d modified=%d removed=%d",
		account.ID, result.Added, result.Modified, result.Removed)
	return result, nil
}

// applyPage writes one page's changes. The stream covers the whole
// connection, so entries for sibling accounts are skipped; each sibling
// syncs them under its own cursor.
func (s *TransactionSyncService) applyPage(ctx context.Context, account *connection.ConnectedAccount, page *aggregator.TransactionSyncPage, result *TransactionSyncResult) error {
	for _, info := range page.Added {
		if info.ProviderAccountID != account.ProviderAccountID {
			continue
		}
		if err := s.upsert(ctx, account, info); err != nil {
			return err
		}
		result.Added++
	}

	for _, info := range page.Modified {
		if info.ProviderAccountID != account.ProviderAccountID {
			continue
		}
		if err := s.upsert(ctx, account, info); err != nil {
			return err
		}
		result.Modified++
	}

	for _, providerTxnID := range page.Removed {
		deleted, err := s.transactions.DeleteByProviderTransactionID(ctx, providerTxnID)
		if err != nil {
			return err
		}
		if deleted {
			result.Removed++
		}
	}

	return nil
}

func (s *TransactionSyncService) upsert(ctx context.Context, account *connection.ConnectedAccount, info aggregator.TransactionInfo) error {
	_, err := s.transactions.Upsert(ctx, transaction.UpsertParams{
		ID:                    uuid.NewString(),
		UserID:                account.UserID,
		ConnectedAccountID:    account.ID,
		ProviderTransactionID: info.ProviderTransactionID,
		ProviderAccountID:     info.ProviderAccountID,
		Amount:                info.Amount,
		Currency:              info.Currency,
		Date:                  info.Date,
		AuthorizedDate:        info.AuthorizedDate,
		Name:                  info.Name,
		MerchantName:          info.MerchantName,
		CategoryPrimary:       info.CategoryPrimary,
		CategoryDetailed:      info.CategoryDetailed,
		PaymentChannel:        info.PaymentChannel,
		Pending:               info.Pending,
		LocationCity:          info.LocationCity,
		LocationRegion:        info.LocationRegion,
		LocationCountry:       info.LocationCountry,
	})
	return err
}

func (s *TransactionSyncService) recordFailure(ctx context.Context, account *connection.ConnectedAccount, err error) error {
	if repoErr := s.accounts.RecordSyncError(ctx, account.ID, err.Error()); repoErr != nil {
		log.Printf("Account %s: failed to record sync error: %v", account.ID, repoErr)
	}
	return err
}
