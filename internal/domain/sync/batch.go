package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"nestegg/internal/domain/connection"
	"nestegg/internal/domain/notification"
)

var batchMeter = otel.Meter("nestegg.sync")

// AccountError describes one account's failure within a user sync, tagged
// with the stage it occurred in.
type AccountError struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	Stage       string `json:"stage"`
	Error       string `json:"error"`
}

// UserSyncResult is the outcome of syncing every active account of one user.
type UserSyncResult struct {
	UserID               string         `json:"user_id"`
	AccountsSynced       int            `json:"accounts_synced"`
	AccountsFailed       int            `json:"accounts_failed"`
	TransactionsAdded    int            `json:"transactions_added"`
	TransactionsModified int            `json:"transactions_modified"`
	TransactionsRemoved  int            `json:"transactions_removed"`
	HoldingsSynced       int            `json:"holdings_synced"`
	Errors               []AccountError `json:"errors"`
}

// UserErrors groups one user's failures inside a batch report.
type UserErrors struct {
	UserID string         `json:"user_id"`
	Errors []AccountError `json:"errors"`
}

// BatchResult is the aggregated report of a full batch run. It is the
// primary external contract of the engine: returned by the sync endpoints
// and published to Kafka when configured.
type BatchResult struct {
	StartedAt                 time.Time    `json:"started_at"`
	CompletedAt               time.Time    `json:"completed_at"`
	UsersTotal                int          `json:"users_total"`
	UsersSynced               int          `json:"users_synced"`
	UsersFailed               int          `json:"users_failed"`
	TotalAccountsSynced       int          `json:"total_accounts_synced"`
	TotalAccountsFailed       int          `json:"total_accounts_failed"`
	TotalTransactionsAdded    int          `json:"total_transactions_added"`
	TotalTransactionsModified int          `json:"total_transactions_modified"`
	TotalTransactionsRemoved  int          `json:"total_transactions_removed"`
	TotalHoldingsSynced       int          `json:"total_holdings_synced"`
	UserErrors                []UserErrors `json:"user_errors"`
	Success                   bool         `json:"success"`
}

// Notifier pushes "account needs attention" alerts. Implemented by
// notification.Service; nil disables the hook.
type Notifier interface {
	SendToUser(ctx context.Context, userID, title, body, category string, data map[string]string) error
}

// BatchService orchestrates the synchronizers across accounts and users
// with strict failure isolation: one account never blocks the next, one
// user never aborts the batch.
type BatchService struct {
	accounts     connection.Repository
	balance      *BalanceSyncService
	transactions *TransactionSyncService
	holdings     *HoldingSyncService
	notifier     Notifier

	accountsSynced metric.Int64Counter
	usersSynced    metric.Int64Counter
	batchDuration  metric.Float64Histogram
}

// NewBatchService creates a new batch orchestrator. notifier may be nil.
func NewBatchService(
	accounts connection.Repository,
	balance *BalanceSyncService,
	transactions *TransactionSyncService,
	holdings *HoldingSyncService,
	notifier Notifier,
) *BatchService {
	s := &BatchService{
		accounts:     accounts,
		balance:      balance,
		transactions: transactions,
		holdings:     holdings,
		notifier:     notifier,
	}

	var err error
	if s.accountsSynced, err = batchMeter.Int64Counter("sync.accounts.total",
		metric.WithDescription("Connected accounts processed by the sync engine")); err != nil {
		log.Printf("Failed to create sync.accounts.total counter: %v", err)
	}
	if s.usersSynced, err = batchMeter.Int64Counter("sync.users.total",
		metric.WithDescription("Users processed by batch sync runs")); err != nil {
		log.Printf("Failed to create sync.users.total counter: %v", err)
	}
	if s.batchDuration, err = batchMeter.Float64Histogram("sync.batch.duration_seconds",
		metric.WithDescription("Duration of full batch sync runs")); err != nil {
		log.Printf("Failed to create sync.batch.duration_seconds histogram: %v", err)
	}

	return s
}

// GetAllUserIDs returns every user with at least one active connected account.
func (s *BatchService) GetAllUserIDs(ctx context.Context) ([]string, error) {
	return s.accounts.ListUserIDs(ctx)
}

// SyncUser syncs every active account of one user. Per account: balance
// first; a balance failure records the error and skips the dependent step.
// On success, investment accounts refresh holdings and all others pull the
// transaction stream. Cancellation is honored between accounts only, so a
// unit of work is never left half-applied by ctx.
func (s *BatchService) SyncUser(ctx context.Context, userID string) *UserSyncResult {
	result := &UserSyncResult{UserID: userID, Errors: []AccountError{}}

	accounts, err := s.accounts.ListActiveByUserID(ctx, userID)
	if err != nil {
		result.Errors = append(result.Errors, AccountError{
			Stage: StageGeneral,
			Error: fmt.Sprintf("failed to list connected accounts: %v", err),
		})
		return result
	}

	for _, account := range accounts {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, AccountError{
				Stage: StageGeneral,
				Error: fmt.Sprintf("sync canceled: %v", ctx.Err()),
			})
			return result
		}
		s.syncAccount(ctx, account, result)
	}

	return result
}

func (s *BatchService) syncAccount(ctx context.Context, account *connection.ConnectedAccount, result *UserSyncResult) {
	err := s.balance.syncAccount(ctx, account)
	if err != nil {
		result.AccountsFailed++
		result.Errors = append(result.Errors, AccountError{
			AccountID:   account.ID,
			AccountName: account.AccountName,
			Stage:       StageBalance,
			Error:       err.Error(),
		})
		s.recordAccount(ctx, false)
		s.notifyCredentialFailure(ctx, account, err)
		return
	}

	result.AccountsSynced++
	s.recordAccount(ctx, true)

	if account.IsInvestment() {
		holdingResult, err := s.holdings.syncAccount(ctx, account)
		if err != nil {
			result.Errors = append(result.Errors, AccountError{
				AccountID:   account.ID,
				AccountName: account.AccountName,
				Stage:       StageHoldings,
				Error:       err.Error(),
			})
			s.notifyCredentialFailure(ctx, account, err)
			return
		}
		result.HoldingsSynced += holdingResult.Added
		return
	}

	txnResult, err := s.transactions.syncAccount(ctx, account)
	if err != nil {
		result.Errors = append(result.Errors, AccountError{
			AccountID:   account.ID,
			AccountName: account.AccountName,
			Stage:       StageTransactions,
			Error:       err.Error(),
		})
		s.notifyCredentialFailure(ctx, account, err)
		return
	}
	result.TransactionsAdded += txnResult.Added
	result.TransactionsModified += txnResult.Modified
	result.TransactionsRemoved += txnResult.Removed
}

// SyncAllUsers runs the full batch. A user's failures go into the report;
// they never abort the loop. Success means zero users with failures.
func (s *BatchService) SyncAllUsers(ctx context.Context) *BatchResult {
	result := &BatchResult{
		StartedAt:  time.Now().UTC(),
		UserErrors: []UserErrors{},
	}

	userIDs, err := s.GetAllUserIDs(ctx)
	if err != nil {
		result.UserErrors = append(result.UserErrors, UserErrors{
			Errors: []AccountError{{Stage: StageGeneral, Error: fmt.Sprintf("failed to list users: %v", err)}},
		})
		result.UsersFailed = 1
		result.CompletedAt = time.Now().UTC()
		return result
	}

	result.UsersTotal = len(userIDs)
	log.Printf("Batch sync started for %d users", len(userIDs))

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			result.UsersFailed++
			result.UserErrors = append(result.UserErrors, UserErrors{
				UserID: userID,
				Errors: []AccountError{{Stage: StageGeneral, Error: fmt.Sprintf("batch canceled: %v", ctx.Err())}},
			})
			break
		}

		userResult := s.SyncUser(ctx, userID)

		result.TotalAccountsSynced += userResult.AccountsSynced
		result.TotalAccountsFailed += userResult.AccountsFailed
		result.TotalTransactionsAdded += userResult.TransactionsAdded
		result.TotalTransactionsModified += userResult.TransactionsModified
		result.TotalTransactionsRemoved += userResult.TransactionsRemoved
		result.TotalHoldingsSynced += userResult.HoldingsSynced

		if len(userResult.Errors) > 0 {
			result.UsersFailed++
			result.UserErrors = append(result.UserErrors, UserErrors{UserID: userID, Errors: userResult.Errors})
		} else {
			result.UsersSynced++
		}

		if s.usersSynced != nil {
			s.usersSynced.Add(ctx, 1, metric.WithAttributes(
				attribute.Bool("success", len(userResult.Errors) == 0)))
		}
	}

	result.CompletedAt = time.Now().UTC()
	result.Success = result.UsersFailed == 0

	if s.batchDuration != nil {
		s.batchDuration.Record(ctx, result.CompletedAt.Sub(result.StartedAt).Seconds())
	}

	log.Printf("Batch sync completed: users=%d/%d accounts=%d/%d txns=+%d/~%d/-%d holdings=%d success=%v",
		result.UsersSynced, result.UsersTotal,
		result.TotalAccountsSynced, result.TotalAccountsSynced+result.TotalAccountsFailed,
		result.TotalTransactionsAdded, result.TotalTransactionsModified, result.TotalTransactionsRemoved,
		result.TotalHoldingsSynced, result.Success)

	return result
}

func (s *BatchService) recordAccount(ctx context.Context, success bool) {
	if s.accountsSynced != nil {
		s.accountsSynced.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	}
}

// notifyCredentialFailure alerts the user when a sync failed because the
// connection needs re-authentication. Delivery is best effort.
func (s *BatchService) notifyCredentialFailure(ctx context.Context, account *connection.ConnectedAccount, err error) {
	if s.notifier == nil || !errors.Is(err, ErrCredential) {
		return
	}

	title := "Account needs attention"
	body := fmt.Sprintf("%s needs to be reconnected to keep syncing.", entryName(account))
	if sendErr := s.notifier.SendToUser(ctx, account.UserID, title, body,
		notification.CategoryAccounts, map[string]string{"connected_account_id": account.ID}); sendErr != nil {
		log.Printf("Failed to notify user %s about account %s: %v", account.UserID, account.ID, sendErr)
	}
}
