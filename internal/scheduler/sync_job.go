package scheduler

import (
	"context"
	"fmt"
	"log"

	"nestegg/internal/domain/sync"
)

// UserSyncJob implements the Job interface for syncing one user's connected
// accounts through the batch orchestrator.
type UserSyncJob struct {
	userID string
	batch  *sync.BatchService
}

// NewUserSyncJob creates a new sync job for a user
func NewUserSyncJob(userID string, batch *sync.BatchService) *UserSyncJob {
	return &UserSyncJob{
		userID: userID,
		batch:  batch,
	}
}

// Execute runs the user sync. A result with errors returns an error so the
// worker pool records the job as failed.
func (j *UserSyncJob) Execute(ctx context.Context) error {
	log.Printf("Starting sync for user %s", j.userID)

	result := j.batch.SyncUser(ctx, j.userID)

	if len(result.Errors) > 0 {
		log.Printf("Sync for user %s completed with errors: Synced=%d, Failed=%d, Errors=%d",
			j.userID, result.AccountsSynced, result.AccountsFailed, len(result.Errors))
		return fmt.Errorf("sync completed with %d errors", len(result.Errors))
	}

	log.Printf("Sync for user %s completed successfully: Accounts=%d, Txns=+%d/~%d/-%d, Holdings=%d",
		j.userID, result.AccountsSynced,
		result.TransactionsAdded, result.TransactionsModified, result.TransactionsRemoved,
		result.HoldingsSynced)

	return nil
}

// UserID returns the user ID associated with this job
func (j *UserSyncJob) UserID() string {
	return j.userID
}

// Description returns a human-readable description of the job
func (j *UserSyncJob) Description() string {
	return fmt.Sprintf("Account sync for user %s", j.userID)
}
