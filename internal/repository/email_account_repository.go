package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kairocrm/ingest/internal/models"
	"gorm.io/gorm"
)

var ErrAccountNotFound = errors.New("email account not found")

// staleClaimAge is how long a syncing claim may be held before it is treated
// as abandoned by a crashed run and becomes claimable again.
const staleClaimAge = 15 * time.Minute

type EmailAccountRepository struct {
	db *gorm.DB
}

func NewEmailAccountRepository(db *gorm.DB) *EmailAccountRepository {
	return &EmailAccountRepository{db: db}
}

// GetByID retrieves an email account by ID
func (r *EmailAccountRepository) GetByID(ctx context.Context, accountID string) (*models.EmailAccount, error) {
	var account models.EmailAccount
	result := r.db.WithContext(ctx).First(&account, "id = ?", accountID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}
	return &account, nil
}

// GetDueAccounts retrieves up to limit accounts eligible for sync in
// round-robin order. Never-synced accounts (last_synced_at NULL) come first,
// then the longest-unsynced. Accounts currently claimed by another run are
// excluded unless the claim has gone stale.
func (r *EmailAccountRepository) GetDueAccounts(ctx context.Context, limit int) ([]models.EmailAccount, error) {
	var accounts []models.EmailAccount
	result := r.db.WithContext(ctx).
		Where("sync_status <> ? OR updated_at < ?", models.SyncStatusSyncing, time.Now().Add(-staleClaimAge)).
		Order("last_synced_at ASC NULLS FIRST, created_at ASC").
		Limit(limit).
		Find(&accounts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query due accounts: %w", result.Error)
	}
	return accounts, nil
}

// ClaimForSync atomically marks an account as syncing. The update is
// conditional on the account not already being claimed, so two concurrent
// scheduler runs can never both claim it. A stale claim counts as unclaimed.
// Returns true when this call won the claim.
func (r *EmailAccountRepository) ClaimForSync(ctx context.Context, accountID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.EmailAccount{}).
		Where("id = ? AND (sync_status <> ? OR updated_at < ?)", accountID, models.SyncStatusSyncing, time.Now().Add(-staleClaimAge)).
		Updates(map[string]interface{}{
			"sync_status": models.SyncStatusSyncing,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim account: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ReleaseSynced releases a claim after a successful sync: status active,
// last_synced_at stamped, error cleared.
func (r *EmailAccountRepository) ReleaseSynced(ctx context.Context, accountID string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.EmailAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"sync_status":    models.SyncStatusActive,
			"last_synced_at": now,
			"error_message":  nil,
			"updated_at":     now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to release account: %w", result.Error)
	}
	return nil
}

// ReleaseFailed releases a claim after a failed sync: status error, message
// recorded, last_synced_at left untouched.
func (r *EmailAccountRepository) ReleaseFailed(ctx context.Context, accountID string, errorMessage string) error {
	result := r.db.WithContext(ctx).Model(&models.EmailAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"sync_status":   models.SyncStatusError,
			"error_message": errorMessage,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to release failed account: %w", result.Error)
	}
	return nil
}

// UpdateTokens updates access/refresh tokens after an OAuth refresh
func (r *EmailAccountRepository) UpdateTokens(ctx context.Context, accountID string, accessToken string, refreshToken string, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.EmailAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"access_token":     accessToken,
			"refresh_token":    refreshToken,
			"token_expires_at": expiresAt,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update tokens: %w", result.Error)
	}
	return nil
}

// CountByStatus returns account counts grouped by sync_status
func (r *EmailAccountRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		SyncStatus string
		Count      int64
	}

	var rows []statusCount
	result := r.db.WithContext(ctx).Model(&models.EmailAccount{}).
		Select("sync_status, COUNT(*) AS count").
		Group("sync_status").
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", result.Error)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.SyncStatus] = row.Count
	}
	return counts, nil
}

// OldestEligible returns the unclaimed account that has waited longest for a
// sync, or nil when the queue is empty.
func (r *EmailAccountRepository) OldestEligible(ctx context.Context) (*models.EmailAccount, error) {
	accounts, err := r.GetDueAccounts(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}
