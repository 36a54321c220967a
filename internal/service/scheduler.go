package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kairocrm/ingest/internal/models"
	"golang.org/x/sync/errgroup"
)

// AccountStore is the slice of the email account repository the scheduler needs
type AccountStore interface {
	GetDueAccounts(ctx context.Context, limit int) ([]models.EmailAccount, error)
	ClaimForSync(ctx context.Context, accountID string) (bool, error)
	ReleaseSynced(ctx context.Context, accountID string) error
	ReleaseFailed(ctx context.Context, accountID string, errorMessage string) error
	UpdateTokens(ctx context.Context, accountID string, accessToken string, refreshToken string, expiresAt time.Time) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
	OldestEligible(ctx context.Context) (*models.EmailAccount, error)
}

// MailFetchResult summarizes one account's fetch
type MailFetchResult struct {
	MessageIDs   []string
	TotalFetched int
}

// TokenRefreshResult is the outcome of an OAuth token refresh
type TokenRefreshResult struct {
	AccessToken  string
	RefreshToken string // may be same or rotated
	ExpiresAt    time.Time
}

// MailFetcher is the opaque mail-protocol capability
type MailFetcher interface {
	FetchRecentMessages(ctx context.Context, account models.EmailAccount) (*MailFetchResult, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenRefreshResult, error)
}

// BatchResult aggregates one scheduler invocation. Attempted counts accounts
// this run actually claimed; an account lost to a concurrent claim is skipped.
type BatchResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// QueueStats is the read-only sync queue introspection
type QueueStats struct {
	Counts           map[string]int64 `json:"counts"`
	OldestAccountID  string           `json:"oldest_account_id,omitempty"`
	OldestAgeSeconds int64            `json:"oldest_age_seconds,omitempty"`
}

// Scheduler pulls due email accounts in bounded batches and syncs each one
// independently: a failing mailbox only ever marks itself, never the batch.
type Scheduler struct {
	accounts AccountStore
	mail     MailFetcher
}

func NewScheduler(accounts AccountStore, mail MailFetcher) *Scheduler {
	return &Scheduler{
		accounts: accounts,
		mail:     mail,
	}
}

// ProcessBatch claims and syncs up to batchSize due accounts concurrently.
// Per-account failures are recorded on the account and counted, not returned.
func (s *Scheduler) ProcessBatch(ctx context.Context, batchSize int) (BatchResult, error) {
	var result BatchResult

	if batchSize < 1 {
		return result, fmt.Errorf("invalid batch size %d", batchSize)
	}

	accounts, err := s.accounts.GetDueAccounts(ctx, batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to select due accounts: %w", err)
	}
	if len(accounts) == 0 {
		return result, nil
	}

	log.Printf("Sync batch: %d account(s) due", len(accounts))

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(batchSize)

	// Releases must not die with the caller: a cron request that disconnects
	// mid-batch would otherwise leave accounts claimed forever.
	releaseCtx := context.WithoutCancel(ctx)

	for _, account := range accounts {
		account := account
		group.Go(func() error {
			claimed, err := s.accounts.ClaimForSync(groupCtx, account.ID)
			if err != nil {
				log.Printf("Failed to claim account %s: %v", account.ID, err)
				return nil
			}
			if !claimed {
				// Lost the claim to a concurrent run; skip, never retry in-batch.
				log.Printf("Account %s already claimed, skipping", account.ID)
				return nil
			}

			mu.Lock()
			result.Attempted++
			mu.Unlock()

			if err := s.syncAccount(groupCtx, account); err != nil {
				log.Printf("Sync failed for account %s: %v", account.ID, err)
				if releaseErr := s.accounts.ReleaseFailed(releaseCtx, account.ID, err.Error()); releaseErr != nil {
					log.Printf("Failed to release account %s after error: %v", account.ID, releaseErr)
				}
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			if err := s.accounts.ReleaseSynced(releaseCtx, account.ID); err != nil {
				log.Printf("Failed to release account %s after sync: %v", account.ID, err)
			}
			mu.Lock()
			result.Succeeded++
			mu.Unlock()
			return nil
		})
	}

	_ = group.Wait() // workers never return errors, failures are per-account state

	log.Printf("Sync batch done: attempted=%d succeeded=%d failed=%d",
		result.Attempted, result.Succeeded, result.Failed)
	return result, nil
}

// syncAccount refreshes credentials when needed and fetches new messages
func (s *Scheduler) syncAccount(ctx context.Context, account models.EmailAccount) error {
	if account.AccessToken == nil || account.RefreshToken == nil {
		return fmt.Errorf("account missing tokens")
	}

	if isTokenExpired(account.TokenExpiresAt) {
		log.Printf("Access token expired for account %s, refreshing...", account.ID)
		refreshed, err := s.mail.RefreshAccessToken(ctx, *account.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to refresh token: %w", err)
		}
		if err := s.accounts.UpdateTokens(ctx, account.ID, refreshed.AccessToken, refreshed.RefreshToken, refreshed.ExpiresAt); err != nil {
			return fmt.Errorf("failed to persist refreshed tokens: %w", err)
		}
		account.AccessToken = &refreshed.AccessToken
		account.RefreshToken = &refreshed.RefreshToken
		account.TokenExpiresAt = &refreshed.ExpiresAt
	}

	fetched, err := s.mail.FetchRecentMessages(ctx, account)
	if err != nil {
		return fmt.Errorf("mail fetch failed: %w", err)
	}

	log.Printf("Account %s: fetched %d message(s)", account.ID, fetched.TotalFetched)
	return nil
}

// QueueStats reports account counts by sync status and the oldest unclaimed
// eligible account. Read-only.
func (s *Scheduler) QueueStats(ctx context.Context) (*QueueStats, error) {
	counts, err := s.accounts.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	stats := &QueueStats{Counts: counts}

	oldest, err := s.accounts.OldestEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find oldest eligible account: %w", err)
	}
	if oldest != nil {
		stats.OldestAccountID = oldest.ID
		since := oldest.CreatedAt
		if oldest.LastSyncedAt != nil {
			since = *oldest.LastSyncedAt
		}
		stats.OldestAgeSeconds = int64(time.Since(since).Seconds())
	}

	return stats, nil
}

// isTokenExpired treats tokens within a minute of expiry as expired
func isTokenExpired(expiresAt *time.Time) bool {
	if expiresAt == nil {
		return true
	}
	return time.Now().Add(time.Minute).After(*expiresAt)
}
