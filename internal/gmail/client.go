package gmail

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/kairocrm/ingest/internal/models"
	"github.com/kairocrm/ingest/internal/service"
)

const (
	// What "new messages" means for a sync pass
	recentMessagesQuery = "newer_than:7d"
	maxMessagesPerSync  = 100
)

// Client implements the mail-fetch capability for Google-provider accounts
type Client struct {
	clientID     string
	clientSecret string
}

func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// FetchRecentMessages lists recent message IDs for the account (lightweight,
// no full message fetch).
func (c *Client) FetchRecentMessages(ctx context.Context, account models.EmailAccount) (*service.MailFetchResult, error) {
	if account.AccessToken == nil {
		return nil, fmt.Errorf("account missing access token")
	}

	token := &oauth2.Token{
		AccessToken: *account.AccessToken,
		TokenType:   "Bearer",
	}

	gmailService, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	listResp, err := gmailService.Users.Messages.List("me").
		Q(recentMessagesQuery).
		MaxResults(maxMessagesPerSync).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messageIDs := make([]string, 0, len(listResp.Messages))
	for _, msg := range listResp.Messages {
		messageIDs = append(messageIDs, msg.Id)
	}

	log.Printf("Gmail API returned %d message IDs for %s", len(messageIDs), account.Email)

	return &service.MailFetchResult{
		MessageIDs:   messageIDs,
		TotalFetched: len(messageIDs),
	}, nil
}

// RefreshAccessToken refreshes the OAuth2 access token
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*service.TokenRefreshResult, error) {
	config := &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
	}

	tokenSource := config.TokenSource(ctx, token)
	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	result := &service.TokenRefreshResult{
		AccessToken: newToken.AccessToken,
		ExpiresAt:   newToken.Expiry,
	}

	// Check if the refresh token was rotated
	if newToken.RefreshToken != "" && newToken.RefreshToken != refreshToken {
		result.RefreshToken = newToken.RefreshToken
	} else {
		result.RefreshToken = refreshToken
	}

	return result, nil
}
