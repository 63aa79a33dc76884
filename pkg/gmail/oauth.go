package gmail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	conndomain "inboxhub-backend/internal/connection/domain"
)

const revokeEndpoint = "https://oauth2.googleapis.com/revoke"

var oauthScopes = []string{
	gmailapi.GmailReadonlyScope,
	"https://www.googleapis.com/auth/userinfo.email",
}

// GoogleOAuth implements the Google side of the authorization dance: consent
// URL, code exchange, refresh and revocation. It also registers mailbox push
// notifications against a Pub/Sub topic.
type GoogleOAuth struct {
	config *oauth2.Config
	topic  string
}

func NewGoogleOAuth(clientID, clientSecret, redirectURI, topic string) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       oauthScopes,
			Endpoint:     google.Endpoint,
		},
		topic: topic,
	}
}

// AuthorizationURL returns the consent URL. Offline access plus forced consent
// so Google always returns a refresh token.
func (g *GoogleOAuth) AuthorizationURL(state string) string {
	return g.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens and resolves the Gmail
// address the grant belongs to.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*conndomain.OAuthToken, string, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("unable to exchange authorization code: %v", err)
	}

	row := fromOAuth2Token(tok)

	srv, err := newGmailService(ctx, row)
	if err != nil {
		return nil, "", err
	}
	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("unable to resolve account profile: %v", err)
	}

	return row, profile.EmailAddress, nil
}

// Refresh exchanges a refresh token for a fresh access token. A rejection of
// the grant itself (invalid_grant, invalid_client, 401) is terminal and comes
// back wrapped in ErrReauthRequired; everything else is left as-is for the
// caller to retry.
func (g *GoogleOAuth) Refresh(ctx context.Context, provider conndomain.Provider, refreshToken string) (*conndomain.OAuthToken, error) {
	src := g.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			code := retrieveErr.ErrorCode
			if code == "invalid_grant" || code == "invalid_client" ||
				(retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusUnauthorized) {
				return nil, fmt.Errorf("%w: %v", conndomain.ErrReauthRequired, err)
			}
		}
		return nil, err
	}

	row := fromOAuth2Token(tok)
	row.Provider = provider
	return row, nil
}

// Revoke invalidates the grant at Google. Errors are returned but callers
// treat revocation as best effort.
func (g *GoogleOAuth) Revoke(ctx context.Context, token *conndomain.OAuthToken) error {
	target := token.RefreshToken
	if target == "" {
		target = token.AccessToken
	}
	if target == "" {
		return nil
	}

	form := url.Values{"token": {target}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token revocation returned status %d", resp.StatusCode)
	}
	return nil
}

// Watch registers INBOX push notifications on the configured Pub/Sub topic.
// Any existing watch is stopped first; Gmail allows only one per user.
func (g *GoogleOAuth) Watch(ctx context.Context, token *conndomain.OAuthToken) error {
	if g.topic == "" {
		return nil
	}
	srv, err := newGmailService(ctx, token)
	if err != nil {
		return err
	}

	_ = srv.Users.Stop("me").Context(ctx).Do()

	req := &gmailapi.WatchRequest{
		TopicName: g.topic,
		LabelIds:  []string{"INBOX"},
	}
	resp, err := srv.Users.Watch("me", req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to watch mailbox: %v", err)
	}
	log.Printf("[Gmail] Watch registered, expiration %d historyId %d", resp.Expiration, resp.HistoryId)
	return nil
}

// Stop removes the mailbox watch
func (g *GoogleOAuth) Stop(ctx context.Context, token *conndomain.OAuthToken) error {
	srv, err := newGmailService(ctx, token)
	if err != nil {
		return err
	}
	if err := srv.Users.Stop("me").Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %v", err)
	}
	return nil
}

func fromOAuth2Token(tok *oauth2.Token) *conndomain.OAuthToken {
	scope, _ := tok.Extra("scope").(string)
	return &conndomain.OAuthToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
		Scope:        scope,
	}
}
