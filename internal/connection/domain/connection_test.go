package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusDisconnected, StatusConnected, true},
		{StatusRefreshRequired, StatusConnected, true},
		{StatusConnected, StatusRefreshRequired, true},
		{StatusConnected, StatusDisconnected, true},
		{StatusRefreshRequired, StatusDisconnected, true},
		{StatusDisconnected, StatusRefreshRequired, false},
		{StatusConnected, StatusConnected, false},
		{StatusDisconnected, StatusDisconnected, false},
		{StatusRefreshRequired, StatusRefreshRequired, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestOAuthTokenValid(t *testing.T) {
	now := time.Now()
	margin := 60 * time.Second

	t.Run("valid well before expiry", func(t *testing.T) {
		token := &OAuthToken{AccessToken: "at", ExpiresAt: now.Add(time.Hour)}
		assert.True(t, token.Valid(now, margin))
	})

	t.Run("expired", func(t *testing.T) {
		token := &OAuthToken{AccessToken: "at", ExpiresAt: now.Add(-time.Minute)}
		assert.False(t, token.Valid(now, margin))
	})

	t.Run("inside the safety margin counts as expired", func(t *testing.T) {
		token := &OAuthToken{AccessToken: "at", ExpiresAt: now.Add(30 * time.Second)}
		assert.False(t, token.Valid(now, margin))
	})

	t.Run("empty access token is never valid", func(t *testing.T) {
		token := &OAuthToken{ExpiresAt: now.Add(time.Hour)}
		assert.False(t, token.Valid(now, margin))
	})
}
