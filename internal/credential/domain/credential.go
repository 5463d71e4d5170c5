package domain

import (
	"time"

	"golang.org/x/oauth2"
)

// UserCredential is the stored OAuth grant for one user's mailbox.
type UserCredential struct {
	UserID          string    `firestore:"user_id"`
	AccessToken     string    `firestore:"access_token"`
	RefreshToken    string    `firestore:"refresh_token"`
	TokenEndpoint   string    `firestore:"token_uri"`
	ClientID        string    `firestore:"client_id"`
	ClientSecret    string    `firestore:"client_secret"`
	Scopes          []string  `firestore:"scopes"`
	Expiry          time.Time `firestore:"expiry"`
	LastRefreshedAt time.Time `firestore:"last_refreshed_at"`
}

// Revoked reports whether the grant can no longer be refreshed.
func (c *UserCredential) Revoked() bool {
	return c == nil || c.RefreshToken == ""
}

// Token returns the oauth2 view of the credential.
func (c *UserCredential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.Expiry,
	}
}

// ApplyToken copies a refreshed token onto the credential. Providers may
// omit the refresh token on refresh; the previous one is kept then.
func (c *UserCredential) ApplyToken(tok *oauth2.Token, now time.Time) {
	c.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	c.Expiry = tok.Expiry
	c.LastRefreshedAt = now
}

// StagedCredential holds freshly exchanged tokens until the signed-in user
// claims them with Handle.
type StagedCredential struct {
	Handle        string    `firestore:"handle"`
	AccessToken   string    `firestore:"access_token"`
	RefreshToken  string    `firestore:"refresh_token"`
	TokenEndpoint string    `firestore:"token_uri"`
	ClientID      string    `firestore:"client_id"`
	ClientSecret  string    `firestore:"client_secret"`
	Scopes        []string  `firestore:"scopes"`
	Expiry        time.Time `firestore:"expiry"`
	CreatedAt     time.Time `firestore:"created_at"`
	ExpiresAt     time.Time `firestore:"expires_at"`
}

func (s *StagedCredential) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Attribute turns the staged grant into userID's permanent credential.
func (s *StagedCredential) Attribute(userID string, now time.Time) *UserCredential {
	return &UserCredential{
		UserID:          userID,
		AccessToken:     s.AccessToken,
		RefreshToken:    s.RefreshToken,
		TokenEndpoint:   s.TokenEndpoint,
		ClientID:        s.ClientID,
		ClientSecret:    s.ClientSecret,
		Scopes:          s.Scopes,
		Expiry:          s.Expiry,
		LastRefreshedAt: now,
	}
}
