package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	creddomain "onlyjobs-backend/internal/credential/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// Scopes requested on consent.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailLabelsScope,
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"openid",
}

// OAuth runs the Google authorization-code flow for the mailbox grant.
type OAuth struct {
	config *oauth2.Config
}

func NewOAuth(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       Scopes,
		},
	}
}

// AuthCodeURL asks for offline access and forces the consent screen so a
// refresh token is always issued.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades an authorization code for tokens.
func (o *OAuth) Exchange(ctx context.Context, code string) (*creddomain.StagedCredential, error) {
	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return &creddomain.StagedCredential{
		AccessToken:   tok.AccessToken,
		RefreshToken:  tok.RefreshToken,
		TokenEndpoint: o.config.Endpoint.TokenURL,
		ClientID:      o.config.ClientID,
		ClientSecret:  o.config.ClientSecret,
		Scopes:        o.config.Scopes,
		Expiry:        tok.Expiry,
	}, nil
}

// Refresh exchanges cred's refresh token for a new access token. A grant
// rejected by the token endpoint maps to ErrCredentialInvalid.
func (o *OAuth) Refresh(ctx context.Context, cred *creddomain.UserCredential) (*oauth2.Token, error) {
	expired := &oauth2.Token{
		RefreshToken: cred.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	}
	tok, err := o.configFor(cred).TokenSource(ctx, expired).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil &&
			(re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %s", creddomain.ErrCredentialInvalid, re.ErrorCode)
		}
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return tok, nil
}

// configFor prefers the client the credential was issued to.
func (o *OAuth) configFor(cred *creddomain.UserCredential) *oauth2.Config {
	cfg := *o.config
	if cred.ClientID != "" {
		cfg.ClientID = cred.ClientID
		cfg.ClientSecret = cred.ClientSecret
	}
	if cred.TokenEndpoint != "" {
		cfg.Endpoint.TokenURL = cred.TokenEndpoint
	}
	return &cfg
}
