package domain

import (
	"context"

	creddomain "onlyjobs-backend/internal/credential/domain"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc func(token *oauth2.Token) error

// Mailbox lists and reads messages of one connected account.
type Mailbox interface {
	List(ctx context.Context, q ListQuery) (*MessagePage, error)
	Get(ctx context.Context, messageID string) (*MessageDetail, error)
}

// MailProvider opens a Mailbox for a credential. onTokenRefresh is called
// whenever the client refreshes the access token mid-pass.
type MailProvider interface {
	Open(ctx context.Context, cred *creddomain.UserCredential, onTokenRefresh TokenUpdateFunc) (Mailbox, error)
}
