package gmail

import (
	"context"
	"fmt"

	creddomain "onlyjobs-backend/internal/credential/domain"
	emaildomain "onlyjobs-backend/internal/email/domain"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = emaildomain.TokenUpdateFunc

// Service opens Gmail mailboxes for stored credentials.
type Service struct {
	oauth *OAuth
	log   *zap.Logger
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
	log      *zap.Logger
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			s.log.Warn("failed to persist refreshed token", zap.Error(err))
		}
	}
	return t, nil
}

func NewService(oauth *OAuth, log *zap.Logger) *Service {
	return &Service{
		oauth: oauth,
		log:   log.Named("gmail"),
	}
}

// Open builds an authorized Gmail client for cred. The oauth2 transport
// refreshes an expired access token and reports it through onTokenRefresh.
func (s *Service) Open(ctx context.Context, cred *creddomain.UserCredential, onTokenRefresh TokenUpdateFunc) (emaildomain.Mailbox, error) {
	token := cred.Token()

	wrappedSource := &notifyTokenSource{
		src:      s.oauth.configFor(cred).TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
		log:      s.log,
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, wrappedSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return &mailbox{srv: srv}, nil
}

type mailbox struct {
	srv *gmail.Service
}

const user = "me"

func (m *mailbox) List(ctx context.Context, q emaildomain.ListQuery) (*emaildomain.MessagePage, error) {
	call := m.srv.Users.Messages.List(user).Context(ctx)
	if q.Query != "" {
		call = call.Q(q.Query)
	}
	if len(q.LabelIDs) > 0 {
		call = call.LabelIds(q.LabelIDs...)
	}
	if q.PageSize > 0 {
		call = call.MaxResults(q.PageSize)
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", emaildomain.ErrProviderTransient, err)
	}

	page := &emaildomain.MessagePage{
		Refs:          make([]emaildomain.MessageRef, 0, len(resp.Messages)),
		NextPageToken: resp.NextPageToken,
	}
	for _, msg := range resp.Messages {
		page.Refs = append(page.Refs, emaildomain.MessageRef{ID: msg.Id, ThreadID: msg.ThreadId})
	}
	return page, nil
}

func (m *mailbox) Get(ctx context.Context, messageID string) (*emaildomain.MessageDetail, error) {
	msg, err := m.srv.Users.Messages.Get(user, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: get message %s: %v", emaildomain.ErrProviderTransient, messageID, err)
	}
	return convertMessage(msg), nil
}

func convertMessage(msg *gmail.Message) *emaildomain.MessageDetail {
	detail := &emaildomain.MessageDetail{
		ID:           msg.Id,
		InternalDate: msg.InternalDate,
		Snippet:      msg.Snippet,
	}
	if msg.Payload != nil {
		detail.Subject = getHeader(msg.Payload.Headers, "Subject")
		detail.From = getHeader(msg.Payload.Headers, "From")
		body, isHTML := getEmailBody(msg.Payload)
		if isHTML {
			body = stripHTML(body)
		}
		detail.Body = collapseWhitespace(body)
	}
	return detail
}
