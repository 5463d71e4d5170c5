package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	creddomain "onlyjobs-backend/internal/credential/domain"
	"onlyjobs-backend/internal/email/domain"
	"onlyjobs-backend/internal/email/repository"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type FetchOptions struct {
	MaxPerRun           int
	IncrementalPageSize int64
	BackfillPageSize    int64
	// DetailDelay is the minimum spacing between detail calls of one pass.
	DetailDelay       time.Duration
	DetailConcurrency int
	UserConcurrency   int
	Label             string
	// ContentLimit caps the characters of message text put on the queue.
	ContentLimit int
}

func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		MaxPerRun:           500,
		IncrementalPageSize: 10,
		BackfillPageSize:    100,
		DetailDelay:         100 * time.Millisecond,
		DetailConcurrency:   1,
		UserConcurrency:     4,
		Label:               "INBOX",
		ContentLimit:        4000,
	}
}

type fetchUsecase struct {
	credentials CredentialSource
	cursors     repository.CursorRepository
	provider    domain.MailProvider
	publisher   EnvelopePublisher
	opts        FetchOptions
	now         func() time.Time
	log         *zap.Logger
}

func NewFetchUsecase(
	credentials CredentialSource,
	cursors repository.CursorRepository,
	provider domain.MailProvider,
	publisher EnvelopePublisher,
	opts FetchOptions,
	log *zap.Logger,
) FetchUsecase {
	if opts.DetailConcurrency < 1 {
		opts.DetailConcurrency = 1
	}
	if opts.UserConcurrency < 1 {
		opts.UserConcurrency = 1
	}
	return &fetchUsecase{
		credentials: credentials,
		cursors:     cursors,
		provider:    provider,
		publisher:   publisher,
		opts:        opts,
		now:         time.Now,
		log:         log.Named("fetch"),
	}
}

func (u *fetchUsecase) Fetch(ctx context.Context, userID string, mode domain.FetchMode) (int, error) {
	log := u.log.With(zap.String("user_id", userID), zap.String("mode", string(mode)))

	cred, err := u.credentials.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	cred, err = u.credentials.Refresh(ctx, cred)
	if err != nil {
		return 0, err
	}

	cursor, err := u.cursors.Get(ctx, userID)
	if err != nil {
		return 0, err
	}

	mailbox, err := u.provider.Open(ctx, cred, u.tokenWriter(ctx, cred))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrProviderTransient, err)
	}

	query := domain.ListQuery{PageSize: u.opts.IncrementalPageSize}
	if u.opts.Label != "" {
		query.LabelIDs = []string{u.opts.Label}
	}
	watermark := int64(0)
	if mode == domain.FetchBackfill {
		query.PageSize = u.opts.BackfillPageSize
	} else if cursor.LastFetchedAt > 0 {
		watermark = cursor.LastFetchedAt
		query.Query = fmt.Sprintf("after:%d", watermark/1000)
	}

	limit := rate.Inf
	if u.opts.DetailDelay > 0 {
		limit = rate.Every(u.opts.DetailDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	attempted, published, missed := 0, 0, 0
	for {
		page, err := mailbox.List(ctx, query)
		if err != nil {
			// cursor stays put so the next run re-lists the unseen pages
			log.Warn("listing stopped", zap.Int("published", published), zap.Error(err))
			return published, err
		}

		refs := page.Refs
		if remaining := u.opts.MaxPerRun - attempted; len(refs) > remaining {
			refs = refs[:remaining]
		}
		attempted += len(refs)

		details, failed := u.fetchDetails(ctx, mailbox, refs, limiter, log)
		missed += failed
		for _, detail := range details {
			if detail == nil {
				continue
			}
			// "after:" has second granularity
			if watermark > 0 && detail.InternalDate <= watermark {
				continue
			}
			content := messageContent(detail, u.opts.ContentLimit)
			if content == "" {
				log.Debug("skipping message without content", zap.String("message_id", detail.ID))
				continue
			}

			env := domain.NewQueueEnvelope(userID, detail.ID, content, detail.InternalDate)
			if err := u.publisher.Publish(ctx, env); err != nil {
				log.Error("publish failed", zap.String("message_id", detail.ID), zap.Error(err))
				return published, fmt.Errorf("publish %s: %w", detail.ID, err)
			}
			published++
		}

		if page.NextPageToken == "" || attempted >= u.opts.MaxPerRun {
			break
		}
		query.PageToken = page.NextPageToken
	}

	if missed > 0 {
		// unread messages stay above the watermark for the next run
		log.Warn("fetch pass incomplete, cursor held",
			zap.Int("attempted", attempted),
			zap.Int("published", published),
			zap.Int("failed", missed))
		return published, nil
	}

	mark := u.now().UnixMilli()
	if mark < cursor.LastFetchedAt {
		mark = cursor.LastFetchedAt
	}
	if err := u.cursors.Advance(ctx, userID, mark); err != nil {
		return published, err
	}

	log.Info("fetch pass complete", zap.Int("attempted", attempted), zap.Int("published", published))
	return published, nil
}

// fetchDetails loads refs in parallel under the shared limiter. The result
// keeps the order of refs; failed loads are nil and counted.
func (u *fetchUsecase) fetchDetails(ctx context.Context, mailbox domain.Mailbox, refs []domain.MessageRef, limiter *rate.Limiter, log *zap.Logger) ([]*domain.MessageDetail, int) {
	details := make([]*domain.MessageDetail, len(refs))
	var failed atomic.Int32

	var g errgroup.Group
	g.SetLimit(u.opts.DetailConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				log.Warn("detail fetch cancelled", zap.String("message_id", ref.ID), zap.Error(err))
				failed.Add(1)
				return nil
			}
			detail, err := mailbox.Get(ctx, ref.ID)
			if err != nil {
				log.Warn("skipping message", zap.String("message_id", ref.ID), zap.Error(err))
				failed.Add(1)
				return nil
			}
			details[i] = detail
			return nil
		})
	}
	_ = g.Wait()
	return details, int(failed.Load())
}

// tokenWriter persists access tokens refreshed by the HTTP client mid-pass.
func (u *fetchUsecase) tokenWriter(ctx context.Context, cred *creddomain.UserCredential) domain.TokenUpdateFunc {
	var mu sync.Mutex
	return func(tok *oauth2.Token) error {
		mu.Lock()
		defer mu.Unlock()
		cred.ApplyToken(tok, u.now())
		return u.credentials.Save(ctx, cred)
	}
}

func (u *fetchUsecase) FetchAll(ctx context.Context, mode domain.FetchMode, onlyUserID string) (*domain.FetchSummary, error) {
	var userIDs []string
	if onlyUserID != "" {
		userIDs = []string{onlyUserID}
	} else {
		ids, err := u.credentials.ListUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		userIDs = ids
	}

	summary := &domain.FetchSummary{
		Status:   "complete",
		Backfill: mode == domain.FetchBackfill,
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(u.opts.UserConcurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			n, err := u.Fetch(ctx, userID, mode)

			mu.Lock()
			defer mu.Unlock()
			summary.MessagesFetched += n
			if err != nil {
				summary.UsersFailed++
				u.log.Error("fetch failed", zap.String("user_id", userID), zap.Error(err))
				return nil
			}
			summary.UsersProcessed++
			return nil
		})
	}
	_ = g.Wait()

	u.log.Info("fetch-all complete",
		zap.Int("users_processed", summary.UsersProcessed),
		zap.Int("users_failed", summary.UsersFailed),
		zap.Int("messages_fetched", summary.MessagesFetched),
		zap.Bool("backfill", summary.Backfill))
	return summary, nil
}

// messageContent renders the text handed to classification: subject and
// body when a body was extracted, otherwise the provider snippet.
func messageContent(d *domain.MessageDetail, limit int) string {
	var text string
	switch {
	case strings.TrimSpace(d.Body) != "":
		text = strings.TrimSpace(d.Subject + "\n\n" + d.Body)
	default:
		text = strings.TrimSpace(d.Snippet)
	}
	return truncateRunes(text, limit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
