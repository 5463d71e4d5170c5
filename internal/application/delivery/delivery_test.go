package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"onlyjobs-backend/internal/application/domain"
	emaildomain "onlyjobs-backend/internal/email/domain"
	"onlyjobs-backend/pkg/queue"
	"onlyjobs-backend/pkg/retry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubIntake struct {
	errs  []error
	calls int
	data  [][]byte
}

func (s *stubIntake) Handle(context.Context, *emaildomain.QueueEnvelope) (*domain.JobApplication, error) {
	return nil, errors.New("not used")
}

func (s *stubIntake) Process(_ context.Context, data []byte) (*domain.JobApplication, error) {
	s.calls++
	s.data = append(s.data, data)
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		if len(s.errs) > 1 {
			s.errs = s.errs[1:]
		}
	}
	if err != nil {
		return nil, err
	}
	return &domain.JobApplication{UserID: "u1", MessageID: "m1", Company: "Acme"}, nil
}

func pushBody(t *testing.T, data []byte) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"message": map[string]interface{}{
			"data":      base64.StdEncoding.EncodeToString(data),
			"messageId": "push-1",
		},
		"subscription": "projects/p/subscriptions/s",
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func serve(intake *stubIntake, body *bytes.Reader) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/process", NewPushHandler(intake, zap.NewNop()).Process)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/process", body))
	return w
}

func TestPushStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   int
		status string
	}{
		{"stored", nil, http.StatusOK, "stored"},
		{"discarded", domain.ErrDiscarded, http.StatusOK, "discarded"},
		{"malformed", fmt.Errorf("%w: missing user_id", domain.ErrMalformedPayload), http.StatusOK, "dropped"},
		{"sink failure", fmt.Errorf("%w: document sink", domain.ErrSinkWrite), http.StatusInternalServerError, "error"},
		{"classifier failure", errors.New("model unavailable"), http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intake := &stubIntake{errs: []error{tc.err}}

			w := serve(intake, pushBody(t, []byte(`{"user_id":"u1"}`)))

			assert.Equal(t, tc.code, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.status, resp["status"])
			require.Len(t, intake.data, 1)
			assert.JSONEq(t, `{"user_id":"u1"}`, string(intake.data[0]))
		})
	}
}

func TestPushRejectsInvalidEnvelope(t *testing.T) {
	bodies := map[string]string{
		"not json":   "{",
		"no message": `{"subscription":"s"}`,
		"bad base64": `{"message":{"data":"%%%"}}`,
		"empty data": `{"message":{"messageId":"1"}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			intake := &stubIntake{}

			w := serve(intake, bytes.NewReader([]byte(body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, intake.calls)
		})
	}
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestConsumerHandle(t *testing.T) {
	transient := errors.New("model unavailable")

	t.Run("success acks", func(t *testing.T) {
		intake := &stubIntake{}
		c := NewConsumer(nil, intake, fastPolicy(), zap.NewNop())

		assert.NoError(t, c.handle(context.Background(), &queue.Message{Data: []byte("{}")}))
	})

	t.Run("discard acks", func(t *testing.T) {
		intake := &stubIntake{errs: []error{domain.ErrDiscarded}}
		c := NewConsumer(nil, intake, fastPolicy(), zap.NewNop())

		assert.NoError(t, c.handle(context.Background(), &queue.Message{}))
		assert.Equal(t, 1, intake.calls)
	})

	t.Run("malformed is dropped without retry", func(t *testing.T) {
		intake := &stubIntake{errs: []error{domain.ErrMalformedPayload}}
		c := NewConsumer(nil, intake, fastPolicy(), zap.NewNop())

		err := c.handle(context.Background(), &queue.Message{})

		assert.True(t, queue.IsDrop(err))
		assert.Equal(t, 1, intake.calls)
	})

	t.Run("sink failure is redelivered without retry", func(t *testing.T) {
		intake := &stubIntake{errs: []error{domain.ErrSinkWrite}}
		c := NewConsumer(nil, intake, fastPolicy(), zap.NewNop())

		err := c.handle(context.Background(), &queue.Message{})

		require.ErrorIs(t, err, domain.ErrSinkWrite)
		assert.False(t, queue.IsDrop(err))
		assert.Equal(t, 1, intake.calls)
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		intake := &stubIntake{errs: []error{transient, nil}}
		c := NewConsumer(nil, intake, fastPolicy(), zap.NewNop())

		assert.NoError(t, c.handle(context.Background(), &queue.Message{}))
		assert.Equal(t, 2, intake.calls)
	})

	t.Run("persistent transient failure is redelivered", func(t *testing.T) {
		intake := &stubIntake{errs: []error{transient}}
		c := NewConsumer(nil, intake, fastPolicy(), zap.NewNop())

		err := c.handle(context.Background(), &queue.Message{})

		require.ErrorIs(t, err, transient)
		assert.False(t, queue.IsDrop(err))
		assert.Equal(t, 3, intake.calls)
	})
}

type channelSubscriber struct {
	messages []*queue.Message
	results  []error
}

func (s *channelSubscriber) Receive(ctx context.Context, h queue.Handler) error {
	for _, m := range s.messages {
		s.results = append(s.results, h(ctx, m))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestConsumerRunStopsOnCancel(t *testing.T) {
	sub := &channelSubscriber{messages: []*queue.Message{{ID: "1"}, {ID: "2"}}}
	c := NewConsumer(sub, &stubIntake{}, fastPolicy(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Len(t, sub.results, 2)
}
