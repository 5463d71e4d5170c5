package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"onlyjobs-backend/internal/email/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetch struct {
	mode domain.FetchMode
	uid  string
}

func (s *stubFetch) Fetch(context.Context, string, domain.FetchMode) (int, error) { return 0, nil }

func (s *stubFetch) FetchAll(_ context.Context, mode domain.FetchMode, uid string) (*domain.FetchSummary, error) {
	s.mode, s.uid = mode, uid
	return &domain.FetchSummary{Status: "complete", UsersProcessed: 2, Backfill: mode == domain.FetchBackfill}, nil
}

func TestFetchAllQueryParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		url  string
		mode domain.FetchMode
		uid  string
	}{
		{"/fetch", domain.FetchIncremental, ""},
		{"/fetch?backfill=true&uid=u1", domain.FetchBackfill, "u1"},
		{"/fetch?backfill=nope", domain.FetchIncremental, ""},
	}
	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			stub := &stubFetch{}
			r := gin.New()
			r.POST("/fetch", NewFetchHandler(stub).FetchAll)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tc.url, nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.mode, stub.mode)
			assert.Equal(t, tc.uid, stub.uid)

			var body domain.FetchSummary
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "complete", body.Status)
			assert.Equal(t, 2, body.UsersProcessed)
		})
	}
}
