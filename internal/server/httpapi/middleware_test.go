package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/logging"
	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
	"github.com/dmitrijs2005/lemonauth/internal/server/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis: connection refused")
}

func TestRateLimit_BlocksAfterBudget(t *testing.T) {
	api := newTestAPI(t, ratelimit.NewMemoryLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodGet, "/health", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(1-i), rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	}

	rec := api.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "rate limit exceeded, please try again later", errorOf(t, rec))

	// other clients are unaffected
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	api := newTestAPI(t, brokenLimiter{})

	rec := api.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestResetSeconds(t *testing.T) {
	assert.Equal(t, int64(100), resetSeconds(time.Unix(100, 0)))
	assert.Equal(t, int64(101), resetSeconds(time.Unix(100, 1)))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(r))

	r.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientIP(r))
}

func TestRequireAuth_SetsUserID(t *testing.T) {
	token, err := auth.GenerateToken("user-42", []byte(testSecret), time.Minute)
	require.NoError(t, err)

	var got string
	h := requireAuth([]byte(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user-42", got)
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"typed", common.ErrDisabledAccount, http.StatusBadRequest, "account is disabled"},
		{"typed with message", common.WithMessage(common.ErrTokenExpired, "OTP expired"), http.StatusBadRequest, "OTP expired"},
		{"rate limited", common.ErrRateLimited, http.StatusTooManyRequests, "too many requests"},
		{"invalid bearer", common.ErrInvalidToken, http.StatusUnauthorized, "invalid token"},
		{"internal", errors.New("sql: connection reset"), http.StatusBadRequest, genericErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), logging.Nop{}, tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, errorOf(t, rec))
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
