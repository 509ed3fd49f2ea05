package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/toko-promo/internal/common"
)

type failingLimiter struct{}

func (failingLimiter) Get(context.Context, string) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	l, err := New(nil, "test:", "1-M")
	require.NoError(t, err)
	counted := Handler{Limiter: l, Key: func(*http.Request) string { return "static" }}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/resolve", nil)
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rr2.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	called := false
	counted := Handler{Limiter: failingLimiter{}, OnError: func(error) { called = true }}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	counted.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/resolve", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestUserOrIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	require.Equal(t, "ip:10.0.0.1", UserOrIP(req))

	req.RemoteAddr = "10.0.0.2"
	require.Equal(t, "ip:10.0.0.2", UserOrIP(req))

	req = req.WithContext(common.WithUserID(req.Context(), 42))
	require.Equal(t, "user:42", UserOrIP(req))
}

func TestNewRejectsBadRate(t *testing.T) {
	_, err := New(nil, "", "often")
	require.Error(t, err)
}
