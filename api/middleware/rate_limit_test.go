package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
)

type countingRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newCountingRateStore() *countingRateStore {
	return &countingRateStore{counts: map[string]int64{}}
}

func (s *countingRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, 0, s.err
	}
	s.counts[scope]++
	return s.counts[scope] <= limit, s.counts[scope], nil
}

func loginRequest(remote, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = remote
	return req
}

func TestAuthRateLimitKeepsBodyForHandler(t *testing.T) {
	var seen string
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 2, 2), newCountingRateStore(), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			seen = string(body)
			w.WriteHeader(http.StatusOK)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("1.2.3.4:5678", `{"email":"kiran@example.com","password":"secret"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, seen, `"email":"kiran@example.com"`)
}

func TestAuthRateLimitBlocksByEmail(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy(" Login ", time.Minute, 0, 2), newCountingRateStore(), nil)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("1.2.3.4:5678", `{"email":"blocked@example.com"}`))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			require.Equal(t, string(pkgerrors.CodeRateLimit), errorCode(t, rec))
			require.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestAuthRateLimitBlocksByForwardedIP(t *testing.T) {
	store := newCountingRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("register", time.Minute, 1, 0), store, nil)(okHandler())

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := loginRequest("10.0.0.1:1234", `{}`)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equalf(t, want, rec.Code, "request %d", i)
	}
	require.Contains(t, store.counts, "ip:register:203.0.113.9")
}

func TestAuthRateLimitHashesNormalizedEmail(t *testing.T) {
	store := newCountingRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 0, 1), store, nil)(okHandler())

	var codes []int
	for _, email := range []string{"Asha@Example.com", " asha@example.com "} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("1.2.3.4:1", `{"email":"`+email+`"}`))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	require.Len(t, store.counts, 1)
	for key := range store.counts {
		require.NotContains(t, key, "asha")
	}
}

func TestAuthRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := newCountingRateStore()
	store.err = context.DeadlineExceeded
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 5, 5), store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("1.2.3.4:1", `{"email":"a@example.com"}`))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimitInactivePolicyPassesThrough(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", 0, 1, 1), newCountingRateStore(), nil)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("1.2.3.4:1", `{}`))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
