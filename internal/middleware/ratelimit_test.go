package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"kidney-story/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// Feature: community-backend, Property 16: Rate limiting blocks excessive requests
func TestProperty_RateLimitingBlocksExcessiveRequests(t *testing.T) {
	properties := gopter.NewProperties(nil)
	mr, client := newTestRedis(t)

	properties.Property("requests past the limit get 429", prop.ForAll(
		func(limit int, excess int) bool {
			mr.FlushAll()
			handler := RateLimitMiddleware(client, RateLimitConfig{
				RequestsPerWindow: limit,
				Window:            time.Minute,
				KeyPrefix:         "test_rate_limit",
			}, zap.NewNop())(http.HandlerFunc(okHandler))

			allowed, blocked := 0, 0
			for i := 0; i < limit+excess; i++ {
				req := httptest.NewRequest(http.MethodGet, "/test", nil)
				req.RemoteAddr = "192.168.1.100:5555"
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)

				switch w.Code {
				case http.StatusOK:
					allowed++
				case http.StatusTooManyRequests:
					if w.Header().Get("Retry-After") == "" {
						return false
					}
					blocked++
				}
			}
			return allowed == limit && blocked == excess
		},
		gen.IntRange(1, 30),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRateLimit_KeysByUserThenAddress(t *testing.T) {
	mr, client := newTestRedis(t)
	handler := RateLimitMiddleware(client, RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		KeyPrefix:         "rl",
	}, zap.NewNop())(http.HandlerFunc(okHandler))

	user := domain.Actor{UserID: uuid.New(), Role: domain.RolePatient}
	send := func(actor *domain.Actor, addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/feedback", nil)
		req.RemoteAddr = addr
		if actor != nil {
			req = req.WithContext(WithActor(req.Context(), *actor))
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(&user, "10.0.0.1:1"))
	// Same user from another address shares the counter.
	assert.Equal(t, http.StatusTooManyRequests, send(&user, "10.0.0.2:1"))
	// Anonymous callers are counted per host.
	assert.Equal(t, http.StatusOK, send(nil, "10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, send(nil, "10.0.0.1:2"))

	assert.True(t, mr.Exists("rl:user:"+user.UserID.String()))
	assert.True(t, mr.Exists("rl:ip:10.0.0.1"))
}

func TestRateLimit_WindowExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	handler := RateLimitMiddleware(client, RateLimitConfig{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		KeyPrefix:         "rl",
	}, zap.NewNop())(http.HandlerFunc(okHandler))

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.1.1:80"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	first := call()
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	call()
	blocked := call()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	retry, err := strconv.Atoi(blocked.Header().Get("Retry-After"))
	assert.NoError(t, err)
	assert.LessOrEqual(t, retry, 60)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, call().Code)
}

func TestRateLimit_FailsOpenWithoutRedis(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	handler := RateLimitMiddleware(client, RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		KeyPrefix:         "rl",
	}, zap.NewNop())(http.HandlerFunc(okHandler))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
