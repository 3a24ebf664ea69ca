package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldr/autonomi-service/internal/config"
)

// redisForTest returns a live client or skips the test.  Keys written
// under the returned prefix are removed on cleanup.
func redisForTest(t *testing.T) (*redis.Client, string) {
	t.Helper()
	rdb := config.NewRedisClient()
	if rdb == nil {
		t.Skip("redis not reachable")
	}
	prefix := fmt.Sprintf("test:%s:%d", t.Name(), time.Now().UnixNano())
	t.Cleanup(func() {
		ctx := context.Background()
		if keys, err := rdb.Keys(ctx, prefix+"*").Result(); err == nil && len(keys) > 0 {
			_ = rdb.Del(ctx, keys...).Err()
		}
		_ = rdb.Close()
	})
	return rdb, prefix
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRedisCacheMissThenHit(t *testing.T) {
	rdb, prefix := redisForTest(t)
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      prefix,
	}

	calls := 0
	e := echo.New()
	e.GET("/records/:id", func(c echo.Context) error {
		calls++
		c.Response().Header().Set("X-Record", c.Param("id"))
		return c.JSONBlob(http.StatusOK, []byte(`{"id":"`+c.Param("id")+`"}`))
	}, NewRedisCache(cfg, rdb))

	first := get(e, "/records/abc123")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := get(e, "/records/abc123")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.Equal(t, "abc123", second.Header().Get("X-Record"))
	assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	other := get(e, "/records/other")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestRedisCacheSkipsNon200(t *testing.T) {
	rdb, prefix := redisForTest(t)
	cfg := config.CacheConfig{
		Enabled: true,
		Methods: map[string]bool{http.MethodGet: true},
		TTL:     time.Minute,
		Prefix:  prefix,
	}

	calls := 0
	e := echo.New()
	e.GET("/records/:id", func(c echo.Context) error {
		calls++
		return c.JSONBlob(http.StatusNotFound, []byte(`{"status":"error"}`))
	}, NewRedisCache(cfg, rdb))

	for i := 0; i < 2; i++ {
		rec := get(e, "/records/missing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, calls)
}

func TestRedisCacheIgnoresUnlistedMethods(t *testing.T) {
	rdb, prefix := redisForTest(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodHead: true}, TTL: time.Minute, Prefix: prefix}

	e := echo.New()
	e.GET("/records/:id", func(c echo.Context) error { return c.String(http.StatusOK, "x") }, NewRedisCache(cfg, rdb))

	rec := get(e, "/records/abc")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestTokenBucketBlocksWhenExhausted(t *testing.T) {
	rdb, prefix := redisForTest(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         prefix,
	}

	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, nil))
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	first := get(e, "/health")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := get(e, "/health")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	retry, err := strconv.Atoi(second.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 3600)
	assert.Contains(t, second.Body.String(), `"error":"too_many_requests"`)
}
