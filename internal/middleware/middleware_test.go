package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aldr/autonomi-service/internal/config"
)

func newCtx(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCacheKeyDistinguishesPaths(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	a, _ := newCtx(http.MethodGet, "/records/a")
	a.SetPath("/records/:id")
	b, _ := newCtx(http.MethodGet, "/records/b")
	b.SetPath("/records/:id")

	ka, kb := cacheKeyFrom(cfg, a), cacheKeyFrom(cfg, b)
	assert.NotEqual(t, ka, kb)
	assert.True(t, strings.HasPrefix(ka, "cache:"))
	assert.Equal(t, ka, cacheKeyFrom(cfg, a))
}

func TestCacheKeyStrategies(t *testing.T) {
	get, _ := newCtx(http.MethodGet, "/records?x=1")
	head, _ := newCtx(http.MethodHead, "/records?x=2")

	route := config.CacheConfig{Prefix: "p", KeyStrategy: "route"}
	assert.Equal(t, cacheKeyFrom(route, get), cacheKeyFrom(route, head))

	methodRoute := config.CacheConfig{Prefix: "p", KeyStrategy: "method_route"}
	assert.NotEqual(t, cacheKeyFrom(methodRoute, get), cacheKeyFrom(methodRoute, head))

	routeQuery := config.CacheConfig{Prefix: "p"}
	assert.NotEqual(t, cacheKeyFrom(routeQuery, get), cacheKeyFrom(routeQuery, head))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	body := []byte(`{"id":"abc123"}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsShortInput(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{0, 0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 0, 99})
	assert.False(t, ok)
}

func TestCaptureWriterHonoursLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("defg"))

	assert.Equal(t, "abcd", cw.buf.String())
	assert.EqualValues(t, 7, cw.size)
	assert.Equal(t, "abcdefg", rec.Body.String())
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	called := 0
	h := func(c echo.Context) error { called++; return c.String(http.StatusOK, "ok") }

	c, rec := newCtx(http.MethodGet, "/records/x")
	require.NoError(t, NewRedisCache(config.CacheConfig{Enabled: true}, nil)(h)(c))
	require.NoError(t, NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, nil)(h)(c))

	assert.Equal(t, 2, called)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestBuildRateKey(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/records/abc")
	c.SetPath("/records/:id")

	assert.Equal(t, "rl:ip:192.0.2.1:route:GET /records/:id",
		buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c))
	assert.Equal(t, "rl:ip:192.0.2.1",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "IP"}, c))
	assert.Equal(t, "rl:route:GET /records/:id",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "route"}, c))
}

func TestAsInt64AndRetryAfter(t *testing.T) {
	assert.EqualValues(t, 5, asInt64(int64(5)))
	assert.EqualValues(t, 7, asInt64("7"))
	assert.EqualValues(t, 3, asInt64(3.9))
	assert.EqualValues(t, 0, asInt64(nil))

	assert.Equal(t, 1, retryAfterSeconds(1))
	assert.Equal(t, 2, retryAfterSeconds(1001))
	assert.Equal(t, 0, retryAfterSeconds(-5))
}

func TestMetricsCountsByRoute(t *testing.T) {
	m := NewMetrics()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/records/:id", func(c echo.Context) error { return c.String(http.StatusOK, "x") })
	e.GET("/metrics", m.Handler())

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`autonomi_http_requests_total{method="GET",route="/records/:id",status="200"} 2`)
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusInternalServerError, entries[1].ContextMap()["status"])
}
