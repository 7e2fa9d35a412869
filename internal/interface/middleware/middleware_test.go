package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-registration-service/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func mockRedisServer(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return s, rdb
}

func newLimitedEngine(rdb *redis.Client, max int, allow AllowFunc) *gin.Engine {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/users", RateLimit(rdb, max, time.Minute, KeyByIPAndPath(), allow), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BlocksAfterMax(t *testing.T) {
	_, rdb := mockRedisServer(t)
	r := newLimitedEngine(rdb, 2, nil)

	first := doGet(r, "203.0.113.7:4000")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", first.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, doGet(r, "203.0.113.7:4000").Code)

	blocked := doGet(r, "203.0.113.7:4000")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	var body response.ErrorMessage
	require.NoError(t, json.Unmarshal(blocked.Body.Bytes(), &body))
	assert.Equal(t, response.CodeTooManyRequests, body.Code)

	// other clients have their own window
	assert.Equal(t, http.StatusOK, doGet(r, "203.0.113.8:4000").Code)
}

func TestRateLimit_WindowExpires(t *testing.T) {
	s, rdb := mockRedisServer(t)
	r := newLimitedEngine(rdb, 1, nil)

	assert.Equal(t, http.StatusOK, doGet(r, "203.0.113.7:4000").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "203.0.113.7:4000").Code)

	s.FastForward(time.Minute + time.Second)

	assert.Equal(t, http.StatusOK, doGet(r, "203.0.113.7:4000").Code)
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	s, rdb := mockRedisServer(t)
	r := newLimitedEngine(rdb, 1, nil)
	s.Close()

	for i := 0; i < 3; i++ {
		w := doGet(r, "203.0.113.7:4000")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_PrivateIPBypass(t *testing.T) {
	_, rdb := mockRedisServer(t)
	r := newLimitedEngine(rdb, 1, AllowIf(true))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "10.1.2.3:4000").Code)
	}
	assert.Equal(t, http.StatusOK, doGet(r, "203.0.113.7:4000").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "203.0.113.7:4000").Code)
	assert.Nil(t, AllowIf(false))
}

func TestRateLimit_DisabledWithoutRedis(t *testing.T) {
	r := newLimitedEngine(nil, 1, nil)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "").Code)
	}
}

func doGetForwarded(r http.Handler, remote, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.RemoteAddr = remote
	req.Header.Set("X-Forwarded-For", xff)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	_, rdb := mockRedisServer(t)
	r := newLimitedEngine(rdb, 1, AllowIf(true))

	assert.Equal(t, http.StatusOK, doGetForwarded(r, "203.0.113.7:4000", "198.51.100.1").Code)
	// rotating the header does not open a new window
	assert.Equal(t, http.StatusTooManyRequests, doGetForwarded(r, "203.0.113.7:4000", "198.51.100.2").Code)
	// nor does claiming to be loopback
	assert.Equal(t, http.StatusTooManyRequests, doGetForwarded(r, "203.0.113.7:4000", "127.0.0.1").Code)
}

func TestRealIP(t *testing.T) {
	newEngine := func(trusted ...string) *gin.Engine {
		r := gin.New()
		r.Use(RealIP(trusted...))
		r.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })
		return r
	}

	// httptest requests come from 192.0.2.1
	tests := []struct {
		name    string
		trusted []string
		headers map[string]string
		want    string
	}{
		{"cloudflare via proxy", []string{"192.0.2.1"}, map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Forwarded-For": "198.51.100.2"}, "198.51.100.1"},
		{"forwarded via proxy", []string{"192.0.2.0/24"}, map[string]string{"X-Forwarded-For": "198.51.100.2"}, "198.51.100.2"},
		{"forwarded skips trusted hops", []string{"192.0.2.0/24", "10.0.0.0/8"}, map[string]string{"X-Forwarded-For": "6.6.6.6, 198.51.100.2, 10.0.0.1"}, "198.51.100.2"},
		{"x-real-ip via proxy", []string{"192.0.2.1"}, map[string]string{"X-Real-IP": "198.51.100.3"}, "198.51.100.3"},
		{"proxy without headers", []string{"192.0.2.1"}, nil, "192.0.2.1"},
		{"spoofed headers from untrusted peer", nil, map[string]string{"CF-Connecting-IP": "127.0.0.1", "X-Forwarded-For": "10.0.0.1", "X-Real-IP": "10.0.0.2"}, "192.0.2.1"},
		{"peer not in trusted range", []string{"10.0.0.0/8", "bogus"}, map[string]string{"X-Forwarded-For": "198.51.100.2"}, "192.0.2.1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			newEngine(tc.trusted...).ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Body.String())
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/id", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	generated := w.Body.String()
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Header().Get(HeaderRequestID))

	incoming := "3f1c1a58-5d6b-4c1e-9d51-1f8e2b7c9a10"
	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(HeaderRequestID, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(HeaderRequestID, "not-a-uuid")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Body.String())
}

func TestRecovery(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(Recovery(logger))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"InternalServerError","message":"Internal server error"}`, w.Body.String())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "panic recovered", hook.LastEntry().Message)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"allow all when unset", nil, "http://anything.test", "*"},
		{"listed origin", []string{"http://a.test"}, "http://a.test", "http://a.test"},
		{"unlisted origin", []string{"http://a.test"}, "http://evil.test", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tc.origins))
			r.GET("/users", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			req.Header.Set("Origin", tc.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
