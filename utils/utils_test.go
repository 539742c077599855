package utils

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/inkblog/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	os.Exit(m.Run())
}

func TestTokenRoundTrip(t *testing.T) {
	token, exp, err := GenerateToken(7, "editor", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "editor", claims.Username)
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	expired, _, err := GenerateToken(1, "old", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	_, err = ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", ""))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "<b>bold</b>", Sanitize(`<b onclick="x()">bold</b><script>alert(1)</script>`))
	assert.Equal(t, "Tom & Jerry", SanitizeText("  <i>Tom</i> &amp; Jerry "))
}

func TestRevokeTokenInMemory(t *testing.T) {
	RevokeToken("tok-a", time.Now().Add(time.Minute))
	RevokeToken("tok-b", time.Now().Add(-time.Minute))
	assert.True(t, IsTokenRevoked("tok-a"))
	assert.False(t, IsTokenRevoked("tok-b"))
	assert.False(t, IsTokenRevoked("tok-c"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRequestIDFields(t *testing.T) {
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Set(requestIDKey, "req-7")
	fields := RequestIDFields(ctx)
	require.Len(t, fields, 1)
	assert.Equal(t, "request_id", fields[0].Key)
	assert.Equal(t, "req-7", fields[0].String)
}

func TestServerStopsOnContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestCacheDisabledIsNoop(t *testing.T) {
	assert.Nil(t, GetRedis())
	CacheSetJSON(CacheKeyPostList, gin.H{"items": []int{1}}, 0)
	_, ok := CacheGetBytes(CacheKeyPostList)
	assert.False(t, ok)
	InvalidateBlog()
	assert.Equal(t, "cache:blog:posts:detail:5", CacheKeyPostDetail("5"))
}

func TestUnreachableRedisFallsBack(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	SetRedis(redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond}))
	t.Cleanup(func() { SetRedis(nil) })

	CacheSetBytes(CacheKeyPostList, []byte(`{}`), time.Minute)
	_, ok := CacheGetBytes(CacheKeyPostList)
	assert.False(t, ok)

	RevokeToken("fallback-token", time.Now().Add(time.Minute))
	assert.True(t, IsTokenRevoked("fallback-token"))
}

func TestSuccessCachedWritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	SuccessCached(ctx, CacheKeyPostList, gin.H{"total": 0})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"total":0}}`, w.Body.String())
}
