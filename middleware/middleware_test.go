package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pomtime/rewards/config"
	"github.com/pomtime/rewards/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/x", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"user_id": ctx.GetUint(ContextUserIDKey)})
	})
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "mw-secret"})
	utils.SetRedis(nil)
	r := newEngine(AuthRequired())

	tok, err := utils.GenerateToken(3, "mochi", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token "+tok).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer garbage").Code)

	w := do(r, "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":3`)

	utils.RevokeToken(context.Background(), tok, time.Now().Add(time.Hour))
	w = do(r, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token revoked")
}

func TestRateLimiter_PerCaller(t *testing.T) {
	rl := NewRateLimiter(4) // burst 2
	r := newEngine(func(ctx *gin.Context) {
		if uid := ctx.GetHeader("X-User"); uid == "1" {
			ctx.Set(ContextUserIDKey, uint(1))
		}
		ctx.Next()
	}, rl.Middleware())

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("1"))
	assert.Equal(t, http.StatusOK, call("1"))
	assert.Equal(t, http.StatusTooManyRequests, call("1"))
	// Anonymous callers are keyed by IP and have their own bucket.
	assert.Equal(t, http.StatusOK, call(""))
}

type fakeRegistrar struct {
	calls int
	err   error
}

func (f *fakeRegistrar) Register(_ context.Context, _ uint, _ string) error {
	f.calls++
	return f.err
}

func TestEnsureAccount(t *testing.T) {
	reg := &fakeRegistrar{}
	setUser := func(ctx *gin.Context) {
		ctx.Set(ContextUserIDKey, uint(5))
		ctx.Set(ContextUsernameKey, ctx.GetHeader("X-Name"))
		ctx.Next()
	}
	r := newEngine(setUser, EnsureAccount(reg))

	call := func(name string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Name", name)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, 1, reg.calls, "known users are not re-registered")
	assert.Equal(t, http.StatusOK, call("b"))
	assert.Equal(t, 2, reg.calls, "a rename registers again")

	failing := newEngine(setUser, EnsureAccount(&fakeRegistrar{err: errors.New("db down")}))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	failing.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
