package api

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sentry-vision/management-server/pkg/gate"
	"github.com/sentry-vision/management-server/pkg/user"
)

func newTestTokens(t *testing.T) *user.TokenService {
	t.Helper()
	secret := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xEE}, 32))
	ts, err := user.NewTokenService(secret, time.Hour, true, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return ts
}

func newAuthRouter(t *testing.T, pre ...gin.HandlerFunc) (*gin.Engine, *AuthHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := NewAuth(zaptest.NewLogger(t).Sugar(), newTestTokens(t))

	engine := gin.New()
	handlers := append(pre, auth.Middleware())
	engine.GET("/protected", append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"principal": c.GetString(gate.ContextPrincipal),
			"role":      c.GetString(gate.ContextRole),
		})
	})...)
	return engine, auth
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("missing token yields 401", func(t *testing.T) {
		router, _ := newAuthRouter(t)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header yields 401", func(t *testing.T) {
		router, _ := newAuthRouter(t)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, "Token abc")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token yields 401", func(t *testing.T) {
		router, _ := newAuthRouter(t)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, "Bearer not.a.token")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid or expired session token")
	})

	t.Run("valid token attaches principal and role", func(t *testing.T) {
		router, auth := newAuthRouter(t)
		token, err := auth.tokens.Issue("operator", user.RoleOperator)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, "Bearer "+token)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "operator")
		assert.Contains(t, w.Body.String(), string(user.RoleOperator))
	})

	t.Run("gate principal bypasses session auth", func(t *testing.T) {
		asGatePrincipal := func(c *gin.Context) {
			c.Set(gate.ContextPrincipal, gate.ServicePrincipal)
			c.Set(gate.ContextRole, gate.RoleAIService)
			c.Next()
		}
		router, _ := newAuthRouter(t, asGatePrincipal)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), gate.ServicePrincipal)
	})
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := NewAuth(zaptest.NewLogger(t).Sugar(), newTestTokens(t))

	engine := gin.New()
	engine.GET("/admin",
		auth.Middleware(),
		auth.RequireRole(user.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(token string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(AuthHeaderKey, "Bearer "+token)
		engine.ServeHTTP(w, req)
		return w
	}

	t.Run("matching role passes", func(t *testing.T) {
		token, err := auth.tokens.Issue("root", user.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, request(token).Code)
	})

	t.Run("other role yields 403", func(t *testing.T) {
		token, err := auth.tokens.Issue("operator", user.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, request(token).Code)
	})
}
