package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	jm, err := NewJWTManager("test-secret")
	require.NoError(t, err)
	ctx := context.Background()

	token, err := jm.GenerateToken(ctx, "user-1", "qa@example.com", []string{"user", "admin"}, time.Hour)
	require.NoError(t, err)

	claims, err := jm.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.True(t, claims.HasRole("admin"))
	assert.False(t, claims.HasRole("auditor"))

	refreshed, refreshedFor, err := jm.RefreshToken(ctx, token, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshedFor.UserID)
	_, err = jm.ValidateToken(ctx, refreshed)
	assert.NoError(t, err)

	_, _, err = jm.RefreshToken(ctx, "not-a-token", time.Hour)
	assert.ErrorContains(t, err, "cannot refresh invalid token")
}

func TestJWTManager_Rejects(t *testing.T) {
	_, err := NewJWTManager("")
	assert.Error(t, err)

	jm, err := NewJWTManager("test-secret")
	require.NoError(t, err)
	ctx := context.Background()

	expired, err := jm.GenerateToken(ctx, "user-1", "qa", nil, -time.Minute)
	require.NoError(t, err)
	_, err = jm.ValidateToken(ctx, expired)
	assert.Error(t, err)

	token, err := jm.GenerateToken(ctx, "user-1", "qa", nil, time.Hour)
	require.NoError(t, err)
	require.NoError(t, jm.RotateSigningKey(ctx, "rotated"))
	_, err = jm.ValidateToken(ctx, token)
	assert.Error(t, err, "old tokens stop validating after rotation")
	assert.Error(t, jm.RotateSigningKey(ctx, ""))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jm, err := NewJWTManager("test-secret")
	require.NoError(t, err)
	logger := zap.NewNop()
	ctx := context.Background()

	userToken, _ := jm.GenerateToken(ctx, "user-1", "qa", []string{"user"}, time.Hour)
	adminToken, _ := jm.GenerateToken(ctx, "admin-1", "lead", []string{"user", "admin"}, time.Hour)

	router := gin.New()
	router.GET("/private", RequireAuth(jm, logger), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	router.GET("/admin", RequireAuth(jm, logger), RequireRole("admin", logger), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/optional", OptionalAuth(jm, logger), func(c *gin.Context) {
		c.String(http.StatusOK, "user=%s", UserID(c))
	})

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"no header", "/private", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "/private", "Basic x", http.StatusUnauthorized, "Invalid authorization header format"},
		{"bad token", "/private", "Bearer nope", http.StatusUnauthorized, "Invalid or expired token"},
		{"valid", "/private", "Bearer " + userToken, http.StatusOK, "user-1"},
		{"missing role", "/admin", "Bearer " + userToken, http.StatusForbidden, "FORBIDDEN"},
		{"has role", "/admin", "Bearer " + adminToken, http.StatusOK, "ok"},
		{"optional anonymous", "/optional", "", http.StatusOK, "user="},
		{"optional bad token", "/optional", "Bearer nope", http.StatusOK, "user="},
		{"optional query token", "/optional?token=" + userToken, "", http.StatusOK, "user=user-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}
