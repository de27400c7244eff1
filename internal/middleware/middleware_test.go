package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuth() *service.AuthService {
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
	return service.NewAuthService(cfg, []model.User{
		{ID: "1", Email: "student@icc.edu", Role: model.RoleStudent, Status: model.UserStatusActive},
		{ID: "2", Email: "faculty@icc.edu", Role: model.RoleFaculty, Status: model.UserStatusActive},
	}, nil)
}

func login(t *testing.T, auth *service.AuthService, email string) string {
	t.Helper()
	token, _, err := auth.Login(context.Background(), email, "pw")
	require.NoError(t, err)
	return token
}

func TestRequireJWT(t *testing.T) {
	auth := newAuth()
	r := gin.New()
	r.GET("/me", RequireJWT(auth), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).UserID)
	})

	token := login(t, auth, "student@icc.edu")

	tests := []struct {
		name     string
		target   string
		header   string
		wantCode int
		wantBody string
	}{
		{"bearer header", "/me", "Bearer " + token, http.StatusOK, "1"},
		{"query fallback", "/me?token=" + token, "", http.StatusOK, "1"},
		{"missing", "/me", "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"garbage", "/me", "Bearer nope", http.StatusUnauthorized, "TOKEN_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRequireJWT_RevokedToken(t *testing.T) {
	auth := newAuth()
	r := gin.New()
	r.GET("/me", RequireJWT(auth), func(c *gin.Context) { c.Status(http.StatusOK) })

	token := login(t, auth, "student@icc.edu")
	claims, err := auth.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	require.NoError(t, auth.Revoke(context.Background(), claims))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REVOKED")
}

func TestRequireManager(t *testing.T) {
	auth := newAuth()
	r := gin.New()
	r.GET("/admin", RequireJWT(auth), RequireManager(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for email, want := range map[string]int{
		"student@icc.edu": http.StatusForbidden,
		"faculty@icc.edu": http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+login(t, auth, email))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, email)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("ip:1"), "request %d", i)
	}
	assert.False(t, rl.Allow("ip:1"))
	assert.True(t, rl.Allow("ip:2"), "keys are independent")
}

func TestRateLimiter_Middleware(t *testing.T) {
	r := gin.New()
	r.POST("/login", NewRateLimiter(1, time.Minute).Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestBrotli(t *testing.T) {
	long := strings.Repeat("exam ", 500)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/long", func(c *gin.Context) { c.String(http.StatusOK, long) })
	r.GET("/short", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	t.Run("long body is compressed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/long", nil)
		req.Header.Set("Accept-Encoding", "gzip, br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, "br", w.Header().Get("Content-Encoding"))
		body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
		require.NoError(t, err)
		assert.Equal(t, long, string(body))
	})

	t.Run("short body is plain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/short", nil)
		req.Header.Set("Accept-Encoding", "br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("q=0 refuses brotli", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/long", nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=0")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, long, w.Body.String())
	})

	t.Run("event stream response is not buffered", func(t *testing.T) {
		r := gin.New()
		r.Use(Brotli())
		r.GET("/monitor", func(c *gin.Context) {
			c.Header("Content-Type", "text/event-stream")
			c.Status(http.StatusOK)
			_, _ = c.Writer.WriteString("data: violation\n\n")
			c.Writer.Flush()
		})

		req := httptest.NewRequest(http.MethodGet, "/monitor", nil)
		req.Header.Set("Accept-Encoding", "br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, "data: violation\n\n", w.Body.String())
		assert.True(t, w.Flushed)
	})

	t.Run("event stream is skipped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/long", nil)
		req.Header.Set("Accept-Encoding", "br")
		req.Header.Set("Accept", "text/event-stream")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, long, w.Body.String())
	})
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/session", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
