package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boomlift-maintenance/internal/auth"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestAuth(t *testing.T) (*auth.Service, *AuthMiddleware) {
	t.Helper()
	authService, err := auth.NewService("middleware-test-secret", time.Hour)
	require.NoError(t, err)
	return authService, NewAuthMiddleware(authService)
}

func tokenFor(t *testing.T, authService *auth.Service, role models.Role) string {
	t.Helper()
	token, err := authService.GenerateToken(&models.User{
		ID:       primitive.NewObjectID(),
		Username: string(role) + "-user",
		Role:     role,
	})
	require.NoError(t, err)
	return token
}

// serve runs the request through h and reports whether the inner handler ran.
func serve(h func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, bool) {
	w := httptest.NewRecorder()
	handlerCalled := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})
	h(inner).ServeHTTP(w, req)
	return w, handlerCalled
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	authService, middleware := newTestAuth(t)

	t.Run("valid token", func(t *testing.T) {
		user := &models.User{
			ID:          primitive.NewObjectID(),
			Username:    "testuser",
			DisplayName: "Riley",
			Role:        models.RoleMechanic,
		}
		token, _ := authService.GenerateToken(user)

		req := httptest.NewRequest("GET", "/api/records", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			claims, ok := GetUserFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, user.Username, claims.Username)
			assert.Equal(t, user.DisplayName, claims.DisplayName)
			assert.Equal(t, user.Role, claims.Role)
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing authorization header", func(t *testing.T) {
		w, called := serve(middleware.Authenticate, httptest.NewRequest("GET", "/api/records", nil))
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/records", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w, called := serve(middleware.Authenticate, req)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("skip auth paths", func(t *testing.T) {
		for _, path := range []string{"/api/auth/login", "/api/auth/register", "/health"} {
			w, called := serve(middleware.Authenticate, httptest.NewRequest("POST", path, nil))
			assert.True(t, called, path)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	authService, middleware := newTestAuth(t)
	chain := func(role models.Role) func(http.Handler) http.Handler {
		return func(h http.Handler) http.Handler {
			return middleware.Authenticate(middleware.RequireRole(role)(h))
		}
	}

	t.Run("admin passes any role check", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/users", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, models.RoleAdmin))
		w, called := serve(chain(models.RoleMechanic), req)
		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("installer cannot pass mechanic check", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/users", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, models.RoleInstaller))
		w, called := serve(chain(models.RoleMechanic), req)
		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no user in context", func(t *testing.T) {
		w, called := serve(middleware.RequireRole(models.RoleAdmin), httptest.NewRequest("GET", "/api/users", nil))
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthMiddleware_RequirePermission(t *testing.T) {
	authService, middleware := newTestAuth(t)
	tests := []struct {
		name       string
		role       models.Role
		permission string
		want       int
	}{
		{"admin imports", models.RoleAdmin, models.PermImportRecords, http.StatusOK},
		{"mechanic views summaries", models.RoleMechanic, models.PermViewSummaries, http.StatusOK},
		{"mechanic cannot import", models.RoleMechanic, models.PermImportRecords, http.StatusForbidden},
		{"installer submits", models.RoleInstaller, models.PermSubmitRecord, http.StatusOK},
		{"installer cannot view summaries", models.RoleInstaller, models.PermViewSummaries, http.StatusForbidden},
		{"installer cannot manage users", models.RoleInstaller, models.PermManageUsers, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/summary", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, tt.role))
			w, called := serve(func(h http.Handler) http.Handler {
				return middleware.Authenticate(middleware.RequirePermission(tt.permission)(h))
			}, req)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.want == http.StatusOK, called)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	middleware := NewRateLimitMiddleware()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	middleware.now = func() time.Time { return now }

	t.Run("rate limit not exceeded", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/records", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w, called := serve(middleware.RateLimit(5, time.Minute), req)
		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rate limit exceeded then window passes", func(t *testing.T) {
		limit := middleware.RateLimit(1, time.Minute)
		req := httptest.NewRequest("POST", "/api/records", nil)
		req.RemoteAddr = "192.168.1.2:12345"

		w, called := serve(limit, req)
		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)

		w, called = serve(limit, req)
		assert.False(t, called)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))

		now = now.Add(time.Minute)
		_, called = serve(limit, req)
		assert.True(t, called)
	})

	t.Run("forwarding headers do not reset the limit", func(t *testing.T) {
		limit := middleware.RateLimit(1, time.Hour)
		for i, ip := range []string{"10.0.0.1", "10.0.0.2, 172.16.0.1", ""} {
			req := httptest.NewRequest("POST", "/api/records", nil)
			req.RemoteAddr = "192.168.1.9:40000"
			req.Header.Set("X-Forwarded-For", ip)
			req.Header.Set("X-Real-IP", ip)
			_, called := serve(limit, req)
			assert.Equal(t, i == 0, called, "X-Forwarded-For %q", ip)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		limit := middleware.RateLimit(0, time.Minute)
		req := httptest.NewRequest("POST", "/api/records", nil)
		req.RemoteAddr = "192.168.1.3:12345"
		for i := 0; i < 10; i++ {
			_, called := serve(limit, req)
			assert.True(t, called)
		}
	})
}

func TestRateLimitMiddleware_EvictsIdleClients(t *testing.T) {
	middleware := NewRateLimitMiddleware()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	middleware.now = func() time.Time { return now }
	limit := middleware.RateLimit(3, time.Minute)

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("POST", "/api/records", nil)
		req.RemoteAddr = fmt.Sprintf("10.1.0.%d:5000", i)
		_, called := serve(limit, req)
		require.True(t, called)
	}
	assert.Len(t, middleware.requests, 20)

	now = now.Add(2 * time.Minute)
	req := httptest.NewRequest("POST", "/api/records", nil)
	req.RemoteAddr = "10.2.0.1:5000"
	_, called := serve(limit, req)
	require.True(t, called)

	assert.Len(t, middleware.requests, 1)
	assert.Contains(t, middleware.requests, "10.2.0.1")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.168.1.1:12345", "192.168.1.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"unix-socket", "unix-socket"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tt.remote
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		assert.Equal(t, tt.want, getClientIP(req), tt.remote)
	}
}

func TestGetUserFromContext(t *testing.T) {
	claims := &models.Claims{
		UserID:   "test-id",
		Username: "testuser",
		Role:     models.RoleAdmin,
	}

	retrievedClaims, ok := GetUserFromContext(WithUser(context.Background(), claims))
	assert.True(t, ok)
	assert.Equal(t, claims.UserID, retrievedClaims.UserID)
	assert.Equal(t, claims.Role, retrievedClaims.Role)

	_, ok = GetUserFromContext(context.Background())
	assert.False(t, ok)
}

func TestRequestLogger(t *testing.T) {
	var seen string
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/records", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "client-chosen")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "client-chosen", seen)
}
