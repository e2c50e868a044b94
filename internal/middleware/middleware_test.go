package middleware

import (
	"credlyse_backend/internal/config"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/util"
	"credlyse_backend/pkg/ratelimit"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-test-secret-test-secret"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	return cfg
}

func token(t *testing.T, id uint, role model.UserRole) string {
	t.Helper()
	u := &model.User{Email: "u@example.com", Role: role}
	u.ID = id
	tok, err := util.GenerateJWT(u, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(testConfig()), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token(t, 7, model.Student), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status: want=%d got=%d", tt.want, w.Code)
			}
		})
	}
}

func TestRoleMiddlewareAdminPasses(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AuthMiddleware(testConfig()), RoleMiddleware(model.Creator), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for role, want := range map[model.UserRole]int{
		model.Admin:   http.StatusOK,
		model.Creator: http.StatusOK,
		model.Student: http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, 1, role))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("%s: want=%d got=%d", role, want, w.Code)
		}
	}
}

func TestRateLimitByIdentity(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Policy{Name: "test", RequestsPerMinute: 1, Burst: 2})

	r := gin.New()
	r.Use(TryAuthMiddleware(testConfig()), RateLimit(limiter, "/health"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(path, auth, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		if auth != "" {
			req.Header.Set("Authorization", "Bearer "+auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do("/x", "", "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: want=200 got=%d", i+1, w.Code)
		}
	}
	w := do("/x", "", "10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: want=429 got=%d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("Retry-After: want=60 got=%q", got)
	}

	if w := do("/health", "", "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("exempt path limited: %d", w.Code)
	}
	if w := do("/x", "", "10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Fatalf("other ip should have its own bucket: %d", w.Code)
	}
	// same address, but authenticated: keyed by user instead
	if w := do("/x", token(t, 42, model.Student), "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("authenticated user should have its own bucket: %d", w.Code)
	}
}
