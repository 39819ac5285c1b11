package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/applyforge/applyforge-backend/internal/data/repos/testutil"
	"github.com/applyforge/applyforge-backend/internal/platform/requestdata"
)

func signToken(t *testing.T, secret, role string, userID, sessionID uuid.UUID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id":    userID.String(),
		"session_id": sessionID.String(),
		"role":       role,
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAuthRouter(t *testing.T) (*gin.Engine, *AuthMiddleware, *requestdata.RequestData) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	am, err := NewAuthMiddleware(testutil.Logger(t))
	if err != nil {
		t.Fatalf("NewAuthMiddleware: %v", err)
	}

	var captured requestdata.RequestData
	r := gin.New()
	protected := r.Group("/", am.RequireAuth())
	protected.GET("/me", func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		captured = *rd
		c.Status(http.StatusOK)
	})
	admin := protected.Group("/admin", am.RequireAdmin())
	admin.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	return r, am, &captured
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	r, _, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got=%d", rec.Code)
	}
}

func TestRequireAuthRejectsBadSignature(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	token := signToken(t, "wrong-secret", requestdata.RoleUser, uuid.New(), uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got=%d", rec.Code)
	}
}

func TestRequireAuthAttachesRequestData(t *testing.T) {
	r, _, captured := newAuthRouter(t)
	userID, sessionID := uuid.New(), uuid.New()
	token := signToken(t, "test-secret", requestdata.RoleUser, userID, sessionID)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got=%d", rec.Code)
	}
	if captured.UserID != userID || captured.SessionID != sessionID {
		t.Fatalf("request data mismatch: %+v", captured)
	}
	if captured.Role != requestdata.RoleUser {
		t.Fatalf("want user role, got=%q", captured.Role)
	}
}

func TestRequireAdminBlocksRegularUsers(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	token := signToken(t, "test-secret", requestdata.RoleUser, uuid.New(), uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got=%d", rec.Code)
	}
}

func TestRequireAdminAllowsAdmins(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	token := signToken(t, "test-secret", requestdata.RoleAdmin, uuid.New(), uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got=%d", rec.Code)
	}
}
