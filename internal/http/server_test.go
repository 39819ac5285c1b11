package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/applyforge/applyforge-backend/internal/data/repos/testutil"
	"github.com/applyforge/applyforge-backend/internal/http/handlers"
)

func TestNewServerServesHealthcheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer(RouterConfig{
		Log:           testutil.Logger(t),
		HealthHandler: handlers.NewHealthHandler(),
	})

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	srv.Engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got=%d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("want ok body, got=%q", rec.Body.String())
	}
}
