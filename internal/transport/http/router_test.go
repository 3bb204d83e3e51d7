package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestHealthzReportsOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := &Deps{Logger: zap.NewNop()}
	r := NewRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestMetricsRouteAbsentWithoutHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := &Deps{Logger: zap.NewNop()}
	r := NewRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected /metrics to be unregistered without a handler, got %d", w.Code)
	}
}
