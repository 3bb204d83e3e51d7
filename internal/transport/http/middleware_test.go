package http

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
)

func TestWriteErrorMapsServiceErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeError(c, loopforgeerrors.NotFound("session", "abc"))

	if w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestWriteErrorFallsBackToInternalForPlainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeError(c, errPlain("boom"))

	if w.Code != 500 {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
