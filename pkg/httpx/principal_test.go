package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/yote/pkg/apierr"
	"github.com/Gunvolt24/yote/pkg/httpx"
)

type noopLogger struct{}

func (noopLogger) Infof(context.Context, string, ...any)  {}
func (noopLogger) Warnf(context.Context, string, ...any)  {}
func (noopLogger) Errorf(context.Context, string, ...any) {}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(httpx.PrincipalMiddleware())
	return r
}

func TestRequireLogin(t *testing.T) {
	r := newEngine()
	r.GET("/mine", httpx.RequireLogin(), func(c *gin.Context) {
		c.String(http.StatusOK, httpx.Principal(c))
	})

	// аноним — 401
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mine", http.NoBody))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}
	var body httpx.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error != "Unauthorized" {
		t.Fatalf("unexpected body %s (err=%v)", w.Body.String(), err)
	}

	// пробельный заголовок — тоже аноним
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/mine", http.NoBody)
	req.Header.Set(httpx.HeaderUserID, "  ")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("blank header: want 401, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/mine", http.NoBody)
	req.Header.Set(httpx.HeaderUserID, "u-1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "u-1" {
		t.Fatalf("want 200 u-1, got %d %q", w.Code, w.Body.String())
	}
}

func TestAbortWithError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"typed", apierr.NotFound("Could not find a matching Product"), http.StatusNotFound, "Could not find a matching Product"},
		{"untyped", errors.New("pq: connection refused"), http.StatusInternalServerError, apierr.GenericMessage},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine()
			r.GET("/x", func(c *gin.Context) { httpx.AbortWithError(c, noopLogger{}, tt.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))
			if w.Code != tt.wantStatus {
				t.Fatalf("want %d, got %d", tt.wantStatus, w.Code)
			}
			var body httpx.ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error != tt.wantMsg {
				t.Fatalf("unexpected body %s", w.Body.String())
			}
		})
	}
}
