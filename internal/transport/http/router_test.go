package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/listquery"
	"github.com/Gunvolt24/yote/internal/ports/mocks"
	rest "github.com/Gunvolt24/yote/internal/transport/http"
	"github.com/Gunvolt24/yote/pkg/apierr"
	"github.com/Gunvolt24/yote/pkg/httpx"
)

type noopLogger struct{}

func (noopLogger) Infof(context.Context, string, ...any)  {}
func (noopLogger) Warnf(context.Context, string, ...any)  {}
func (noopLogger) Errorf(context.Context, string, ...any) {}

func newRouter(t *testing.T) (*mocks.MockProductService, http.Handler) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockProductService(ctrl)
	h := rest.NewHandler(svc, noopLogger{}, 0)
	return svc, rest.NewRouter(h, "", "test")
}

func do(r http.Handler, method, target, body, user string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(httpx.HeaderUserID, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body httpx.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v, body=%s", err, w.Body.String())
	}
	return body.Error
}

func TestGetProduct_Found(t *testing.T) {
	svc, r := newRouter(t)
	want := &domain.Product{ID: "p-1", Title: "Lamp"}
	svc.EXPECT().GetProduct(gomock.Any(), "p-1").Return(want, nil)

	w := do(r, http.MethodGet, "/api/products/p-1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var got domain.Product
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.ID != "p-1" || got.Title != "Lamp" {
		t.Fatalf("unexpected product: %+v", got)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	svc, r := newRouter(t)
	svc.EXPECT().GetProduct(gomock.Any(), "missing").
		Return(nil, apierr.NotFound("Could not find a matching Product"))

	w := do(r, http.MethodGet, "/api/products/missing", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d, body=%s", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "Could not find a matching Product" {
		t.Fatalf("message = %q", msg)
	}
}

func TestGetProduct_ErrorCodeInBody(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"not found", apierr.NotFound("Could not find a matching Product"), apierr.CodeNotFound},
		{"query failed", apierr.QueryFailed("Error finding Product", errors.New("db down")), apierr.CodeQueryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, r := newRouter(t)
			svc.EXPECT().GetProduct(gomock.Any(), "p-1").Return(nil, tt.err)

			w := do(r, http.MethodGet, "/api/products/p-1", "", "")
			if w.Code != http.StatusNotFound {
				t.Fatalf("want 404, got %d", w.Code)
			}
			var body httpx.ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestGetProduct_InternalError(t *testing.T) {
	svc, r := newRouter(t)
	svc.EXPECT().GetProduct(gomock.Any(), "boom").Return(nil, errors.New("db error"))

	w := do(r, http.MethodGet, "/api/products/boom", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestGetDefault(t *testing.T) {
	svc, r := newRouter(t)
	svc.EXPECT().DefaultProduct(gomock.Any()).Return(domain.DefaultProduct(), nil)

	w := do(r, http.MethodGet, "/api/products/default", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var got domain.Product
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Status != domain.StatusDraft {
		t.Fatalf("default status = %q", got.Status)
	}
}

func TestListProducts_ParsesQuery(t *testing.T) {
	svc, r := newRouter(t)

	total, pages := 25, 3
	svc.EXPECT().ListProducts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q listquery.Query) (domain.ProductPage, error) {
			if !q.Paginated() || q.Skip() != 10 || q.Take() != 10 {
				t.Errorf("pagination = %+v", q.Pagination)
			}
			if len(q.Filter) != 1 || q.Filter[0].Column != "status" {
				t.Errorf("filter = %+v", q.Filter)
			}
			if len(q.Sort) != 1 || q.Sort[0].Column != "created_at" || !q.Sort[0].Desc {
				t.Errorf("sort = %+v", q.Sort)
			}
			return domain.ProductPage{
				Items:      []domain.Product{{ID: "a"}, {ID: "b"}},
				TotalCount: &total,
				TotalPages: &pages,
			}, nil
		})

	w := do(r, http.MethodGet, "/api/products?page=2&per=10&status=published&sort=-created", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var got domain.ProductPage
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got.Items) != 2 || got.TotalPages == nil || *got.TotalPages != 3 {
		t.Fatalf("unexpected page: %+v", got)
	}
}

func TestListProducts_BadQuery(t *testing.T) {
	_, r := newRouter(t)

	w := do(r, http.MethodGet, "/api/products?unknown=1", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestListMyProducts_RequiresLogin(t *testing.T) {
	svc, r := newRouter(t)

	w := do(r, http.MethodGet, "/api/products/logged-in", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}

	svc.EXPECT().ListMyProducts(gomock.Any(), gomock.Any(), "user-1").
		Return(domain.ProductPage{Items: []domain.Product{}}, nil)
	w = do(r, http.MethodGet, "/api/products/logged-in", "", "user-1")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestCreateProduct(t *testing.T) {
	svc, r := newRouter(t)

	svc.EXPECT().CreateProduct(gomock.Any(), gomock.Any(), "user-1").
		DoAndReturn(func(_ context.Context, p *domain.Product, _ string) (*domain.Product, error) {
			out := p.Clone()
			out.ID = "new-id"
			return out, nil
		})

	w := do(r, http.MethodPost, "/api/products", `{"title":"Desk"}`, "user-1")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var got domain.Product
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.ID != "new-id" || got.Title != "Desk" {
		t.Fatalf("unexpected product: %+v", got)
	}
}

func TestCreateProduct_BadPayload(t *testing.T) {
	_, r := newRouter(t)

	w := do(r, http.MethodPost, "/api/products", `{"title":`, "user-1")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d, body=%s", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "Invalid Product payload" {
		t.Fatalf("message = %q", msg)
	}
}

func TestCreateWithRequiredParam_PassesParam(t *testing.T) {
	svc, r := newRouter(t)

	svc.EXPECT().CreateWithRequiredParam(gomock.Any(), "wrong", gomock.Any(), "user-1").
		Return(nil, apierr.NotFound("Invalid requiredParam"))

	w := do(r, http.MethodPost, "/api/products/special/wrong", `{"title":"Desk"}`, "user-1")
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d, body=%s", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "Invalid requiredParam" {
		t.Fatalf("message = %q", msg)
	}
}

func TestUpdateProduct_PatchDecoded(t *testing.T) {
	svc, r := newRouter(t)

	svc.EXPECT().UpdateProduct(gomock.Any(), "p-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, patch domain.ProductPatch) (*domain.Product, error) {
			if patch.Featured == nil || !*patch.Featured || patch.Title != nil {
				t.Errorf("patch = %+v", patch)
			}
			return &domain.Product{ID: "p-1", Featured: true}, nil
		})

	w := do(r, http.MethodPut, "/api/products/p-1", `{"featured":true}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestUpdateMyProduct_UsesPrincipal(t *testing.T) {
	svc, r := newRouter(t)

	svc.EXPECT().UpdateMyProduct(gomock.Any(), "p-1", gomock.Any(), "owner").
		Return(nil, apierr.NotFound("Could not find matching Product"))

	w := do(r, http.MethodPut, "/api/products/logged-in/p-1", `{"title":"x"}`, "owner")
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteProduct(t *testing.T) {
	svc, r := newRouter(t)

	w := do(r, http.MethodDelete, "/api/products/p-1", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}

	svc.EXPECT().DeleteProduct(gomock.Any(), "p-1").Return(&domain.Product{ID: "p-1"}, nil)
	w = do(r, http.MethodDelete, "/api/products/p-1", "", "user-1")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestNoRoute_404(t *testing.T) {
	_, r := newRouter(t)

	w := do(r, http.MethodGet, "/no-such-route", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestMethodNotAllowed_405(t *testing.T) {
	_, r := newRouter(t)

	w := do(r, http.MethodPatch, "/ping", "", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d, body=%s", w.Code, w.Body.String())
	}
	if allow := w.Header().Get("Allow"); allow != "GET" {
		t.Fatalf("want Allow: GET, got %q", allow)
	}
}

func TestPing_200(t *testing.T) {
	_, r := newRouter(t)

	w := do(r, http.MethodGet, "/ping", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestMetrics_200(t *testing.T) {
	_, r := newRouter(t)

	w := do(r, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	// Содержимое может меняться — достаточно проверить, что не пусто.
	if w.Body.Len() == 0 {
		t.Fatal("metrics body is empty")
	}
}
