//go:build integration

package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cachemem "github.com/Gunvolt24/yote/internal/cache/memory"
	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/kafka"
	"github.com/Gunvolt24/yote/internal/listquery"
	pgrepo "github.com/Gunvolt24/yote/internal/repo/postgres"
	"github.com/Gunvolt24/yote/internal/testutil"
	rest "github.com/Gunvolt24/yote/internal/transport/http"
	"github.com/Gunvolt24/yote/internal/usecase"
	"github.com/Gunvolt24/yote/pkg/httpx"
	"github.com/Gunvolt24/yote/pkg/logger"
	"github.com/Gunvolt24/yote/pkg/validate"
)

// startServer — Postgres в контейнере + сервис + httptest-сервер.
func startServer(t *testing.T) (*httptest.Server, *pgrepo.ProductRepository, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	t.Cleanup(cancel)

	pg, stop, err := testutil.StartPostgresTC(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stop(context.Background()) })
	require.NoError(t, testutil.ApplyMigrationsGoose(pg.DSN))

	logg, cleanup, err := logger.NewZapLogger(false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	repo := pgrepo.NewProductRepository(pg.Pool)
	svc := usecase.NewProductService(repo, cachemem.NewLRUCacheTTL(100, time.Minute), logg,
		validate.NewProductValidator(), kafka.NoopPublisher{})

	h := rest.NewHandler(svc, logg, 2*time.Second)
	ts := httptest.NewServer(rest.NewRouter(h, "", ""))
	t.Cleanup(ts.Close)
	return ts, repo, ctx
}

func send(t *testing.T, method, url, user string, body any) *http.Response {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(httpx.HeaderUserID, user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// 1) GET /api/products/:id — 200, и 404 когда товара нет
func TestHTTP_GetProduct_TC(t *testing.T) {
	ts, repo, ctx := startServer(t)

	p := testutil.MakeProduct()
	require.NoError(t, repo.Create(ctx, &p))

	resp := send(t, http.MethodGet, ts.URL+"/api/products/"+p.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[domain.Product](t, resp)
	require.Equal(t, p.Title, got.Title)

	resp = send(t, http.MethodGet, ts.URL+"/api/products/not-existing-id", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[httpx.ErrorBody](t, resp)
	require.Equal(t, "Could not find a matching Product", body.Error)
}

// 2) POST → PUT → DELETE — полный цикл через HTTP
func TestHTTP_CreateUpdateDelete_TC(t *testing.T) {
	ts, _, _ := startServer(t)

	resp := send(t, http.MethodPost, ts.URL+"/api/products", "", map[string]any{"title": "Desk"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = send(t, http.MethodPost, ts.URL+"/api/products", "user-1",
		map[string]any{"title": "Desk", "meta": map[string]any{"color": "oak"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decode[domain.Product](t, resp)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "user-1", created.CreatedBy)
	require.Equal(t, domain.StatusDraft, created.Status)

	resp = send(t, http.MethodPut, ts.URL+"/api/products/logged-in/"+created.ID, "stranger",
		map[string]any{"title": "Stolen"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = send(t, http.MethodPut, ts.URL+"/api/products/logged-in/"+created.ID, "user-1",
		map[string]any{"featured": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[domain.Product](t, resp)
	require.True(t, updated.Featured)
	require.Equal(t, "Desk", updated.Title)

	resp = send(t, http.MethodDelete, ts.URL+"/api/products/"+created.ID, "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = send(t, http.MethodGet, ts.URL+"/api/products/"+created.ID, "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// 3) GET /api/products — пагинация, фильтры и свои товары
func TestHTTP_ListProducts_Pagination_TC(t *testing.T) {
	ts, repo, ctx := startServer(t)

	for i := 0; i < 3; i++ {
		p := testutil.MakeProduct(testutil.WithCreator("lister"), testutil.WithFeatured(true))
		require.NoError(t, repo.Create(ctx, &p))
	}
	other := testutil.MakeProduct(testutil.WithCreator("someone-else"))
	require.NoError(t, repo.Create(ctx, &other))

	resp := send(t, http.MethodGet, ts.URL+"/api/products?page=1&per=2&featured=true", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[domain.ProductPage](t, resp)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.TotalCount)
	require.Equal(t, 3, *page.TotalCount)
	require.Equal(t, 2, *page.TotalPages)

	resp = send(t, http.MethodGet, ts.URL+"/api/products/logged-in", "lister", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine := decode[domain.ProductPage](t, resp)
	require.Len(t, mine.Items, 3)
	require.Nil(t, mine.TotalCount)
	for _, p := range mine.Items {
		require.Equal(t, "lister", p.CreatedBy)
	}

	resp = send(t, http.MethodGet, ts.URL+"/api/products?per=2", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// 4) /ping, /metrics, 404 на неизвестный маршрут, 405 + Allow
func TestHTTP_Health_Metrics_404_405_TC(t *testing.T) {
	logg, cleanup, err := logger.NewZapLogger(false)
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	h := rest.NewHandler(slowService{}, logg, 2*time.Second)
	ts := httptest.NewServer(rest.NewRouter(h, "", ""))
	defer ts.Close()

	resp := send(t, http.MethodGet, ts.URL+"/ping", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "pong", string(readAll(t, resp.Body)))

	resp = send(t, http.MethodGet, ts.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, readAll(t, resp.Body)) // достаточно, что не пусто

	resp = send(t, http.MethodGet, ts.URL+"/no/such/route", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "route not found", decode[httpx.ErrorBody](t, resp).Error)

	resp = send(t, http.MethodPost, ts.URL+"/ping", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, "GET", resp.Header.Get("Allow"))
	require.Equal(t, "method not allowed", decode[httpx.ErrorBody](t, resp).Error)
}

// 5) Таймаут обработчика: сервис вернул ctx.Err() — 500 с общим сообщением
func TestHTTP_GetProduct_Timeout_500_TC(t *testing.T) {
	logg, cleanup, err := logger.NewZapLogger(false)
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	h := rest.NewHandler(slowService{}, logg, 10*time.Millisecond)
	ts := httptest.NewServer(rest.NewRouter(h, "", ""))
	defer ts.Close()

	resp := send(t, http.MethodGet, ts.URL+"/api/products/any", "", nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "Something went wrong", decode[httpx.ErrorBody](t, resp).Error)
}

// --- функции помощники ---

// slowService — всегда ждёт ctx.Done() и возвращает ошибку контекста.
type slowService struct{}

func (slowService) GetProduct(ctx context.Context, _ string) (*domain.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowService) DefaultProduct(ctx context.Context) (*domain.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowService) ListProducts(ctx context.Context, _ listquery.Query) (domain.ProductPage, error) {
	<-ctx.Done()
	return domain.ProductPage{}, ctx.Err()
}
func (slowService) ListMyProducts(ctx context.Context, _ listquery.Query, _ string) (domain.ProductPage, error) {
	<-ctx.Done()
	return domain.ProductPage{}, ctx.Err()
}
func (slowService) CreateProduct(ctx context.Context, _ *domain.Product, _ string) (*domain.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowService) CreateWithRequiredParam(ctx context.Context, _ string, _ *domain.Product, _ string) (*domain.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowService) UpdateProduct(ctx context.Context, _ string, _ domain.ProductPatch) (*domain.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowService) UpdateMyProduct(ctx context.Context, _ string, _ domain.ProductPatch, _ string) (*domain.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowService) DeleteProduct(ctx context.Context, _ string) (*domain.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// readAll — просто прочитать тело.
func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return b
}
