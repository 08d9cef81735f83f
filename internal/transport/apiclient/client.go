// Package apiclient — HTTP-транспорт клиентского кэша ресурсов (resource.Fetcher поверх REST API).
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/resource"
	"github.com/Gunvolt24/yote/pkg/apierr"
	"github.com/Gunvolt24/yote/pkg/ctxmeta"
	"github.com/Gunvolt24/yote/pkg/httpx"
)

const maxBodyBytes = 8 << 20

// Поля конверта списка; остальные ключи уходят в OtherData.
const (
	keyItems      = "items"
	keyTotalPages = "totalPages"
	keyTotalCount = "totalCount"
)

// Config — адрес API и ресурса.
type Config struct {
	BaseURL  string        // http://localhost:8081
	Resource string        // /api/products
	Timeout  time.Duration // таймаут одного запроса; 0 — без ограничения
	// Principal — пользователь по умолчанию; ctxmeta.WithPrincipal в контексте запроса имеет приоритет.
	Principal string
}

// Client — resource.Fetcher для одного REST-ресурса.
type Client[T resource.Identifiable] struct {
	base      string
	principal string
	http      *http.Client
}

var _ resource.Fetcher[domain.Product] = (*Client[domain.Product])(nil)

// New — клиент с otelhttp-транспортом. httpClient == nil — клиент по умолчанию.
func New[T resource.Identifiable](cfg Config, httpClient *http.Client) *Client[T] {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client[T]{
		base:      strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.Resource, "/"),
		principal: cfg.Principal,
		http:      httpClient,
	}
}

// FetchByID — GET {resource}/{id}.
func (c *Client[T]) FetchByID(ctx context.Context, id string) (*T, error) {
	var out T
	if err := c.do(ctx, http.MethodGet, c.base+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchSingle — запрос к списочному эндпоинту, результат — первый элемент.
// Пустой список — nil без ошибки.
func (c *Client[T]) FetchSingle(ctx context.Context, key string) (*T, error) {
	page, err := c.FetchList(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, nil
	}
	item := page.Items[0]
	return &item, nil
}

// FetchList — GET {resource}{key}; key вида "/endpoint?qs" или "?qs".
func (c *Client[T]) FetchList(ctx context.Context, key string) (resource.ListPage[T], error) {
	var raw map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.base+key, nil, &raw); err != nil {
		return resource.ListPage[T]{}, err
	}
	return decodePage[T](raw)
}

// Create — POST {resource}.
func (c *Client[T]) Create(ctx context.Context, item T) (T, error) {
	var out T
	err := c.do(ctx, http.MethodPost, c.base, item, &out)
	return out, err
}

// Update — PUT {resource}/{id}; id берётся из item.
func (c *Client[T]) Update(ctx context.Context, item T) (T, error) {
	var out T
	id := item.ResourceID()
	if id == "" {
		return out, fmt.Errorf("update: resource id is required: %w", apierr.ErrSomethingWentWrong)
	}
	err := c.do(ctx, http.MethodPut, c.base+"/"+url.PathEscape(id), item, &out)
	return out, err
}

// Delete — DELETE {resource}/{id}.
func (c *Client[T]) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.base+"/"+url.PathEscape(id), nil, nil)
}

// do — запрос + разбор ответа.
// 401 → ErrSessionExpired; тело {"error": msg} → apierr.Error; неразборчивый ответ → ErrSomethingWentWrong.
func (c *Client[T]) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if principal := c.principalFor(ctx); principal != "" {
		req.Header.Set(httpx.HeaderUserID, principal)
	}
	if rid, ok := ctxmeta.RequestIDFromContext(ctx); ok {
		req.Header.Set(httpx.HeaderRequestID, rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", errors.Join(apierr.ErrSomethingWentWrong, err))
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return apierr.ErrSessionExpired
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var e httpx.ErrorBody
		if json.Unmarshal(payload, &e) == nil && e.Error != "" {
			return &apierr.Error{Status: resp.StatusCode, Message: e.Error, Code: e.Code}
		}
		return apierr.Wrap(resp.StatusCode, apierr.GenericMessage, apierr.ErrSomethingWentWrong)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", errors.Join(apierr.ErrSomethingWentWrong, err))
	}
	return nil
}

func (c *Client[T]) principalFor(ctx context.Context) string {
	if p, ok := ctxmeta.PrincipalFromContext(ctx); ok {
		return p
	}
	return c.principal
}

func decodePage[T any](raw map[string]json.RawMessage) (resource.ListPage[T], error) {
	var page resource.ListPage[T]
	if raw == nil {
		return page, fmt.Errorf("decode list: %w", apierr.ErrSomethingWentWrong)
	}
	if err := unmarshalField(raw, keyItems, &page.Items); err != nil {
		return resource.ListPage[T]{}, err
	}
	if err := unmarshalField(raw, keyTotalPages, &page.TotalPages); err != nil {
		return resource.ListPage[T]{}, err
	}
	if err := unmarshalField(raw, keyTotalCount, &page.TotalCount); err != nil {
		return resource.ListPage[T]{}, err
	}
	for k, v := range raw {
		switch k {
		case keyItems, keyTotalPages, keyTotalCount:
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return resource.ListPage[T]{}, fmt.Errorf("decode list field %q: %w", k, errors.Join(apierr.ErrSomethingWentWrong, err))
		}
		if page.OtherData == nil {
			page.OtherData = map[string]any{}
		}
		page.OtherData[k] = val
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

func unmarshalField(raw map[string]json.RawMessage, key string, dst any) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("decode list field %q: %w", key, errors.Join(apierr.ErrSomethingWentWrong, err))
	}
	return nil
}
