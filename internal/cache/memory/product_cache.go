package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/ports"
	"github.com/Gunvolt24/yote/pkg/metrics"
)

var _ ports.ProductCache = (*LRUCacheTTL)(nil)

// LRUCacheTTL — in-memory LRU с TTL поверх golang-lru (expirable).
// Хранит и отдаёт копии товаров.
type LRUCacheTTL struct {
	lru *expirable.LRU[string, *domain.Product]
}

// NewLRUCacheTTL — capacity <= 0 трактуется как 1; ttl <= 0 — без истечения.
func NewLRUCacheTTL(capacity int, ttl time.Duration) *LRUCacheTTL {
	if capacity <= 0 {
		capacity = 1
	}
	c := &LRUCacheTTL{}
	c.lru = expirable.NewLRU[string, *domain.Product](capacity, func(string, *domain.Product) {
		metrics.CacheSize.Set(float64(c.lru.Len()))
	}, ttl)
	return c
}

func (c *LRUCacheTTL) Get(_ context.Context, id string) (*domain.Product, bool) {
	p, ok := c.lru.Get(id)
	if !ok {
		metrics.CacheOps.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheOps.WithLabelValues("hit").Inc()
	return p.Clone(), true
}

func (c *LRUCacheTTL) Set(_ context.Context, product *domain.Product) error {
	if product == nil || product.ID == "" {
		return nil
	}
	if evicted := c.lru.Add(product.ID, product.Clone()); evicted {
		metrics.CacheOps.WithLabelValues("evicted").Inc()
	}
	metrics.CacheSize.Set(float64(c.lru.Len()))
	return nil
}

func (c *LRUCacheTTL) Delete(_ context.Context, id string) error {
	if c.lru.Remove(id) {
		metrics.CacheOps.WithLabelValues("invalidated").Inc()
	}
	return nil
}

// WarmUp — загрузка пачки товаров; прерывается по отмене контекста.
func (c *LRUCacheTTL) WarmUp(ctx context.Context, products []*domain.Product) error {
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Set(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Len — текущее число записей (включая ещё не вычищенные просроченные).
func (c *LRUCacheTTL) Len() int { return c.lru.Len() }
