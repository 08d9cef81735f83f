package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/ports"
	"github.com/Gunvolt24/yote/pkg/metrics"
)

var _ ports.ProductCache = (*ProductCache)(nil)

// ProductCache — общий для реплик кэш товаров в Redis (JSON по ключу prefix+id).
type ProductCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    ports.Logger
}

// NewProductCache — ttl <= 0 означает хранение без истечения.
func NewProductCache(client *redis.Client, prefix string, ttl time.Duration, log ports.Logger) *ProductCache {
	if ttl < 0 {
		ttl = 0
	}
	return &ProductCache{client: client, prefix: prefix, ttl: ttl, log: log}
}

func (c *ProductCache) key(id string) string { return c.prefix + id }

// Get — ошибки Redis и битые записи считаются промахом.
func (c *ProductCache) Get(ctx context.Context, id string) (*domain.Product, bool) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheOps.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheOps.WithLabelValues("error").Inc()
		c.log.Warnf(ctx, "redis get %s: %v", id, err)
		return nil, false
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.CacheOps.WithLabelValues("error").Inc()
		c.log.Warnf(ctx, "redis decode %s: %v", id, err)
		return nil, false
	}
	metrics.CacheOps.WithLabelValues("hit").Inc()
	return &p, true
}

func (c *ProductCache) Set(ctx context.Context, product *domain.Product) error {
	if product == nil || product.ID == "" {
		return nil
	}
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	if err := c.client.Set(ctx, c.key(product.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *ProductCache) Delete(ctx context.Context, id string) error {
	n, err := c.client.Del(ctx, c.key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n > 0 {
		metrics.CacheOps.WithLabelValues("invalidated").Inc()
	}
	return nil
}

// WarmUp — одна пачка через pipeline.
func (c *ProductCache) WarmUp(ctx context.Context, products []*domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pipe := c.client.Pipeline()
	queued := 0
	for _, p := range products {
		if p == nil || p.ID == "" {
			continue
		}
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal product %s: %w", p.ID, err)
		}
		pipe.Set(ctx, c.key(p.ID), data, c.ttl)
		queued++
	}
	if queued == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis warmup: %w", err)
	}
	return nil
}
