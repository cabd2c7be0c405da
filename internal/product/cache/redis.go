package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sit722-devops/week07/internal/product/domain"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, id int64) (*domain.Product, error) {
	data, err := r.client.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var p domain.Product
	if e2 := json.Unmarshal(data, &p); e2 != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", e2)
	}

	return &p, nil
}

func (r RedisCache) Set(ctx context.Context, p *domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	if e2 := r.client.Set(ctx, productKey(p.ID), data, r.ttl()).Err(); e2 != nil {
		return fmt.Errorf("redis set failed: %w", e2)
	}
	return nil
}

func (r RedisCache) GetList(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	data, err := r.client.Get(ctx, listKey(limit, offset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var products []*domain.Product
	if e2 := json.Unmarshal(data, &products); e2 != nil {
		return nil, fmt.Errorf("unmarshal product list failed: %w", e2)
	}

	return products, nil
}

func (r RedisCache) SetList(ctx context.Context, limit, offset int, products []*domain.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal product list failed: %w", err)
	}

	if e2 := r.client.Set(ctx, listKey(limit, offset), data, r.ttl()).Err(); e2 != nil {
		return fmt.Errorf("redis set failed: %w", e2)
	}
	return nil
}

// Invalidate drops the single-product entry and every cached listing page.
// Listing pages are tracked with a scan over the list key prefix.
func (r RedisCache) Invalidate(ctx context.Context, id int64) error {
	if err := r.client.Del(ctx, productKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	iter := r.client.Scan(ctx, 0, "products:list:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return nil
}

func (r RedisCache) ttl() time.Duration {
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	return r.baseTTL + jitter
}

func productKey(id int64) string {
	return fmt.Sprintf("products:%d", id)
}

func listKey(limit, offset int) string {
	return fmt.Sprintf("products:list:%d:%d", limit, offset)
}
