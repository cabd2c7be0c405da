package cache

import (
	"context"
	"errors"

	"github.com/sit722-devops/week07/internal/product/domain"
)

type ProductCache interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Set(ctx context.Context, p *domain.Product) error
	GetList(ctx context.Context, limit, offset int) ([]*domain.Product, error)
	SetList(ctx context.Context, limit, offset int, products []*domain.Product) error
	Invalidate(ctx context.Context, id int64) error
}

var ErrCacheMiss = errors.New("cache miss")
