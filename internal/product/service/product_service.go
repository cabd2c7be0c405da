package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sit722-devops/week07/internal/product/cache"
	"github.com/sit722-devops/week07/internal/product/domain"
	"github.com/sit722-devops/week07/internal/product/repository"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidProduct = errors.New("invalid product")

type ProductService struct {
	repo   repository.ProductRepository
	cache  cache.ProductCache
	logger *slog.Logger
	sfg    singleflight.Group // Prevents cache stampede
}

func NewProductService(repo repository.ProductRepository, cache cache.ProductCache, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func (s *ProductService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(fmt.Sprintf("product:%d", id), func() (interface{}, error) {
		p, err := s.cache.Get(ctx, id)
		if err == nil {
			return p, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get error", "error", err) // log cache error but continue
		}

		p, errGet := s.repo.GetProductByID(ctx, id)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), p); errSet != nil {
				s.logger.Warn("cache set error", "error", errSet)
			}
		}()

		return p, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Product), nil
}

func (s *ProductService) ListProducts(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	v, err, _ := s.sfg.Do(fmt.Sprintf("list:%d:%d", limit, offset), func() (interface{}, error) {
		products, err := s.cache.GetList(ctx, limit, offset)
		if err == nil {
			return products, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get error", "error", err)
		}

		products, errList := s.repo.ListProducts(ctx, limit, offset)
		if errList != nil {
			return nil, errList
		}

		go func() {
			if errSet := s.cache.SetList(context.Background(), limit, offset, products); errSet != nil {
				s.logger.Warn("cache set error", "error", errSet)
			}
		}()

		return products, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]*domain.Product), nil
}

func (s *ProductService) CreateProduct(ctx context.Context, p *domain.Product) error {
	if err := validate(p); err != nil {
		return err
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return err
	}

	s.invalidate(p.ID)
	return nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, p *domain.Product) error {
	if err := validate(p); err != nil {
		return err
	}

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return err
	}

	s.invalidate(p.ID)
	return nil
}

func (s *ProductService) SetImageURL(ctx context.Context, id int64, imageURL string) error {
	if err := s.repo.SetImageURL(ctx, id, imageURL); err != nil {
		return err
	}

	s.invalidate(id)
	return nil
}

// ApplyOrderDeductions applies one order event's stock deductions exactly
// once; a replayed event surfaces repository.ErrDuplicateOrderEvent.
func (s *ProductService) ApplyOrderDeductions(ctx context.Context, orderID string, deductions []repository.StockDeduction) ([]repository.DeductionResult, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidProduct)
	}
	for _, d := range deductions {
		if d.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidProduct)
		}
	}

	results, err := s.repo.ApplyOrderDeductions(ctx, orderID, deductions)
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		if res.Err == nil {
			s.invalidate(res.ProductID)
		}
	}
	return results, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.invalidate(id)
	return nil
}

func validate(p *domain.Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	if p.StockQuantity < 0 {
		return fmt.Errorf("%w: stock_quantity must not be negative", ErrInvalidProduct)
	}
	return nil
}

func (s *ProductService) invalidate(id int64) {
	go func() {
		if err := s.cache.Invalidate(context.Background(), id); err != nil {
			s.logger.Warn("cache invalidate error", "error", err)
		}
	}()
}
