package repository

import (
	"context"
	"errors"

	"github.com/sit722-devops/week07/internal/product/domain"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrDuplicateOrderEvent = errors.New("order event already applied")
)

// StockDeduction is one item of an order event to apply against stock.
type StockDeduction struct {
	ProductID int64
	Quantity  int
}

// DeductionResult reports the per-item outcome of an applied order event. Err
// is nil, ErrProductNotFound or ErrInsufficientStock.
type DeductionResult struct {
	ProductID int64
	Quantity  int
	Err       error
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]*domain.Product, error)
	UpdateProduct(ctx context.Context, p *domain.Product) error
	SetImageURL(ctx context.Context, id int64, imageURL string) error
	ApplyOrderDeductions(ctx context.Context, orderID string, deductions []StockDeduction) ([]DeductionResult, error)
	DeleteProduct(ctx context.Context, id int64) error
	Close() error
}
