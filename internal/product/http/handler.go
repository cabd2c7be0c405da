package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sit722-devops/week07/internal/httpx"
	"github.com/sit722-devops/week07/internal/product/domain"
	"github.com/sit722-devops/week07/internal/product/repository"
	"github.com/sit722-devops/week07/internal/product/service"
	"github.com/sit722-devops/week07/internal/product/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxImageSize     = 10 << 20 // 10MB
)

type ProductService interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	SetImageURL(ctx context.Context, id int64, imageURL string) error
	DeleteProduct(ctx context.Context, id int64) error
}

type ProductHandler struct {
	svc     ProductService
	images  storage.ImageStore
	timeout time.Duration
}

func NewProductHandler(svc ProductService, images storage.ImageStore, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		svc:     svc,
		images:  images,
		timeout: timeout,
	}
}

type ProductRequestDTO struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// GET /products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	products, err := h.svc.ListProducts(ctx, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	httpx.RespondJSON(w, http.StatusOK, &ProductsResponse{Products: products, Limit: limit, Offset: offset})
}

// GET /products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.GetProduct(ctx, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, p)
}

// POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var dto ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	p := &domain.Product{
		Name:          dto.Name,
		Description:   dto.Description,
		Price:         dto.Price,
		StockQuantity: dto.StockQuantity,
	}
	if err := h.svc.CreateProduct(ctx, p); err != nil {
		handleServiceError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusCreated, p)
}

// PUT /products/{product_id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productID(w, r)
	if !ok {
		return
	}

	var dto ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	p := &domain.Product{
		ID:            id,
		Name:          dto.Name,
		Description:   dto.Description,
		Price:         dto.Price,
		StockQuantity: dto.StockQuantity,
	}
	if err := h.svc.UpdateProduct(ctx, p); err != nil {
		handleServiceError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, p)
}

// DELETE /products/{product_id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteProduct(ctx, id); err != nil {
		handleServiceError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusNoContent, nil)
}

// POST /products/{product_id}/image
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productID(w, r)
	if !ok {
		return
	}

	if _, err := h.svc.GetProduct(ctx, id); err != nil {
		handleServiceError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid_multipart", "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "missing_file", "file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	imageURL, err := h.images.Upload(ctx, id, header.Filename, contentType, file)
	if err != nil {
		httpx.RespondError(w, http.StatusBadGateway, "upload_failed", "could not store image")
		return
	}

	if err := h.svc.SetImageURL(ctx, id, imageURL); err != nil {
		handleServiceError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]string{"image_url": imageURL})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "product_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		httpx.RespondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		httpx.RespondError(w, http.StatusNotFound, "product_not_found", "product does not exist")
	case errors.Is(err, service.ErrInvalidProduct):
		httpx.RespondError(w, http.StatusUnprocessableEntity, "invalid_product", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		httpx.RespondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		httpx.RespondError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
