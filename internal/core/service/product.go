package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yndnr/prodadmin-go/internal/core/domain"
)

// ProductsPath is the product collection endpoint.
const ProductsPath = "/api/products"

// productWire is the backend representation of a product. Responses carry
// the stock in stockQuantity; older payloads used quantity.
type productWire struct {
	ID            int64   `json:"id,omitempty"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	Quantity      *int    `json:"quantity,omitempty"`
	StockQuantity *int    `json:"stockQuantity,omitempty"`
	Active        *bool   `json:"active,omitempty"`
}

func (w productWire) toDomain() domain.Product {
	p := domain.Product{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Price:       w.Price,
		Active:      true,
	}
	switch {
	case w.StockQuantity != nil:
		p.Quantity = *w.StockQuantity
	case w.Quantity != nil:
		p.Quantity = *w.Quantity
	}
	if w.Active != nil {
		p.Active = *w.Active
	}
	return p
}

// wireInput normalises a form submission: quantity is mirrored into
// stockQuantity and the product is always active.
func wireInput(in domain.ProductInput) productWire {
	qty := in.Quantity
	active := true
	return productWire{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		Quantity:      &qty,
		StockQuantity: &qty,
		Active:        &active,
	}
}

// ProductService manages products through an Executor.
type ProductService struct {
	exec Executor
}

// NewProductService creates a ProductService.
func NewProductService(exec Executor) *ProductService {
	return &ProductService{exec: exec}
}

// ============================================================================
// Queries
// ============================================================================

// List returns all products, or only active ones when activeOnly is set.
func (s *ProductService) List(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	var q url.Values
	if activeOnly {
		q = url.Values{"activeOnly": {"true"}}
	}

	var wire []productWire
	if err := s.exec.Execute(ctx, Request{
		Operation:      "product.list",
		Method:         http.MethodGet,
		Path:           ProductsPath,
		Query:          q,
		FailureMessage: fixedFailure("Failed to fetch products"),
	}, &wire); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(wire))
	for _, w := range wire {
		products = append(products, w.toDomain())
	}
	return products, nil
}

// Get returns one product.
func (s *ProductService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var w productWire
	if err := s.exec.Execute(ctx, Request{
		Operation:      "product.get",
		Method:         http.MethodGet,
		Path:           productPath(id, ""),
		FailureMessage: fixedFailure("Failed to fetch product"),
	}, &w); err != nil {
		return nil, err
	}

	p := w.toDomain()
	return &p, nil
}

// ============================================================================
// Mutations
// ============================================================================

// Create validates in and creates a product.
func (s *ProductService) Create(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var w productWire
	if err := s.exec.Execute(ctx, Request{
		Operation:      "product.create",
		Method:         http.MethodPost,
		Path:           ProductsPath + "/create",
		Body:           wireInput(in),
		FailureMessage: fixedFailure("Failed to create product"),
	}, &w); err != nil {
		return nil, err
	}

	p := w.toDomain()
	return &p, nil
}

// Update validates in and replaces the editable fields of a product.
func (s *ProductService) Update(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var w productWire
	if err := s.exec.Execute(ctx, Request{
		Operation:      "product.update",
		Method:         http.MethodPut,
		Path:           productPath(id, "update"),
		Body:           wireInput(in),
		FailureMessage: fixedFailure("Failed to update product"),
	}, &w); err != nil {
		return nil, err
	}

	p := w.toDomain()
	return &p, nil
}

// Delete removes a product. The backend answers 204.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}

	return s.exec.Execute(ctx, Request{
		Operation: "product.delete",
		Method:    http.MethodDelete,
		Path:      productPath(id, "delete"),
		FailureMessage: func(status int) string {
			return fmt.Sprintf("Failed to delete product (Status: %d)", status)
		},
	}, nil)
}

// UpdateStock sets the stock quantity of a product.
func (s *ProductService) UpdateStock(ctx context.Context, id int64, quantity int) (*domain.Product, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, domain.ErrInvalidInput.WithDetails("Stock quantity must be greater than or equal to 0")
	}

	var w productWire
	if err := s.exec.Execute(ctx, Request{
		Operation:      "product.stock",
		Method:         http.MethodPatch,
		Path:           productPath(id, "stock"),
		Query:          url.Values{"quantity": {strconv.Itoa(quantity)}},
		FailureMessage: fixedFailure("Failed to update stock"),
	}, &w); err != nil {
		return nil, err
	}

	p := w.toDomain()
	return &p, nil
}

func productPath(id int64, action string) string {
	p := ProductsPath + "/" + strconv.FormatInt(id, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

func validateID(id int64) error {
	if id <= 0 {
		return domain.ErrInvalidInput.WithDetails(fmt.Sprintf("product id must be positive, got %d", id))
	}
	return nil
}

func fixedFailure(msg string) func(int) string {
	return func(status int) string {
		return fmt.Sprintf("%s (Status: %d)", msg, status)
	}
}
