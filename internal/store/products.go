package store

import (
	"context"
	"fmt"

	"github.com/roach88/agora/internal/model"
)

// CreateProduct registers a product with zero sales.
func (s *Store) CreateProduct(ctx context.Context, productID int64, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product (product_id, product_name, sales) VALUES (?, ?, 0)
	`, productID, name)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// ProductByName reads a product. Returns ErrNotFound when absent.
func (s *Store) ProductByName(ctx context.Context, name string) (model.Product, error) {
	var p model.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT product_id, product_name, sales FROM product WHERE product_name = ?
	`, name).Scan(&p.ProductID, &p.ProductName, &p.Sales)
	if err != nil {
		return model.Product{}, fmt.Errorf("read product %q: %w", name, notFound(err))
	}
	return p, nil
}

// AddSales increments a product's sales counter.
func (s *Store) AddSales(ctx context.Context, productID, quantity int64) error {
	return s.adjustCounter(ctx, "product", "product_id", "sales", productID, quantity)
}
