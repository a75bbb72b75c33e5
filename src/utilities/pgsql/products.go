package pgsql

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// GetProducts lists every distinct (vendor, product) pair in the store.
func GetProducts(ctx context.Context, db *bun.DB) ([]Product, error) {
	var products []Product
	err := db.NewSelect().Model((*Cve)(nil)).
		Column("vendor", "product").
		Distinct().
		Order("vendor").
		Order("product").
		Scan(ctx, &products)
	if err != nil {
		return nil, fmt.Errorf("error fetching products: %w", err)
	}
	return products, nil
}

// SearchProducts lists the distinct pairs whose product name contains
// the query substring.
func SearchProducts(ctx context.Context, db *bun.DB, query string) ([]Product, error) {
	var products []Product
	err := db.NewSelect().Model((*Cve)(nil)).
		Column("vendor", "product").
		Distinct().
		Where("product LIKE ?", "%"+query+"%").
		Order("vendor").
		Order("product").
		Scan(ctx, &products)
	if err != nil {
		return nil, fmt.Errorf("error searching products: %w", err)
	}
	return products, nil
}
