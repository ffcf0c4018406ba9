package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/kodamarket/koda/internal/model"
)

// ProductRepository provides access to the product catalog.
type ProductRepository interface {
	// Create inserts a product.
	Create(ctx context.Context, p *model.Product) error
	// Get returns a product with its seller's display name.
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// Update stores editable fields of a product.
	Update(ctx context.Context, p *model.Product) error
	// Delete removes a product. Purchases referencing it are left untouched.
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns one filtered, sorted page plus the total match count.
	List(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error)
	// ListBySeller returns a seller's products, newest first.
	ListBySeller(ctx context.Context, sellerID string) ([]model.Product, error)
	// SetRating stores the aggregated rating of a product.
	SetRating(ctx context.Context, id uuid.UUID, stats model.RatingStats) error
}
