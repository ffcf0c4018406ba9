package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/kodamarket/koda/internal/model"
)

// CartRepository stores per-user shopping carts.
type CartRepository interface {
	Add(ctx context.Context, userID string, productID uuid.UUID) error
	Remove(ctx context.Context, userID string, productID uuid.UUID) error
	List(ctx context.Context, userID string) ([]model.Product, error)
	// Clear empties the cart.
	Clear(ctx context.Context, userID string) error
}

// FavoriteRepository stores per-user favorite products.
type FavoriteRepository interface {
	// Toggle adds or removes a favorite and reports whether it is now present.
	Toggle(ctx context.Context, userID string, productID uuid.UUID) (bool, error)
	List(ctx context.Context, userID string) ([]model.Product, error)
	IDs(ctx context.Context, userID string) ([]uuid.UUID, error)
}
