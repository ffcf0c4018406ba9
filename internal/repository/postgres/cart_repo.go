package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/kodamarket/koda/internal/model"
)

// CartRepo implements CartRepository using PostgreSQL.
type CartRepo struct{ db *DB }

// NewCartRepo constructs a cart repository.
func NewCartRepo(db *DB) *CartRepo { return &CartRepo{db: db} }

// Add puts a product in the cart; adding twice is a no-op.
func (r *CartRepo) Add(ctx context.Context, userID string, productID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO cart_items (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, productID)
	return err
}

// Remove drops a product from the cart.
func (r *CartRepo) Remove(ctx context.Context, userID string, productID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	return err
}

// List returns the cart content in insertion order.
func (r *CartRepo) List(ctx context.Context, userID string) ([]model.Product, error) {
	rows, err := r.db.Pool.Query(ctx,
		productSelect+` JOIN cart_items c ON c.product_id = p.id WHERE c.user_id=$1 ORDER BY c.added_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// Clear empties the cart.
func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}

// FavoriteRepo implements FavoriteRepository using PostgreSQL.
type FavoriteRepo struct{ db *DB }

// NewFavoriteRepo constructs a favorites repository.
func NewFavoriteRepo(db *DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// Toggle removes the favorite if present, otherwise adds it.
func (r *FavoriteRepo) Toggle(ctx context.Context, userID string, productID uuid.UUID) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM favorites WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}
	if _, err := r.db.Pool.Exec(ctx,
		`INSERT INTO favorites (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, productID); err != nil {
		return false, err
	}
	return true, nil
}

// List returns favorite products, most recent first.
func (r *FavoriteRepo) List(ctx context.Context, userID string) ([]model.Product, error) {
	rows, err := r.db.Pool.Query(ctx,
		productSelect+` JOIN favorites f ON f.product_id = p.id WHERE f.user_id=$1 ORDER BY f.added_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// IDs returns the ids of favorite products.
func (r *FavoriteRepo) IDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT product_id FROM favorites WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
