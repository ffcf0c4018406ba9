package postgres

import (
	"context"
	"errors"
	"math"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
)

// ReviewRepo implements ReviewRepository using PostgreSQL.
type ReviewRepo struct{ db *DB }

// NewReviewRepo constructs a review repository.
func NewReviewRepo(db *DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewCols = `id, product_id, user_id, user_name, kind, rating, parent_id, comment, created_at, updated_at`

func scanReview(row pgx.Row) (*model.Review, error) {
	var (
		rv   model.Review
		kind string
	)
	if err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.UserName, &kind, &rv.Rating, &rv.ParentID,
		&rv.Comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	rv.Kind = model.ReviewKind(kind)
	return &rv, nil
}

// UpsertReview creates or replaces the user's review; rv.ID is set to the stored row's id.
func (r *ReviewRepo) UpsertReview(ctx context.Context, rv *model.Review) error {
	const q = `
INSERT INTO reviews (id, product_id, user_id, user_name, kind, rating, comment)
VALUES ($1, $2, $3, $4, 'review', $5, $6)
ON CONFLICT (product_id, user_id) WHERE kind = 'review' DO UPDATE SET
  user_name = EXCLUDED.user_name,
  rating = EXCLUDED.rating,
  comment = EXCLUDED.comment,
  updated_at = now()
RETURNING id, created_at, updated_at`
	return r.db.Pool.QueryRow(ctx, q, rv.ID, rv.ProductID, rv.UserID, rv.UserName, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
}

// Create inserts a comment, question or reply.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	const q = `
INSERT INTO reviews (id, product_id, user_id, user_name, kind, parent_id, comment)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`
	return r.db.Pool.QueryRow(ctx, q, rv.ID, rv.ProductID, rv.UserID, rv.UserName, string(rv.Kind), rv.ParentID, rv.Comment).
		Scan(&rv.CreatedAt, &rv.UpdatedAt)
}

// Get loads one record by id.
func (r *ReviewRepo) Get(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	return scanReview(r.db.Pool.QueryRow(ctx, `SELECT `+reviewCols+` FROM reviews WHERE id=$1`, id))
}

// UpdateComment rewrites a record's text.
func (r *ReviewRepo) UpdateComment(ctx context.Context, id uuid.UUID, comment string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE reviews SET comment=$2, updated_at=now() WHERE id=$1`, id, comment)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a record; replies go with it through ON DELETE CASCADE.
func (r *ReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM reviews WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Stats recomputes average and count over review-kind rows, average rounded to one decimal.
func (r *ReviewRepo) Stats(ctx context.Context, productID uuid.UUID) (model.RatingStats, error) {
	const q = `SELECT COALESCE(AVG(rating)::float8, 0), COUNT(*) FROM reviews WHERE product_id=$1 AND kind='review'`
	var (
		avg   float64
		count int
	)
	if err := r.db.Pool.QueryRow(ctx, q, productID).Scan(&avg, &count); err != nil {
		return model.RatingStats{}, err
	}
	if count == 0 {
		return model.RatingStats{}, nil
	}
	return model.RatingStats{Average: math.Round(avg*10) / 10, Count: count}, nil
}

// ListByProduct returns all records of a product, oldest first.
func (r *ReviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Review, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+reviewCols+` FROM reviews WHERE product_id=$1 ORDER BY created_at ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}
	return out, rows.Err()
}
