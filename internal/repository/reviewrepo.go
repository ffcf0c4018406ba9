package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/kodamarket/koda/internal/model"
)

// ReviewRepository stores reviews, comments, questions and replies.
type ReviewRepository interface {
	// UpsertReview creates or replaces the user's single review of a product.
	UpsertReview(ctx context.Context, r *model.Review) error
	// Create inserts a comment, question or reply.
	Create(ctx context.Context, r *model.Review) error
	// Get loads one record.
	Get(ctx context.Context, id uuid.UUID) (*model.Review, error)
	// UpdateComment rewrites the text of a record.
	UpdateComment(ctx context.Context, id uuid.UUID, comment string) error
	// Delete removes a record and its replies.
	Delete(ctx context.Context, id uuid.UUID) error
	// Stats aggregates review-kind records of a product.
	Stats(ctx context.Context, productID uuid.UUID) (model.RatingStats, error)
	// ListByProduct returns all records of a product, oldest first.
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Review, error)
}
