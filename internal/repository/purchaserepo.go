package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/kodamarket/koda/internal/model"
)

// PurchaseRepository is the purchase ledger.
type PurchaseRepository interface {
	// Exists reports whether buyerID already owns productID.
	Exists(ctx context.Context, buyerID string, productID uuid.UUID) (bool, error)
	// Create inserts a purchase; returns errs.ErrAlreadyExists if (buyer, product) is taken.
	Create(ctx context.Context, p *model.Purchase) error
	// ListByBuyer returns the buyer's orders, newest first.
	ListByBuyer(ctx context.Context, buyerID string) ([]model.PurchaseView, error)
	// ListBySeller returns the seller's sales, newest first.
	ListBySeller(ctx context.Context, sellerID string) ([]model.PurchaseView, error)
	// ListRecent returns the latest purchases, optionally for one buyer.
	ListRecent(ctx context.Context, buyerID string, limit int) ([]model.PurchaseView, error)
}
