package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
)

// PurchaseRepo implements PurchaseRepository using PostgreSQL.
type PurchaseRepo struct{ db *DB }

// NewPurchaseRepo constructs a purchase repository.
func NewPurchaseRepo(db *DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// Exists reports whether the buyer already owns the product.
func (r *PurchaseRepo) Exists(ctx context.Context, buyerID string, productID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM purchases WHERE buyer_id=$1 AND product_id=$2)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, buyerID, productID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Create inserts a purchase. The (buyer_id, product_id) unique index backs the service pre-check.
func (r *PurchaseRepo) Create(ctx context.Context, p *model.Purchase) error {
	const q = `
INSERT INTO purchases (id, buyer_id, product_id, seller_id, amount_cents, external_session_id, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, p.ID, p.BuyerID, p.ProductID, p.SellerID, toCents(p.Amount),
		p.ExternalSessionID, string(p.Status)).Scan(&p.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

const purchaseViewSelect = `
SELECT pu.id, pu.buyer_id, pu.seller_id, pu.product_id, COALESCE(p.title,''), COALESCE(p.price_cents,0),
       COALESCE(p.preview_image_url,''), p.id IS NULL, pu.amount_cents, pu.created_at
FROM purchases pu LEFT JOIN products p ON p.id = pu.product_id`

func collectPurchaseViews(rows pgx.Rows) ([]model.PurchaseView, error) {
	defer rows.Close()
	var out []model.PurchaseView
	for rows.Next() {
		var (
			v                  model.PurchaseView
			id, productID      uuid.UUID
			priceCents, amount int64
		)
		if err := rows.Scan(&id, &v.BuyerID, &v.SellerID, &productID, &v.ProductTitle, &priceCents,
			&v.PreviewImageURL, &v.ProductDeleted, &amount, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.ID = id.String()
		v.ProductID = productID.String()
		v.ProductPrice = fromCents(priceCents)
		v.Amount = fromCents(amount)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListByBuyer returns the buyer's orders.
func (r *PurchaseRepo) ListByBuyer(ctx context.Context, buyerID string) ([]model.PurchaseView, error) {
	rows, err := r.db.Pool.Query(ctx, purchaseViewSelect+` WHERE pu.buyer_id=$1 ORDER BY pu.created_at DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	return collectPurchaseViews(rows)
}

// ListBySeller returns the seller's sales.
func (r *PurchaseRepo) ListBySeller(ctx context.Context, sellerID string) ([]model.PurchaseView, error) {
	rows, err := r.db.Pool.Query(ctx, purchaseViewSelect+` WHERE pu.seller_id=$1 ORDER BY pu.created_at DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	return collectPurchaseViews(rows)
}

// ListRecent returns the latest purchases; an empty buyerID lists everyone's.
func (r *PurchaseRepo) ListRecent(ctx context.Context, buyerID string, limit int) ([]model.PurchaseView, error) {
	rows, err := r.db.Pool.Query(ctx,
		purchaseViewSelect+` WHERE ($1 = '' OR pu.buyer_id=$1) ORDER BY pu.created_at DESC LIMIT $2`, buyerID, limit)
	if err != nil {
		return nil, err
	}
	return collectPurchaseViews(rows)
}
