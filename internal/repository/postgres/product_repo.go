package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
)

// ProductRepo implements ProductRepository using PostgreSQL.
type ProductRepo struct{ db *DB }

// NewProductRepo constructs a product repository.
func NewProductRepo(db *DB) *ProductRepo { return &ProductRepo{db: db} }

const productSelect = `
SELECT p.id, p.kind, p.title, p.description, p.price_cents, p.category, p.platform, p.tags,
       p.seller_id, COALESCE(NULLIF(u.username,''), TRIM(COALESCE(u.first_name,'') || ' ' || COALESCE(u.last_name,''))),
       p.file_url, p.preview_image_url, p.average_rating, p.review_count, p.certified, p.created_at, p.updated_at
FROM products p LEFT JOIN users u ON u.id = p.seller_id`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p     model.Product
		kind  string
		cents int64
	)
	if err := row.Scan(&p.ID, &kind, &p.Title, &p.Description, &cents, &p.Category, &p.Platform, &p.Tags,
		&p.SellerID, &p.SellerName, &p.FileURL, &p.PreviewImageURL, &p.AverageRating, &p.ReviewCount,
		&p.Certified, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	p.Kind = model.ProductKind(kind)
	p.Price = fromCents(cents)
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()
	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Create inserts a product row.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	const q = `
INSERT INTO products (id, kind, title, description, price_cents, category, platform, tags, seller_id, file_url, preview_image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING created_at, updated_at`
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return r.db.Pool.QueryRow(ctx, q, p.ID, string(p.Kind), p.Title, p.Description, toCents(p.Price),
		p.Category, p.Platform, tags, p.SellerID, p.FileURL, p.PreviewImageURL).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

// Get selects one product.
func (r *ProductRepo) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return scanProduct(r.db.Pool.QueryRow(ctx, productSelect+` WHERE p.id=$1`, id))
}

// Update stores the editable fields.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	const q = `
UPDATE products SET title=$2, description=$3, price_cents=$4, preview_image_url=$5, updated_at=now()
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, p.ID, p.Title, p.Description, toCents(p.Price), p.PreviewImageURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the product row.
func (r *ProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func productWhere(f model.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add(`p.title ILIKE '%%' || $%d || '%%'`, likeEscaper.Replace(q))
	}
	if len(f.Platforms) > 0 {
		add(`p.platform = ANY($%d)`, f.Platforms)
	}
	if len(f.Categories) > 0 {
		add(`p.category = ANY($%d)`, f.Categories)
	}
	if f.MinPrice != nil {
		add(`p.price_cents >= $%d`, toCents(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		add(`p.price_cents <= $%d`, toCents(*f.MaxPrice))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func productOrder(sort string) string {
	switch sort {
	case model.SortPriceAsc:
		return " ORDER BY p.price_cents ASC, p.created_at DESC"
	case model.SortPriceDesc:
		return " ORDER BY p.price_cents DESC, p.created_at DESC"
	case model.SortRating:
		return " ORDER BY p.average_rating DESC, p.review_count DESC, p.created_at DESC"
	default:
		return " ORDER BY p.created_at DESC"
	}
}

// List returns one page of matching products and the total match count.
func (r *ProductRepo) List(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error) {
	where, args := productWhere(f)

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Product{}, 0, nil
	}

	n := len(args)
	q := productSelect + where + productOrder(f.Sort) + fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	rows, err := r.db.Pool.Query(ctx, q, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListBySeller returns the seller's products, newest first.
func (r *ProductRepo) ListBySeller(ctx context.Context, sellerID string) ([]model.Product, error) {
	rows, err := r.db.Pool.Query(ctx, productSelect+` WHERE p.seller_id=$1 ORDER BY p.created_at DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// SetRating stores aggregated review stats.
func (r *ProductRepo) SetRating(ctx context.Context, id uuid.UUID, stats model.RatingStats) error {
	const q = `UPDATE products SET average_rating=$2, review_count=$3 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, stats.Average, stats.Count)
	return err
}
