package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/repository"
)

// DownloadTTL is the lifetime of a product file download link.
const DownloadTTL = 5 * time.Minute

// Validator checks tagged payload structs.
type Validator interface {
	Struct(s any) error
}

// ProductService manages the automation catalog.
type ProductService interface {
	Create(ctx context.Context, seller model.User, in model.ProductInput) (*model.Product, error)
	Update(ctx context.Context, user model.User, id uuid.UUID, up model.ProductUpdate) (*model.Product, error)
	Delete(ctx context.Context, user model.User, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, f model.ProductFilter) (model.ProductPage, error)
	MyProducts(ctx context.Context, sellerID string) ([]model.ProductView, error)
	// Download returns a short-lived file URL for buyers and the seller.
	Download(ctx context.Context, user model.User, id uuid.UUID) (string, error)
}

// CatalogConfig bounds listing pages.
type CatalogConfig struct {
	DefaultLimit int
	MaxLimit     int
}

type ProductServiceImpl struct {
	products  repository.ProductRepository
	purchases repository.PurchaseRepository
	store     ObjectStore
	validate  Validator
	cfg       CatalogConfig
	log       *zap.Logger
}

// NewProductService constructs ProductService with page size defaults.
func NewProductService(products repository.ProductRepository, purchases repository.PurchaseRepository,
	store ObjectStore, v Validator, cfg CatalogConfig, log *zap.Logger) *ProductServiceImpl {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 12
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = 48
	}
	return &ProductServiceImpl{products: products, purchases: purchases, store: store, validate: v, cfg: cfg, log: orNop(log)}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		k := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Create publishes a product. The seller must be able to receive payouts.
func (s *ProductServiceImpl) Create(ctx context.Context, seller model.User, in model.ProductInput) (*model.Product, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Tags = cleanTags(in.Tags)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if seller.PayoutAccountID == "" {
		return nil, errs.ErrSellerNotReady
	}
	key, err := s.store.KeyFromURL(in.FileURL)
	if err != nil || !ownsFileKey(key, seller.ID) {
		return nil, errs.Validation("fileUrl must reference a workflow file you uploaded")
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	p := &model.Product{
		ID:              id,
		Kind:            model.KindAutomation,
		Title:           in.Title,
		Description:     in.Description,
		Price:           in.Price.Round(2),
		Category:        in.Category,
		Platform:        in.Platform,
		Tags:            in.Tags,
		SellerID:        seller.ID,
		SellerName:      seller.DisplayName(),
		FileURL:         in.FileURL,
		PreviewImageURL: in.PreviewImageURL,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("product created", zap.String("product_id", id.String()), zap.String("seller_id", seller.ID))
	return p, nil
}

// Update edits a product. An empty preview keeps the current one.
func (s *ProductServiceImpl) Update(ctx context.Context, user model.User, id uuid.UUID, up model.ProductUpdate) (*model.Product, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != user.ID {
		return nil, errs.ErrForbidden
	}
	up.Title = strings.TrimSpace(up.Title)
	up.Description = strings.TrimSpace(up.Description)
	if err := s.validate.Struct(up); err != nil {
		return nil, err
	}

	p.Title = up.Title
	p.Description = up.Description
	p.Price = up.Price.Round(2)
	if up.PreviewImageURL != "" {
		p.PreviewImageURL = up.PreviewImageURL
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a product; sellers delete their own, admins any.
func (s *ProductServiceImpl) Delete(ctx context.Context, user model.User, id uuid.UUID) error {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.SellerID != user.ID && !user.IsAdmin() {
		return errs.ErrForbidden
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("product deleted", zap.String("product_id", id.String()), zap.String("by", user.ID))
	return nil
}

// Get loads one product.
func (s *ProductServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return s.products.Get(ctx, id)
}

// List returns one catalog page. Page and limit are clamped to sane bounds.
func (s *ProductServiceImpl) List(ctx context.Context, f model.ProductFilter) (model.ProductPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = s.cfg.DefaultLimit
	}
	if f.Limit > s.cfg.MaxLimit {
		f.Limit = s.cfg.MaxLimit
	}
	if maxPage := math.MaxInt32 / f.Limit; f.Page > maxPage {
		f.Page = maxPage
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return model.ProductPage{}, errs.Validation("minPrice must not exceed maxPrice")
	}

	items, total, err := s.products.List(ctx, f)
	if err != nil {
		return model.ProductPage{}, err
	}
	page := model.ProductPage{
		Products:    make([]model.ProductView, 0, len(items)),
		TotalCount:  total,
		TotalPages:  (total + f.Limit - 1) / f.Limit,
		CurrentPage: f.Page,
		Limit:       f.Limit,
	}
	for _, p := range items {
		page.Products = append(page.Products, p.View())
	}
	return page, nil
}

// MyProducts lists the seller's products.
func (s *ProductServiceImpl) MyProducts(ctx context.Context, sellerID string) ([]model.ProductView, error) {
	items, err := s.products.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	out := make([]model.ProductView, 0, len(items))
	for _, p := range items {
		out = append(out, p.View())
	}
	return out, nil
}

// Download checks ownership and presigns the file.
func (s *ProductServiceImpl) Download(ctx context.Context, user model.User, id uuid.UUID) (string, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if p.SellerID != user.ID {
		bought, err := s.purchases.Exists(ctx, user.ID, id)
		if err != nil {
			return "", err
		}
		if !bought {
			return "", fmt.Errorf("%w: purchase required", errs.ErrForbidden)
		}
	}
	key, err := s.store.KeyFromURL(p.FileURL)
	if err != nil {
		return "", err
	}
	if !ownsFileKey(key, p.SellerID) {
		s.log.Warn("product file outside seller prefix", zap.String("product_id", id.String()), zap.String("key", key))
		return "", fmt.Errorf("%w: file not downloadable", errs.ErrForbidden)
	}
	return s.store.PresignGet(ctx, key, DownloadTTL)
}
