package service

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/repository"
)

// NotificationListLimit caps the notification feed.
const NotificationListLimit = 50

// ShopperService covers the cart, favorites and the notification feed.
type ShopperService interface {
	Cart(ctx context.Context, userID string) ([]model.ProductView, error)
	// AddToCart refuses products the user already owns.
	AddToCart(ctx context.Context, userID string, productID uuid.UUID) error
	RemoveFromCart(ctx context.Context, userID string, productID uuid.UUID) error
	// ToggleFavorite reports whether the product is a favorite afterwards.
	ToggleFavorite(ctx context.Context, userID string, productID uuid.UUID) (bool, error)
	Favorites(ctx context.Context, userID string) ([]model.ProductView, error)
	FavoriteIDs(ctx context.Context, userID string) ([]string, error)
	// Notifications returns the latest notifications and the unread count.
	Notifications(ctx context.Context, userID string) ([]model.NotificationView, int, error)
	MarkRead(ctx context.Context, userID string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) error
}

type ShopperServiceImpl struct {
	products  repository.ProductRepository
	purchases repository.PurchaseRepository
	carts     repository.CartRepository
	favorites repository.FavoriteRepository
	notes     repository.NotificationRepository
}

// NewShopperService constructs ShopperService.
func NewShopperService(products repository.ProductRepository, purchases repository.PurchaseRepository,
	carts repository.CartRepository, favorites repository.FavoriteRepository, notes repository.NotificationRepository) *ShopperServiceImpl {
	return &ShopperServiceImpl{products: products, purchases: purchases, carts: carts, favorites: favorites, notes: notes}
}

func views(items []model.Product) []model.ProductView {
	out := make([]model.ProductView, 0, len(items))
	for _, p := range items {
		out = append(out, p.View())
	}
	return out
}

// Cart lists the cart content.
func (s *ShopperServiceImpl) Cart(ctx context.Context, userID string) ([]model.ProductView, error) {
	items, err := s.carts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return views(items), nil
}

// AddToCart adds an existing, not yet owned product.
func (s *ShopperServiceImpl) AddToCart(ctx context.Context, userID string, productID uuid.UUID) error {
	if _, err := s.products.Get(ctx, productID); err != nil {
		return err
	}
	owned, err := s.purchases.Exists(ctx, userID, productID)
	if err != nil {
		return err
	}
	if owned {
		return errs.Validation("you already own this product")
	}
	return s.carts.Add(ctx, userID, productID)
}

// RemoveFromCart drops a product from the cart.
func (s *ShopperServiceImpl) RemoveFromCart(ctx context.Context, userID string, productID uuid.UUID) error {
	return s.carts.Remove(ctx, userID, productID)
}

// ToggleFavorite flips the favorite state of an existing product.
func (s *ShopperServiceImpl) ToggleFavorite(ctx context.Context, userID string, productID uuid.UUID) (bool, error) {
	if _, err := s.products.Get(ctx, productID); err != nil {
		return false, err
	}
	return s.favorites.Toggle(ctx, userID, productID)
}

// Favorites lists favorite products.
func (s *ShopperServiceImpl) Favorites(ctx context.Context, userID string) ([]model.ProductView, error) {
	items, err := s.favorites.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return views(items), nil
}

// FavoriteIDs lists favorite product ids.
func (s *ShopperServiceImpl) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.favorites.IDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out, nil
}

// Notifications returns the feed.
func (s *ShopperServiceImpl) Notifications(ctx context.Context, userID string) ([]model.NotificationView, int, error) {
	list, err := s.notes.ListForUser(ctx, userID, NotificationListLimit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.notes.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.NotificationView, 0, len(list))
	for _, n := range list {
		out = append(out, n.View())
	}
	return out, unread, nil
}

// MarkRead flags one notification as read.
func (s *ShopperServiceImpl) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	return s.notes.MarkRead(ctx, userID, id)
}

// MarkAllRead flags the whole feed as read.
func (s *ShopperServiceImpl) MarkAllRead(ctx context.Context, userID string) error {
	return s.notes.MarkAllRead(ctx, userID)
}
