package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/payment"
	"github.com/kodamarket/koda/internal/repository"
)

// MaxCartItems bounds one checkout so its metadata fits the provider's limit.
const MaxCartItems = 12

// CommissionRate is the platform share of every sale.
var CommissionRate = decimal.RequireFromString("0.15")

// CheckoutService starts hosted payments.
type CheckoutService interface {
	// Start validates the cart and returns the payment page URL. Nothing is persisted.
	Start(ctx context.Context, buyerID string, productIDs []uuid.UUID) (string, error)
}

// CheckoutConfig carries checkout settings.
type CheckoutConfig struct {
	Currency  string
	PublicURL string // base URL of the web app for success/cancel redirects
}

type CheckoutServiceImpl struct {
	products  repository.ProductRepository
	users     repository.UserRepository
	purchases repository.PurchaseRepository
	pay       payment.Provider
	cfg       CheckoutConfig
	log       *zap.Logger
}

// NewCheckoutService constructs CheckoutService.
func NewCheckoutService(products repository.ProductRepository, users repository.UserRepository,
	purchases repository.PurchaseRepository, pay payment.Provider, cfg CheckoutConfig, log *zap.Logger) *CheckoutServiceImpl {
	if cfg.Currency == "" {
		cfg.Currency = "eur"
	}
	return &CheckoutServiceImpl{products: products, users: users, purchases: purchases, pay: pay, cfg: cfg, log: orNop(log)}
}

// Commission returns the platform fee for a price, rounded to the cent.
func Commission(price decimal.Decimal) decimal.Decimal {
	return price.Mul(CommissionRate).Round(2)
}

// Start builds a checkout session for productIDs in the given order.
func (s *CheckoutServiceImpl) Start(ctx context.Context, buyerID string, productIDs []uuid.UUID) (string, error) {
	if buyerID == "" {
		return "", errs.ErrUnauthorized
	}
	if len(productIDs) == 0 {
		return "", errs.Validation("cart is empty")
	}
	if len(productIDs) > MaxCartItems {
		return "", errs.Validation(fmt.Sprintf("at most %d items per checkout", MaxCartItems))
	}

	seen := make(map[uuid.UUID]struct{}, len(productIDs))
	sellers := map[string]*model.User{}
	items := make([]model.CheckoutItem, 0, len(productIDs))
	destination := ""

	for _, id := range productIDs {
		if _, dup := seen[id]; dup {
			return "", errs.Validation("duplicate product in cart")
		}
		seen[id] = struct{}{}

		p, err := s.products.Get(ctx, id)
		if err != nil {
			return "", fmt.Errorf("product %s: %w", id, err)
		}
		owned, err := s.purchases.Exists(ctx, buyerID, id)
		if err != nil {
			return "", err
		}
		if owned {
			return "", errs.Validation(fmt.Sprintf("you already own %q", p.Title))
		}

		seller, ok := sellers[p.SellerID]
		if !ok {
			seller, err = s.users.GetByID(ctx, p.SellerID)
			if err != nil && !errors.Is(err, errs.ErrNotFound) {
				return "", err
			}
			sellers[p.SellerID] = seller
		}
		if seller == nil || seller.PayoutAccountID == "" {
			return "", fmt.Errorf("%w: %q", errs.ErrSellerNotReady, p.Title)
		}
		if destination == "" {
			destination = seller.PayoutAccountID
		} else if destination != seller.PayoutAccountID {
			return "", errs.Validation("items from different sellers must be bought separately")
		}

		items = append(items, model.CheckoutItem{
			ProductID:  p.ID,
			Title:      p.Title,
			ImageURL:   p.PreviewImageURL,
			Price:      p.Price,
			Commission: Commission(p.Price),
		})
	}

	md, err := payment.EncodeMetadata(buyerID, productIDs)
	if err != nil {
		return "", err
	}

	base := strings.TrimRight(s.cfg.PublicURL, "/")
	cancel := base + "/cart"
	if len(productIDs) == 1 {
		cancel = base + "/product/" + productIDs[0].String()
	}

	sess, err := s.pay.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		Items:       items,
		Destination: destination,
		Currency:    s.cfg.Currency,
		Metadata:    md,
		SuccessURL:  base + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   cancel,
	})
	if err != nil {
		return "", err
	}
	s.log.Info("checkout session created",
		zap.String("session_id", sess.ID), zap.String("buyer_id", buyerID), zap.Int("items", len(items)))
	return sess.URL, nil
}
