package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/payment"
	"github.com/kodamarket/koda/internal/repository"
)

// AccountService covers users, seller payouts, dashboards and moderation.
type AccountService interface {
	// Sync mirrors the authenticated identity locally and rejects banned users.
	Sync(ctx context.Context, claims model.User) (*model.User, error)
	// OnboardingLink opens a payout account if needed and returns the onboarding URL,
	// or "" when the provider is unavailable.
	OnboardingLink(ctx context.Context, user model.User) (string, error)
	// Balance returns nil when the seller has no payout account or the provider fails.
	Balance(ctx context.Context, user model.User) *model.Balance
	SalesHistory(ctx context.Context, sellerID string) ([]model.PurchaseView, error)
	Orders(ctx context.Context, buyerID string) ([]model.PurchaseView, error)
	SearchUsers(ctx context.Context, admin model.User, q string, limit int) ([]model.UserView, error)
	SetBanned(ctx context.Context, admin model.User, id string, banned bool) error
	SetRole(ctx context.Context, admin model.User, id string, role model.Role) error
	// MakeAdmin promotes a user found by id or email. Used by operators.
	MakeAdmin(ctx context.Context, ident string) (*model.User, error)
	// RecentPurchases lists the latest purchases, optionally for one buyer. Used by operators.
	RecentPurchases(ctx context.Context, buyerID string, limit int) ([]model.PurchaseView, error)
}

type AccountServiceImpl struct {
	users     repository.UserRepository
	purchases repository.PurchaseRepository
	pay       payment.Provider
	returnURL string
	log       *zap.Logger
}

// NewAccountService constructs AccountService. returnURL is where onboarding sends sellers back.
func NewAccountService(users repository.UserRepository, purchases repository.PurchaseRepository,
	pay payment.Provider, returnURL string, log *zap.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{users: users, purchases: purchases, pay: pay, returnURL: returnURL, log: orNop(log)}
}

// Sync upserts the user from token claims.
func (s *AccountServiceImpl) Sync(ctx context.Context, claims model.User) (*model.User, error) {
	if claims.ID == "" {
		return nil, errs.ErrUnauthorized
	}
	u, err := s.users.Upsert(ctx, &claims)
	if err != nil {
		return nil, err
	}
	if u.Banned {
		return nil, errs.ErrBanned
	}
	return u, nil
}

// OnboardingLink degrades provider failures to an empty link.
func (s *AccountServiceImpl) OnboardingLink(ctx context.Context, user model.User) (string, error) {
	acct := user.PayoutAccountID
	if acct == "" {
		id, err := s.pay.CreateAccount(ctx, user.Email)
		if err != nil {
			s.log.Warn("payout account not created", zap.String("user_id", user.ID), zap.Error(err))
			return "", nil
		}
		if err := s.users.SetPayoutAccount(ctx, user.ID, id); err != nil {
			return "", err
		}
		acct = id
	}
	link, err := s.pay.CreateOnboardingLink(ctx, acct, s.returnURL)
	if err != nil {
		s.log.Warn("onboarding link unavailable", zap.String("user_id", user.ID), zap.Error(err))
		return "", nil
	}
	return link, nil
}

// Balance reads the seller's payout balance.
func (s *AccountServiceImpl) Balance(ctx context.Context, user model.User) *model.Balance {
	if user.PayoutAccountID == "" {
		return nil
	}
	b, err := s.pay.GetBalance(ctx, user.PayoutAccountID)
	if err != nil {
		s.log.Warn("balance unavailable", zap.String("user_id", user.ID), zap.Error(err))
		return nil
	}
	if b.Currency == "" {
		b.Currency = "EUR"
	}
	return &b
}

// SalesHistory lists the seller's sales.
func (s *AccountServiceImpl) SalesHistory(ctx context.Context, sellerID string) ([]model.PurchaseView, error) {
	return nonNil(s.purchases.ListBySeller(ctx, sellerID))
}

// Orders lists the buyer's purchases.
func (s *AccountServiceImpl) Orders(ctx context.Context, buyerID string) ([]model.PurchaseView, error) {
	return nonNil(s.purchases.ListByBuyer(ctx, buyerID))
}

func nonNil(v []model.PurchaseView, err error) ([]model.PurchaseView, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []model.PurchaseView{}
	}
	return v, nil
}

// SearchUsers lists users for the admin console.
func (s *AccountServiceImpl) SearchUsers(ctx context.Context, admin model.User, q string, limit int) ([]model.UserView, error) {
	if !admin.IsAdmin() {
		return nil, errs.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	users, err := s.users.Search(ctx, strings.TrimSpace(q), limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserView, 0, len(users))
	for _, u := range users {
		out = append(out, u.View())
	}
	return out, nil
}

// SetBanned bans or unbans a user. Admins cannot ban themselves.
func (s *AccountServiceImpl) SetBanned(ctx context.Context, admin model.User, id string, banned bool) error {
	if !admin.IsAdmin() {
		return errs.ErrForbidden
	}
	if banned && id == admin.ID {
		return errs.Validation("you cannot ban yourself")
	}
	if err := s.users.SetBanned(ctx, id, banned); err != nil {
		return err
	}
	s.log.Info("user ban changed", zap.String("user_id", id), zap.Bool("banned", banned), zap.String("by", admin.ID))
	return nil
}

// SetRole changes a user's role.
func (s *AccountServiceImpl) SetRole(ctx context.Context, admin model.User, id string, role model.Role) error {
	if !admin.IsAdmin() {
		return errs.ErrForbidden
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return errs.Validation("role must be user or admin")
	}
	if id == admin.ID && role != model.RoleAdmin {
		return errs.Validation("you cannot demote yourself")
	}
	return s.users.SetRole(ctx, id, role)
}

// MakeAdmin promotes the user matching ident.
func (s *AccountServiceImpl) MakeAdmin(ctx context.Context, ident string) (*model.User, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil, errs.Validation("user id or email is required")
	}
	u, err := s.users.FindByIdentifier(ctx, ident)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRole(ctx, u.ID, model.RoleAdmin); err != nil {
		return nil, err
	}
	u.Role = model.RoleAdmin
	return u, nil
}

// RecentPurchases lists the latest purchases.
func (s *AccountServiceImpl) RecentPurchases(ctx context.Context, buyerID string, limit int) ([]model.PurchaseView, error) {
	if limit <= 0 {
		limit = 20
	}
	return nonNil(s.purchases.ListRecent(ctx, strings.TrimSpace(buyerID), limit))
}
