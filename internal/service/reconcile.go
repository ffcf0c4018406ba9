package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/payment"
	"github.com/kodamarket/koda/internal/repository"
)

// ReconcileResult summarizes what one webhook delivery changed.
type ReconcileResult struct {
	EventType string
	Created   int
	Skipped   int
}

// WebhookReconciler turns verified provider events into local state.
type WebhookReconciler interface {
	// HandleWebhook returns an error only when the signature does not verify.
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) (ReconcileResult, error)
}

type Reconciler struct {
	pay       payment.Provider
	products  repository.ProductRepository
	purchases repository.PurchaseRepository
	users     repository.UserRepository
	carts     repository.CartRepository
	notify    notifier
	log       *zap.Logger
}

// NewReconciler constructs the webhook reconciler.
func NewReconciler(pay payment.Provider, products repository.ProductRepository, purchases repository.PurchaseRepository,
	users repository.UserRepository, carts repository.CartRepository, notes repository.NotificationRepository,
	log *zap.Logger) *Reconciler {
	log = orNop(log)
	return &Reconciler{
		pay: pay, products: products, purchases: purchases, users: users, carts: carts,
		notify: notifier{repo: notes, log: log}, log: log,
	}
}

// HandleWebhook verifies and applies one event. Business failures are logged and swallowed
// so the provider only redelivers on signature errors.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) (ReconcileResult, error) {
	ev, err := r.pay.VerifyEvent(payload, sigHeader)
	if errors.Is(err, errs.ErrBadSignature) {
		return ReconcileResult{}, err
	}
	res := ReconcileResult{EventType: ev.Type}
	if err != nil {
		r.log.Error("webhook payload not decodable", zap.String("event_id", ev.ID), zap.Error(err))
		return res, nil
	}

	switch ev.Type {
	case model.EventCheckoutCompleted:
		r.reconcileCheckout(ctx, ev, &res)
	case model.EventAccountUpdated:
		r.reconcileAccount(ctx, ev)
	default:
		r.log.Debug("webhook event ignored", zap.String("type", ev.Type))
	}
	return res, nil
}

func (r *Reconciler) reconcileCheckout(ctx context.Context, ev model.PaymentEvent, res *ReconcileResult) {
	buyerID, productIDs := payment.DecodeMetadata(ev.Metadata)
	if buyerID == "" || len(productIDs) == 0 {
		r.log.Info("checkout event without purchase metadata", zap.String("session_id", ev.SessionID))
		return
	}
	log := r.log.With(zap.String("session_id", ev.SessionID), zap.String("buyer_id", buyerID))

	for _, id := range productIDs {
		if r.materialize(ctx, log, buyerID, id, ev.SessionID) {
			res.Created++
		} else {
			res.Skipped++
		}
	}

	if err := r.carts.Clear(ctx, buyerID); err != nil {
		log.Warn("cart not cleared", zap.Error(err))
	}
	log.Info("checkout reconciled", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
}

// materialize records one purchase and reports whether a new record was written.
func (r *Reconciler) materialize(ctx context.Context, log *zap.Logger, buyerID string, productID uuid.UUID, sessionID string) bool {
	log = log.With(zap.String("product_id", productID.String()))

	p, err := r.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			log.Warn("purchased product not found, skipped")
		} else {
			log.Error("product lookup failed, skipped", zap.Error(err))
		}
		return false
	}

	owned, err := r.purchases.Exists(ctx, buyerID, productID)
	if err != nil {
		log.Error("purchase lookup failed, skipped", zap.Error(err))
		return false
	}
	if owned {
		log.Info("purchase already recorded, skipped")
		return false
	}

	id, err := uuid.NewV4()
	if err != nil {
		log.Error("purchase id", zap.Error(err))
		return false
	}
	purchase := &model.Purchase{
		ID:                id,
		BuyerID:           buyerID,
		ProductID:         p.ID,
		SellerID:          p.SellerID,
		Amount:            p.Price,
		ExternalSessionID: sessionID,
		Status:            model.PurchaseCompleted,
	}
	if err := r.purchases.Create(ctx, purchase); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			log.Info("concurrent delivery recorded the purchase first, skipped")
		} else {
			log.Error("purchase not recorded", zap.Error(err))
		}
		return false
	}

	params := map[string]any{"productTitle": p.Title, "amount": p.Price.StringFixed(2)}
	r.notify.send(ctx, model.Notification{
		UserID: p.SellerID, Type: model.NotifySale,
		Title: "New sale", Message: "Your product \"" + p.Title + "\" was purchased.",
		TitleKey: keySaleTitle, MessageKey: keySaleMessage, Params: params,
		Link: "/dashboard",
	})
	r.notify.send(ctx, model.Notification{
		UserID: buyerID, Type: model.NotifyOrder,
		Title: "Purchase confirmed", Message: "\"" + p.Title + "\" is ready to download.",
		TitleKey: keyOrderTitle, MessageKey: keyOrderMessage, Params: params,
		Link: "/product/" + p.ID.String(),
	})
	return true
}

func (r *Reconciler) reconcileAccount(ctx context.Context, ev model.PaymentEvent) {
	if ev.AccountID == "" {
		return
	}
	complete := ev.ChargesEnabled && ev.DetailsSubmitted
	if err := r.users.SetOnboardingByAccount(ctx, ev.AccountID, complete); err != nil {
		r.log.Warn("onboarding state not stored", zap.String("account_id", ev.AccountID), zap.Error(err))
		return
	}
	r.log.Info("seller onboarding updated", zap.String("account_id", ev.AccountID), zap.Bool("complete", complete))
}
