// Package payment abstracts the hosted payment provider: checkout sessions,
// seller payout accounts, balances and signed webhook events.
package payment

import (
	"context"

	"github.com/kodamarket/koda/internal/model"
)

// CheckoutRequest describes one hosted checkout session. All items settle to Destination.
type CheckoutRequest struct {
	Items       []model.CheckoutItem
	Destination string // seller payout account
	Currency    string
	Metadata    map[string]string
	SuccessURL  string
	CancelURL   string
}

// Session is a created checkout session.
type Session struct {
	ID  string
	URL string
}

// Provider is implemented by payment processors.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error)
	// CreateAccount opens a connected payout account for a seller.
	CreateAccount(ctx context.Context, email string) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID, returnURL string) (string, error)
	GetBalance(ctx context.Context, accountID string) (model.Balance, error)
	// VerifyEvent checks the signature header and decodes the event.
	// It returns errs.ErrBadSignature when the payload is not authentic.
	VerifyEvent(payload []byte, sigHeader string) (model.PaymentEvent, error)
}
