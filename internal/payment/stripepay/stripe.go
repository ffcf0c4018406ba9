// Package stripepay implements payment.Provider on Stripe Checkout and Connect.
package stripepay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/payment"
)

// Config holds Stripe credentials.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// RefreshURL is where an expired onboarding link sends the seller.
	RefreshURL string
}

// Provider talks to Stripe through an explicitly constructed client.
type Provider struct {
	api           *client.API
	webhookSecret string
	refreshURL    string
}

var _ payment.Provider = (*Provider)(nil)

// New constructs a Stripe provider.
func New(cfg Config) *Provider {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &Provider{api: sc, webhookSecret: cfg.WebhookSecret, refreshURL: cfg.RefreshURL}
}

func cents(d decimal.Decimal) int64 { return d.Shift(2).Round(0).IntPart() }

func checkoutParams(ctx context.Context, req payment.CheckoutRequest) *stripe.CheckoutSessionParams {
	var fee int64
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, it := range req.Items {
		pd := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(it.Title)}
		if it.ImageURL != "" {
			pd.Images = stripe.StringSlice([]string{it.ImageURL})
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: pd,
				UnitAmount:  stripe.Int64(cents(it.Price)),
			},
			Quantity: stripe.Int64(1),
		})
		fee += cents(it.Commission)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          items,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(fee),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(req.Destination),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

// CreateCheckoutSession creates a hosted payment page with a destination charge.
func (p *Provider) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.Session, error) {
	s, err := p.api.CheckoutSessions.New(checkoutParams(ctx, req))
	if err != nil {
		return payment.Session{}, fmt.Errorf("%w: checkout session: %v", errs.ErrUpstream, err)
	}
	if s.URL == "" {
		return payment.Session{}, fmt.Errorf("%w: checkout session %s has no url", errs.ErrUpstream, s.ID)
	}
	return payment.Session{ID: s.ID, URL: s.URL}, nil
}

// CreateAccount opens an Express connected account able to receive transfers.
func (p *Provider) CreateAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx
	acct, err := p.api.Accounts.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create account: %v", errs.ErrUpstream, err)
	}
	return acct.ID, nil
}

// CreateOnboardingLink returns a one-time account onboarding URL.
func (p *Provider) CreateOnboardingLink(ctx context.Context, accountID, returnURL string) (string, error) {
	refresh := p.refreshURL
	if refresh == "" {
		refresh = returnURL
	}
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refresh),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx
	link, err := p.api.AccountLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: account link: %v", errs.ErrUpstream, err)
	}
	return link.URL, nil
}

// GetBalance reads the connected account's balance.
func (p *Provider) GetBalance(ctx context.Context, accountID string) (model.Balance, error) {
	params := &stripe.BalanceParams{}
	params.SetStripeAccount(accountID)
	params.Context = ctx
	b, err := p.api.Balance.Get(params)
	if err != nil {
		return model.Balance{}, fmt.Errorf("%w: balance: %v", errs.ErrUpstream, err)
	}
	return toBalance(b), nil
}

func toBalance(b *stripe.Balance) model.Balance {
	out := model.Balance{Available: decimal.Zero, Pending: decimal.Zero}
	if len(b.Available) > 0 {
		out.Available = decimal.New(b.Available[0].Amount, -2)
		out.Currency = strings.ToUpper(string(b.Available[0].Currency))
	}
	if len(b.Pending) > 0 {
		out.Pending = decimal.New(b.Pending[0].Amount, -2)
		if out.Currency == "" {
			out.Currency = strings.ToUpper(string(b.Pending[0].Currency))
		}
	}
	return out
}

// VerifyEvent checks the Stripe-Signature header and decodes the event types reconciliation uses.
// Other event types come back with only ID and Type set.
func (p *Provider) VerifyEvent(payload []byte, sigHeader string) (model.PaymentEvent, error) {
	if err := webhook.ValidatePayloadWithTolerance(payload, sigHeader, p.webhookSecret, webhook.DefaultTolerance); err != nil {
		return model.PaymentEvent{}, fmt.Errorf("%w: %v", errs.ErrBadSignature, err)
	}
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return model.PaymentEvent{}, fmt.Errorf("decode event: %w", err)
	}

	out := model.PaymentEvent{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	switch out.Type {
	case model.EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return out, fmt.Errorf("decode checkout session: %w", err)
		}
		out.SessionID = s.ID
		out.Metadata = s.Metadata
	case model.EventAccountUpdated:
		var a stripe.Account
		if err := json.Unmarshal(ev.Data.Raw, &a); err != nil {
			return out, fmt.Errorf("decode account: %w", err)
		}
		out.AccountID = a.ID
		out.ChargesEnabled = a.ChargesEnabled
		out.DetailsSubmitted = a.DetailsSubmitted
	}
	return out, nil
}
