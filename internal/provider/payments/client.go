package payments

import (
	"context"
	"fmt"
	"time"

	"chauffeur-backoffice/pkg/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

type Client struct {
	api    *client.API
	config utils.StripeConfig
	log    *zap.Logger
}

func NewClient(config utils.StripeConfig, log *zap.Logger) *Client {
	return &Client{
		api:    client.New(config.SecretKey, nil),
		config: config,
		log:    log.With(zap.String("provider", "stripe")),
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.config.SuccessURL),
		CancelURL:         stripe.String(c.config.CancelURL),
		ClientReferenceID: stripe.String(req.BookingID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.DestinationAccount != "" {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(req.DestinationAccount),
			},
		}
		if req.ApplicationFee > 0 {
			params.PaymentIntentData.ApplicationFeeAmount = stripe.Int64(req.ApplicationFee)
		}
	}
	params.AddMetadata("booking_id", req.BookingID)
	params.AddMetadata("reference", req.Reference)
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		c.log.Warn("Checkout session creation failed", zap.Error(err), zap.String("booking_id", req.BookingID))
		return nil, fmt.Errorf("create checkout session for booking %s: %w", req.BookingID, err)
	}

	return &CheckoutSession{
		ID:        session.ID,
		URL:       session.URL,
		ExpiresAt: time.Unix(session.ExpiresAt, 0),
	}, nil
}

func (c *Client) CreateAccount(ctx context.Context, req AccountRequest) (*Account, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(c.config.ConnectCountry),
	}
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	params.AddMetadata("tenant_id", req.TenantID)
	params.Context = ctx

	account, err := c.api.Accounts.New(params)
	if err != nil {
		c.log.Warn("Connect account creation failed", zap.Error(err), zap.String("tenant_id", req.TenantID))
		return nil, fmt.Errorf("create connect account for tenant %s: %w", req.TenantID, err)
	}

	return toAccount(account), nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	account, err := c.api.Accounts.GetByID(accountID, params)
	if err != nil {
		c.log.Warn("Connect account lookup failed", zap.Error(err), zap.String("account_id", accountID))
		return nil, fmt.Errorf("get connect account %s: %w", accountID, err)
	}

	return toAccount(account), nil
}

func (c *Client) CreateOnboardingLink(ctx context.Context, accountID string) (*OnboardingLink, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(c.config.RefreshURL),
		ReturnURL:  stripe.String(c.config.ReturnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := c.api.AccountLinks.New(params)
	if err != nil {
		c.log.Warn("Account link creation failed", zap.Error(err), zap.String("account_id", accountID))
		return nil, fmt.Errorf("create onboarding link for %s: %w", accountID, err)
	}

	return &OnboardingLink{URL: link.URL, ExpiresAt: time.Unix(link.ExpiresAt, 0)}, nil
}

// CreatePaymentLink registers a one-off price and a payment link for it.
func (c *Client) CreatePaymentLink(ctx context.Context, req LinkRequest) (*Link, error) {
	priceParams := &stripe.PriceParams{
		Currency:   stripe.String(req.Currency),
		UnitAmount: stripe.Int64(req.Amount),
		ProductData: &stripe.PriceProductDataParams{
			Name: stripe.String(req.Description),
		},
	}
	priceParams.Context = ctx

	price, err := c.api.Prices.New(priceParams)
	if err != nil {
		c.log.Warn("Price creation failed", zap.Error(err), zap.String("booking_id", req.BookingID))
		return nil, fmt.Errorf("create price for booking %s: %w", req.BookingID, err)
	}

	params := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{
			{Price: stripe.String(price.ID), Quantity: stripe.Int64(1)},
		},
	}
	if req.DestinationAccount != "" {
		params.TransferData = &stripe.PaymentLinkTransferDataParams{
			Destination: stripe.String(req.DestinationAccount),
		}
		if req.ApplicationFee > 0 {
			params.ApplicationFeeAmount = stripe.Int64(req.ApplicationFee)
		}
	}
	params.AddMetadata("booking_id", req.BookingID)
	params.Context = ctx

	link, err := c.api.PaymentLinks.New(params)
	if err != nil {
		c.log.Warn("Payment link creation failed", zap.Error(err), zap.String("booking_id", req.BookingID))
		return nil, fmt.Errorf("create payment link for booking %s: %w", req.BookingID, err)
	}

	return &Link{ID: link.ID, URL: link.URL, Active: link.Active}, nil
}

func (c *Client) DeactivatePaymentLink(ctx context.Context, linkID string) error {
	params := &stripe.PaymentLinkParams{Active: stripe.Bool(false)}
	params.Context = ctx

	if _, err := c.api.PaymentLinks.Update(linkID, params); err != nil {
		c.log.Warn("Payment link deactivation failed", zap.Error(err), zap.String("link_id", linkID))
		return fmt.Errorf("deactivate payment link %s: %w", linkID, err)
	}

	return nil
}

func toAccount(a *stripe.Account) *Account {
	return &Account{
		ID:               a.ID,
		ChargesEnabled:   a.ChargesEnabled,
		PayoutsEnabled:   a.PayoutsEnabled,
		DetailsSubmitted: a.DetailsSubmitted,
		CurrentlyDue:     currentlyDue(a),
	}
}
