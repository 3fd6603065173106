package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

var (
	ErrCheckoutNotConfigured = errors.New("checkout is not configured")
	ErrCheckoutFailed        = errors.New("checkout session could not be created")
)

// CheckoutRequest describes who is upgrading and where Stripe sends them back.
type CheckoutRequest struct {
	UserID string
	Email  string
	Origin string
}

// Checkout opens subscription checkout sessions for the Pro price.
type Checkout struct {
	client  session.Client
	priceID string
}

type CheckoutOption func(*stripe.BackendConfig)

// WithAPIURL points the client at another Stripe-compatible endpoint.
func WithAPIURL(url string) CheckoutOption {
	return func(c *stripe.BackendConfig) {
		c.URL = stripe.String(strings.TrimRight(url, "/"))
	}
}

// NewCheckout returns nil when the secret key or price is missing.
func NewCheckout(secretKey, priceID string, opts ...CheckoutOption) *Checkout {
	if secretKey == "" || priceID == "" {
		return nil
	}
	cfg := &stripe.BackendConfig{MaxNetworkRetries: stripe.Int64(1)}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Checkout{
		client:  session.Client{B: stripe.GetBackendWithConfig(stripe.APIBackend, cfg), Key: secretKey},
		priceID: priceID,
	}
}

// CreateSession returns the hosted checkout URL. The user ID travels as
// client_reference_id so the completed-checkout webhook can find the profile.
func (c *Checkout) CreateSession(ctx context.Context, req CheckoutRequest) (string, error) {
	if c == nil {
		return "", ErrCheckoutNotConfigured
	}
	origin := strings.TrimRight(req.Origin, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(c.priceID), Quantity: stripe.Int64(1)},
		},
		ClientReferenceID: stripe.String(req.UserID),
		SuccessURL:        stripe.String(origin + "?upgraded=true"),
		CancelURL:         stripe.String(origin + "?upgraded=false"),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"userId": req.UserID},
		},
	}
	params.Context = ctx
	params.AddMetadata("userId", req.UserID)
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	s, err := c.client.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
	}
	if s.URL == "" {
		return "", fmt.Errorf("%w: session %s has no url", ErrCheckoutFailed, s.ID)
	}
	return s.URL, nil
}
