// Package billing verifies Stripe webhook deliveries, applies plan changes
// and opens checkout sessions.
package billing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionDeleted = "customer.subscription.deleted"

	DefaultTolerance = webhook.DefaultTolerance
)

var (
	ErrNotConfigured    = errors.New("webhook secret is not configured")
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("signature mismatch")
	ErrStaleTimestamp   = errors.New("signature timestamp outside tolerance")
	ErrInvalidPayload   = errors.New("invalid event payload")
)

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
// Deliveries signed with a different API version are still accepted since
// only the session and subscription fields below are read.
func ConstructEvent(payload []byte, header, secret string, tolerance time.Duration) (stripe.Event, error) {
	if secret == "" {
		return stripe.Event{}, ErrNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	switch {
	case err == nil:
		return event, nil
	case errors.Is(err, webhook.ErrNotSigned), errors.Is(err, webhook.ErrInvalidHeader):
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrMissingSignature, err)
	case errors.Is(err, webhook.ErrNoValidSignature):
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, webhook.ErrTooOld):
		return stripe.Event{}, ErrStaleTimestamp
	default:
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
}

// SignatureHeader builds a header value as Stripe would send it.
func SignatureHeader(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	}).Header
}

// PlanStore is the subset of the profile store webhooks touch.
type PlanStore interface {
	SetPro(ctx context.Context, userID, customerID string) error
	ClearProByCustomer(ctx context.Context, customerID string) error
}

type Handler struct {
	store     PlanStore
	secret    string
	tolerance time.Duration
}

func NewHandler(store PlanStore, secret string) *Handler {
	return &Handler{store: store, secret: secret, tolerance: DefaultTolerance}
}

// Handle verifies and applies one delivery. Events for unknown users are
// acknowledged so Stripe stops retrying them.
func (h *Handler) Handle(ctx context.Context, payload []byte, signature string) (stripe.Event, error) {
	event, err := ConstructEvent(payload, signature, h.secret, h.tolerance)
	if err != nil {
		return stripe.Event{}, err
	}

	switch string(event.Type) {
	case EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := decodeObject(event, &session); err != nil {
			return event, err
		}
		if session.ClientReferenceID == "" {
			log.Printf("billing: %s %s missing client_reference_id", event.Type, event.ID)
			return event, nil
		}
		if err := h.store.SetPro(ctx, session.ClientReferenceID, customerID(session.Customer)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				log.Printf("billing: no profile %s for checkout %s", session.ClientReferenceID, event.ID)
				return event, nil
			}
			return event, fmt.Errorf("set pro: %w", err)
		}
		log.Printf("billing: user %s upgraded to pro", session.ClientReferenceID)

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := decodeObject(event, &sub); err != nil {
			return event, err
		}
		customer := customerID(sub.Customer)
		if err := h.store.ClearProByCustomer(ctx, customer); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				log.Printf("billing: no profile for customer %s", customer)
				return event, nil
			}
			return event, fmt.Errorf("clear pro: %w", err)
		}
		log.Printf("billing: customer %s downgraded from pro", customer)
	}

	return event, nil
}

func decodeObject(event stripe.Event, dst any) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return fmt.Errorf("%w: %s %s has no data object", ErrInvalidPayload, event.Type, event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
