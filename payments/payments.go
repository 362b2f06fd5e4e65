// Package payments collects service fees.
package payments

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/gramasevaka/gs-portal-api/models"
)

// ErrDisabled is returned when no payment provider is configured.
var ErrDisabled = errors.New("payments are not configured")

// Provider creates and tracks fee payments.
type Provider interface {
	// CreateIntent opens a payment for amount (in major currency units).
	// reference identifies the record the fee belongs to.
	CreateIntent(ctx context.Context, amount float64, currency, reference string) (*models.Payment, error)
	// Refresh returns the current state of a payment.
	Refresh(ctx context.Context, intentID string) (*models.Payment, error)
}

// Stripe is a Provider backed by Stripe PaymentIntents.
type Stripe struct{}

// NewStripe configures the Stripe client. It returns a Disabled provider when key is empty.
func NewStripe(key string) Provider {
	if key == "" {
		return Disabled{}
	}
	stripe.Key = key
	return Stripe{}
}

// CreateIntent implements Provider.
func (Stripe) CreateIntent(ctx context.Context, amount float64, currency, reference string) (*models.Payment, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(amount)),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("reference", reference)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return fromIntent(pi), nil
}

// Refresh implements Provider.
func (Stripe) Refresh(ctx context.Context, intentID string) (*models.Payment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, err
	}
	return fromIntent(pi), nil
}

func fromIntent(pi *stripe.PaymentIntent) *models.Payment {
	return &models.Payment{
		IntentID:     pi.ID,
		Amount:       float64(pi.Amount) / 100,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		ClientSecret: pi.ClientSecret,
	}
}

// MinorUnits converts an amount in rupees (or any two-decimal currency) to cents.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Disabled is used when no payment provider is configured.
type Disabled struct{}

// CreateIntent implements Provider.
func (Disabled) CreateIntent(context.Context, float64, string, string) (*models.Payment, error) {
	return nil, ErrDisabled
}

// Refresh implements Provider.
func (Disabled) Refresh(context.Context, string) (*models.Payment, error) {
	return nil, ErrDisabled
}
