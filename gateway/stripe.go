package gateway

import (
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/webhook"
)

// InitStripe sets the API key once at startup.
func InitStripe(secretKey string) {
	stripe.Key = secretKey
}

// CreateCardIntent creates a client-confirmable PaymentIntent for an order.
func CreateCardIntent(amount int64, currency string, orderNumber string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_number", orderNumber)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return intent, nil
}

// ConstructWebhookEvent verifies the Stripe-Signature header against the raw
// body and returns the parsed event.
func ConstructWebhookEvent(payload []byte, sigHeader string, secret string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, secret)
}

// RefundIntent refunds the full charge behind a PaymentIntent.
func RefundIntent(intentID string) (*stripe.Refund, error) {
	r, err := refund.New(&stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	})
	if err != nil {
		return nil, fmt.Errorf("refund payment intent: %w", err)
	}
	return r, nil
}
