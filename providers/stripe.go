package providers

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"
)

type StripeProcessor struct {
	apiKey        string
	webhookSecret string
}

func NewStripeProcessor(apiKey, webhookSecret string) *StripeProcessor {
	stripe.Key = apiKey
	return &StripeProcessor{
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
	}
}

func (p *StripeProcessor) Name() string {
	return "stripe"
}

func (p *StripeProcessor) Refund(ctx context.Context, providerRef string, amountCents int64, reason string) (*RefundRecord, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(providerRef),
		Amount:        stripe.Int64(amountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if reason != "" {
		params.AddMetadata("cancellation_reason", reason)
	}

	ref, err := refund.New(params)
	if err != nil {
		return nil, err
	}

	return &RefundRecord{
		ID:          ref.ID,
		AmountCents: ref.Amount,
		Status:      string(ref.Status),
		CreatedAt:   time.Unix(ref.Created, 0),
	}, nil
}

func (p *StripeProcessor) CancelAuthorization(ctx context.Context, providerRef string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonRequestedByCustomer)),
	}
	params.Context = ctx

	_, err := paymentintent.Cancel(providerRef, params)
	return err
}

func (p *StripeProcessor) VerifyWebhookSignature(payload []byte, signature string) (*ExternalEvent, error) {
	if signature == "" {
		return nil, errors.New("missing Stripe signature")
	}

	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, err
	}

	return &ExternalEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Raw:  payload,
	}, nil
}

func (p *StripeProcessor) IsAvailable(ctx context.Context) bool {
	return p.apiKey != ""
}
