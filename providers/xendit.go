package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	xendit "github.com/xendit/xendit-go/v6"
	refund "github.com/xendit/xendit-go/v6/refund"
)

type XenditProcessor struct {
	apiKey        string
	callbackToken string
	client        *xendit.APIClient
}

func NewXenditProcessor(apiKey, callbackToken string) *XenditProcessor {
	return &XenditProcessor{
		apiKey:        apiKey,
		callbackToken: callbackToken,
		client:        xendit.NewClient(apiKey),
	}
}

func (p *XenditProcessor) Name() string {
	return "xendit"
}

func (p *XenditProcessor) Refund(ctx context.Context, providerRef string, amountCents int64, reason string) (*RefundRecord, error) {
	refundData := refund.NewCreateRefund()
	refundData.SetPaymentRequestId(providerRef)
	refundData.SetAmount(float64(amountCents))
	refundData.SetReason("REQUESTED_BY_CUSTOMER")

	if reason != "" {
		refundData.SetMetadata(map[string]interface{}{
			"cancellation_reason": reason,
		})
	}

	ref, _, err := p.client.RefundApi.CreateRefund(ctx).CreateRefund(*refundData).Execute()
	if err != nil {
		return nil, fmt.Errorf("xendit refund failed: %w", err)
	}

	return &RefundRecord{
		ID:          ref.GetId(),
		AmountCents: amountCents,
		Status:      "succeeded",
		CreatedAt:   time.Now(),
	}, nil
}

// CancelAuthorization is unsupported for Xendit: payment requests are
// captured on approval, so there is never an open hold to release.
// Deposits that must be authorize-then-capture go through Stripe.
func (p *XenditProcessor) CancelAuthorization(ctx context.Context, providerRef string) error {
	return fmt.Errorf("xendit does not support authorization holds (payment request %s)", providerRef)
}

func (p *XenditProcessor) VerifyWebhookSignature(payload []byte, signature string) (*ExternalEvent, error) {
	if signature == "" {
		return nil, errors.New("missing Xendit callback token")
	}

	mac := hmac.New(sha256.New, []byte(p.callbackToken))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, errors.New("invalid Xendit callback token")
	}

	var body struct {
		ID    string `json:"id"`
		Event string `json:"event"`
		Data  struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("invalid Xendit payload: %w", err)
	}

	eventID := body.ID
	if eventID == "" {
		eventID = body.Data.ID
	}
	if eventID == "" {
		return nil, errors.New("xendit payload has no event id")
	}

	return &ExternalEvent{
		ID:   eventID,
		Type: body.Event,
		Raw:  payload,
	}, nil
}

func (p *XenditProcessor) IsAvailable(ctx context.Context) bool {
	return p.apiKey != ""
}
