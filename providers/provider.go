package providers

import (
	"context"
	"time"
)

// PaymentProcessor is the external payment collaborator. Implementations
// are constructed explicitly and injected into the services that need
// them, so tests can substitute a double.
type PaymentProcessor interface {
	Name() string

	// Refund returns amountCents of a captured payment to the client.
	Refund(ctx context.Context, providerRef string, amountCents int64, reason string) (*RefundRecord, error)

	// CancelAuthorization releases an uncaptured hold. No funds move.
	CancelAuthorization(ctx context.Context, providerRef string) error

	// VerifyWebhookSignature authenticates an inbound webhook payload
	// and extracts the external event identity from it.
	VerifyWebhookSignature(payload []byte, signature string) (*ExternalEvent, error)

	IsAvailable(ctx context.Context) bool
}

type RefundRecord struct {
	ID          string
	AmountCents int64
	Status      string
	CreatedAt   time.Time
}

// ExternalEvent is the (id, type) pair handed to the idempotency ledger
// after signature verification.
type ExternalEvent struct {
	ID   string
	Type string
	Raw  []byte
}
