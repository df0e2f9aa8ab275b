package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/slotwise/slotwise/utils"
)

// ProcessorWrapper guards a PaymentProcessor with a circuit breaker and
// a background health check. Money-moving calls short-circuit while the
// breaker is open; signature verification is local and passes through.
type ProcessorWrapper struct {
	processor      PaymentProcessor
	circuitBreaker *utils.CircuitBreaker
	healthChecker  *utils.HealthChecker
}

func WrapProcessor(processor PaymentProcessor) *ProcessorWrapper {
	w := &ProcessorWrapper{
		processor:      processor,
		circuitBreaker: utils.CreateCircuitBreaker(5, 30*time.Second),
	}

	w.healthChecker = utils.CreateHealthChecker(w.healthCheck, 30*time.Second, 5*time.Second)
	w.healthChecker.Start()

	return w
}

func (w *ProcessorWrapper) healthCheck(ctx context.Context) error {
	if w.processor.IsAvailable(ctx) {
		return nil
	}
	return fmt.Errorf("payment processor %s is not available", w.processor.Name())
}

func (w *ProcessorWrapper) Name() string {
	return w.processor.Name()
}

func (w *ProcessorWrapper) Refund(ctx context.Context, providerRef string, amountCents int64, reason string) (*RefundRecord, error) {
	var record *RefundRecord
	err := w.circuitBreaker.Execute(ctx, func() error {
		var err error
		record, err = w.processor.Refund(ctx, providerRef, amountCents, reason)
		return err
	})
	return record, err
}

func (w *ProcessorWrapper) CancelAuthorization(ctx context.Context, providerRef string) error {
	return w.circuitBreaker.Execute(ctx, func() error {
		return w.processor.CancelAuthorization(ctx, providerRef)
	})
}

func (w *ProcessorWrapper) VerifyWebhookSignature(payload []byte, signature string) (*ExternalEvent, error) {
	return w.processor.VerifyWebhookSignature(payload, signature)
}

func (w *ProcessorWrapper) IsAvailable(ctx context.Context) bool {
	return w.healthChecker.Status() != utils.StatusUnhealthy
}

func (w *ProcessorWrapper) Close() {
	w.healthChecker.Stop()
}
