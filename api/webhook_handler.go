package api

import (
	"context"
	"io"
	"net/http"

	"github.com/slotwise/slotwise/providers"
	"github.com/slotwise/slotwise/services"
	"github.com/slotwise/slotwise/utils"
)

// EventLedger is the idempotency gate every inbound event passes
// through exactly once.
type EventLedger interface {
	CheckAndMarkProcessed(ctx context.Context, externalID, eventType string) (bool, error)
}

// SignatureVerifier authenticates a raw webhook body. Implemented by
// the payment processors.
type SignatureVerifier interface {
	VerifyWebhookSignature(payload []byte, signature string) (*providers.ExternalEvent, error)
}

const maxWebhookBodyBytes = 1 << 16

type WebhookHandler struct {
	verifier        SignatureVerifier
	ledger          EventLedger
	events          *services.PaymentEventService
	signatureHeader string
	logger          *utils.Logger
}

// NewWebhookHandler builds the webhook endpoint for one processor.
// signatureHeader names the HTTP header carrying the signature
// ("Stripe-Signature" for Stripe, "X-Callback-Token" for Xendit).
func NewWebhookHandler(verifier SignatureVerifier, ledger EventLedger, events *services.PaymentEventService, signatureHeader string) *WebhookHandler {
	return &WebhookHandler{
		verifier:        verifier,
		ledger:          ledger,
		events:          events,
		signatureHeader: signatureHeader,
		logger:          utils.NewLogger("webhooks"),
	}
}

// HandleWebhook authenticates, deduplicates, then applies one inbound
// processor event. Duplicates are acknowledged with 200 so the
// processor stops redelivering. The ledger admits each event id at most
// once, so an apply failure after admission is surfaced as 500 for
// operator attention rather than retried through redelivery.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	signature := r.Header.Get(h.signatureHeader)
	if signature == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing signature"})
		return
	}

	event, err := h.verifier.VerifyWebhookSignature(payload, signature)
	if err != nil {
		h.logger.Warn(r.Context(), "webhook signature rejected", map[string]interface{}{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	alreadyProcessed, err := h.ledger.CheckAndMarkProcessed(r.Context(), event.ID, event.Type)
	if err != nil {
		h.logger.Error(r.Context(), "idempotency ledger failure", map[string]interface{}{
			"event_id": event.ID,
			"error":    err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "event ledger unavailable"})
		return
	}
	if alreadyProcessed {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"received":  true,
			"duplicate": true,
			"event_id":  event.ID,
		})
		return
	}

	if err := h.events.ProcessPaymentEvent(r.Context(), event); err != nil {
		h.logger.Error(r.Context(), "failed to apply payment event", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
			"error":      err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "event processing failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"received": true,
		"event_id": event.ID,
	})
}
