package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/slotwise/slotwise/models"
	"github.com/slotwise/slotwise/providers"
	"github.com/slotwise/slotwise/utils"
)

type fakeRefundApptStore struct {
	appointments map[string]*models.Appointment
}

func (s *fakeRefundApptStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	a, ok := s.appointments[id]
	if !ok {
		return nil, utils.ErrAppointmentNotFound
	}
	return a, nil
}

func (s *fakeRefundApptStore) SetDepositStatus(ctx context.Context, id string, from, to models.DepositStatus) (bool, error) {
	a, ok := s.appointments[id]
	if !ok {
		return false, utils.ErrAppointmentNotFound
	}
	if a.DepositStatus != from {
		return false, nil
	}
	a.DepositStatus = to
	return true, nil
}

type fakeRefundPaymentStore struct {
	payments       map[string]*models.Payment
	refundedID     string
	refundedAmount int64
	cancelledID    string
	cancelReason   string
}

func (s *fakeRefundPaymentStore) GetByAppointmentID(ctx context.Context, appointmentID string) (*models.Payment, error) {
	for _, p := range s.payments {
		if p.AppointmentID != nil && *p.AppointmentID == appointmentID {
			return p, nil
		}
	}
	return nil, utils.ErrPaymentNotFound
}

func (s *fakeRefundPaymentStore) MarkRefunded(ctx context.Context, id string, amountCents int64, reason, providerRefundID string, refundedAt time.Time) error {
	s.refundedID = id
	s.refundedAmount = amountCents
	return nil
}

func (s *fakeRefundPaymentStore) MarkCancelled(ctx context.Context, id string, reason string) error {
	s.cancelledID = id
	s.cancelReason = reason
	return nil
}

type fakeProcessor struct {
	refundCalls    int
	cancelCalls    int
	refundErr      error
	cancelErr      error
	lastRefundRef  string
	lastRefundCent int64
}

func (p *fakeProcessor) Name() string { return "fake" }

func (p *fakeProcessor) Refund(ctx context.Context, providerRef string, amountCents int64, reason string) (*providers.RefundRecord, error) {
	p.refundCalls++
	if p.refundErr != nil {
		return nil, p.refundErr
	}
	p.lastRefundRef = providerRef
	p.lastRefundCent = amountCents
	return &providers.RefundRecord{ID: "re_123", AmountCents: amountCents, Status: "succeeded"}, nil
}

func (p *fakeProcessor) CancelAuthorization(ctx context.Context, providerRef string) error {
	p.cancelCalls++
	return p.cancelErr
}

func (p *fakeProcessor) VerifyWebhookSignature(payload []byte, signature string) (*providers.ExternalEvent, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProcessor) IsAvailable(ctx context.Context) bool { return true }

type refundFixture struct {
	appts     *fakeRefundApptStore
	payments  *fakeRefundPaymentStore
	processor *fakeProcessor
	jobs      *fakeEnqueuer
	svc       *RefundService
	now       time.Time
}

func newRefundFixture(depositCents int64, depositStatus models.DepositStatus, hoursUntilStart float64) *refundFixture {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	apptID := "appt-1"

	f := &refundFixture{
		appts: &fakeRefundApptStore{appointments: map[string]*models.Appointment{
			apptID: {
				ID:            apptID,
				TenantID:      "tenant-1",
				ClientID:      "client-1",
				StartsAt:      now.Add(time.Duration(hoursUntilStart * float64(time.Hour))),
				DepositCents:  depositCents,
				DepositStatus: depositStatus,
				Status:        models.AppointmentStatusCancelled,
			},
		}},
		payments:  &fakeRefundPaymentStore{payments: map[string]*models.Payment{}},
		processor: &fakeProcessor{},
		jobs:      &fakeEnqueuer{},
		now:       now,
	}

	if depositCents > 0 {
		f.payments.payments["pay-1"] = &models.Payment{
			ID:            "pay-1",
			AppointmentID: &apptID,
			AmountCents:   depositCents,
			Status:        models.PaymentStatusCompleted,
			ProviderRef:   "pi_abc",
		}
	}

	f.svc = NewRefundService(f.appts, f.payments, f.processor, f.jobs, 24)
	f.svc.now = func() time.Time { return now }
	return f
}

func TestRefundCapturedDepositClientCancelsEarly(t *testing.T) {
	f := newRefundFixture(2000, models.DepositStatusCaptured, 30)

	result, err := f.svc.ProcessCancellationRefund(context.Background(), "appt-1", models.CancelledByClient, "change of plans")
	if err != nil {
		t.Fatalf("expected refund to succeed, got %v", err)
	}
	if !result.Refunded || result.RefundAmountCents != 2000 {
		t.Errorf("expected full 2000 cent refund, got %+v", result)
	}
	if f.processor.refundCalls != 1 || f.processor.lastRefundRef != "pi_abc" {
		t.Errorf("expected one processor refund against pi_abc, got %+v", f.processor)
	}
	if f.payments.refundedID != "pay-1" || f.payments.refundedAmount != 2000 {
		t.Errorf("expected payment marked refunded for 2000, got %s/%d", f.payments.refundedID, f.payments.refundedAmount)
	}
	if f.appts.appointments["appt-1"].DepositStatus != models.DepositStatusRefunded {
		t.Errorf("expected deposit status refunded, got %s", f.appts.appointments["appt-1"].DepositStatus)
	}
	if len(f.jobs.jobs) != 1 || f.jobs.jobs[0].Type != models.NotificationTypeRefundIssued {
		t.Errorf("expected refund notification job, got %+v", f.jobs.jobs)
	}
}

func TestRefundLateClientCancellationDenied(t *testing.T) {
	f := newRefundFixture(2000, models.DepositStatusAuthorized, 3)

	result, err := f.svc.ProcessCancellationRefund(context.Background(), "appt-1", models.CancelledByClient, "oops")
	if err != nil {
		t.Fatalf("expected denial, not error: %v", err)
	}
	if result.Refunded {
		t.Error("late client cancellation must not be refunded")
	}
	if !result.RequiresManualReview {
		t.Error("late cancellation must be flagged for manual review")
	}
	if f.processor.refundCalls != 0 || f.processor.cancelCalls != 0 {
		t.Error("processor must not be called for a denied refund")
	}
	if f.appts.appointments["appt-1"].DepositStatus != models.DepositStatusNoRefund {
		t.Errorf("expected deposit status no_refund, got %s", f.appts.appointments["appt-1"].DepositStatus)
	}
}

func TestRefundExactCutoffBoundaryIsEligible(t *testing.T) {
	f := newRefundFixture(2000, models.DepositStatusCaptured, 24)

	result, err := f.svc.ProcessCancellationRefund(context.Background(), "appt-1", models.CancelledByClient, "rescheduling")
	if err != nil {
		t.Fatalf("expected refund at exact cutoff, got %v", err)
	}
	if !result.Refunded {
		t.Error("cancellation exactly at the cutoff must be eligible")
	}
}

func TestRefundSalonCancellationAlwaysEligible(t *testing.T) {
	f := newRefundFixture(1500, models.DepositStatusCaptured, 1)

	result, err := f.svc.ProcessCancellationRefund(context.Background(), "appt-1", models.CancelledBySalon, "stylist sick")
	if err != nil {
		t.Fatalf("expected refund, got %v", err)
	}
	if !result.Refunded || result.RefundAmountCents != 1500 {
		t.Errorf("salon cancellation must refund in full regardless of timing, got %+v", result)
	}
}

func TestRefundReleasesAuthorizedHold(t *testing.T) {
	f := newRefundFixture(2000, models.DepositStatusAuthorized, 48)

	result, err := f.svc.ProcessCancellationRefund(context.Background(), "appt-1", models.CancelledByClient, "change of plans")
	if err != nil {
		t.Fatalf("expected release to succeed, got %v", err)
	}
	if !result.Refunded {
		t.Error("released authorization counts as a resolved refund")
	}
	if result.RefundAmountCents != 0 {
		t.Errorf("no funds move on a hold release, got %d", result.RefundAmountCents)
	}
	if !strings.Contains(result.Reason, "not charged") {
		t.Errorf("expected reason to note nothing was charged, got %q", result.Reason)
	}
	if f.processor.cancelCalls != 1 {
		t.Errorf("expected one CancelAuthorization call, got %d", f.processor.cancelCalls)
	}
	if f.processor.refundCalls != 0 {
		t.Error("a hold release must not issue a monetary refund")
	}
	if f.appts.appointments["appt-1"].DepositStatus != models.DepositStatusCancelled {
		t.Errorf("expected deposit status cancelled, got %s", f.appts.appointments["appt-1"].DepositStatus)
	}
	if f.payments.cancelledID != "pay-1" {
		t.Error("expected payment marked cancelled")
	}
}

func TestRefundNoPaymentOnFile(t *testing.T) {
	f := newRefundFixture(0, models.DepositStatusNone, 48)

	result, err := f.svc.ProcessCancellationRefund(context.Background(), "appt-1", models.CancelledByClient, "whatever")
	if err != nil {
		t.Fatalf("expected graceful no-op, got %v", err)
	}
	if result.Refunded {
		t.Error("nothing to refund without a payment")
	}
	if f.processor.refundCalls != 0 || f.processor.cancelCalls != 0 {
		t.Error("processor must not be touched without a deposit")
	}
}

func TestRefundProcessorFailureLeavesStateUntouched(t *testing.T) {
	f := newRefundFixture(2000, models.DepositStatusCaptured, 48)
	f.processor.refundErr = errors.New("stripe 502")

	_, err := f.svc.ProcessCancellationRefund(context.Background(), "appt-1", models.CancelledByClient, "change of plans")
	if err == nil {
		t.Fatal("expected processor failure to propagate")
	}
	if f.payments.refundedID != "" {
		t.Error("payment must not be marked refunded after processor failure")
	}
	if f.appts.appointments["appt-1"].DepositStatus != models.DepositStatusCaptured {
		t.Errorf("deposit status must stay captured for a retry, got %s", f.appts.appointments["appt-1"].DepositStatus)
	}
}

func TestRefundUnknownAppointment(t *testing.T) {
	f := newRefundFixture(2000, models.DepositStatusCaptured, 48)

	_, err := f.svc.ProcessCancellationRefund(context.Background(), "missing", models.CancelledByClient, "whatever")
	if !errors.Is(err, utils.ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}
