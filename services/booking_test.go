package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/slotwise/slotwise/models"
	"github.com/slotwise/slotwise/utils"
)

type fakeBookingStore struct {
	appointments []*models.Appointment
	createErrs   []error
	nextID       int
	txCount      int
	cancelled    map[string]models.CancelActor
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{cancelled: make(map[string]models.CancelActor)}
}

func (s *fakeBookingStore) WithTransaction(ctx context.Context, fn func(context.Context) error, opts ...*sql.TxOptions) error {
	s.txCount++
	return fn(ctx)
}

func (s *fakeBookingStore) FindConflicting(ctx context.Context, staffID string, start, end time.Time) ([]*models.Appointment, error) {
	var conflicts []*models.Appointment
	for _, a := range s.appointments {
		if a.StaffID == staffID && a.Status != models.AppointmentStatusCancelled && a.Overlaps(start, end) {
			conflicts = append(conflicts, a)
		}
	}
	return conflicts, nil
}

func (s *fakeBookingStore) Create(ctx context.Context, appointment *models.Appointment) error {
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	s.nextID++
	appointment.ID = fmt.Sprintf("appt-%d", s.nextID)
	s.appointments = append(s.appointments, appointment)
	return nil
}

func (s *fakeBookingStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	for _, a := range s.appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, utils.ErrAppointmentNotFound
}

func (s *fakeBookingStore) MarkCancelled(ctx context.Context, id string, cancelledBy models.CancelActor, reason string) error {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	a.Status = models.AppointmentStatusCancelled
	a.CancelledBy = cancelledBy
	a.CancellationReason = reason
	s.cancelled[id] = cancelledBy
	return nil
}

type fakeEnqueuer struct {
	jobs []*models.NotificationJob
	err  error
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, job *models.NotificationJob) error {
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, job)
	return nil
}

func testBookingOptions() BookingOptions {
	return BookingOptions{MaxAttempts: 5, BaseDelay: time.Millisecond, TxTimeout: time.Second}
}

func bookingRequest(staffID string, start, end time.Time) *models.BookingRequest {
	return &models.BookingRequest{
		TenantID:     "tenant-1",
		StaffID:      staffID,
		ClientID:     "client-1",
		ServiceID:    "service-1",
		StartsAt:     start,
		EndsAt:       end,
		PriceCents:   5000,
		DepositCents: 1000,
		ClientEmail:  "client@example.com",
	}
}

func TestBookSlotCreatesConfirmedAppointment(t *testing.T) {
	store := newFakeBookingStore()
	jobs := &fakeEnqueuer{}
	svc := NewBookingService(store, jobs, testBookingOptions())

	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	appt, err := svc.BookSlot(context.Background(), bookingRequest("staff-1", start, start.Add(time.Hour)))
	if err != nil {
		t.Fatalf("expected booking to succeed, got %v", err)
	}
	if appt.Status != models.AppointmentStatusConfirmed {
		t.Errorf("expected confirmed status, got %s", appt.Status)
	}
	if appt.DepositStatus != models.DepositStatusNone {
		t.Errorf("expected deposit status none, got %s", appt.DepositStatus)
	}

	if len(jobs.jobs) != 1 {
		t.Fatalf("expected 1 notification job, got %d", len(jobs.jobs))
	}
	job := jobs.jobs[0]
	if job.Type != models.NotificationTypeBookingConfirmed {
		t.Errorf("expected booking_confirmed job, got %s", job.Type)
	}
	if email, _ := job.Payload["email"].(string); email != "client@example.com" {
		t.Errorf("expected client email in payload, got %q", email)
	}
}

func TestBookSlotRejectsInvalidRange(t *testing.T) {
	svc := NewBookingService(newFakeBookingStore(), &fakeEnqueuer{}, testBookingOptions())

	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	_, err := svc.BookSlot(context.Background(), bookingRequest("staff-1", start, start))
	if !errors.Is(err, utils.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestBookSlotConflictIsNotRetried(t *testing.T) {
	store := newFakeBookingStore()
	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	store.appointments = append(store.appointments, &models.Appointment{
		ID:       "existing",
		StaffID:  "staff-1",
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		Status:   models.AppointmentStatusConfirmed,
	})

	svc := NewBookingService(store, &fakeEnqueuer{}, testBookingOptions())

	_, err := svc.BookSlot(context.Background(), bookingRequest("staff-1", start.Add(30*time.Minute), start.Add(90*time.Minute)))
	if !errors.Is(err, utils.ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
	if store.txCount != 1 {
		t.Errorf("semantic conflict must not be retried, ran %d transactions", store.txCount)
	}
}

func TestBookSlotCancelledAppointmentDoesNotBlock(t *testing.T) {
	store := newFakeBookingStore()
	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	store.appointments = append(store.appointments, &models.Appointment{
		ID:       "cancelled",
		StaffID:  "staff-1",
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		Status:   models.AppointmentStatusCancelled,
	})

	svc := NewBookingService(store, &fakeEnqueuer{}, testBookingOptions())

	if _, err := svc.BookSlot(context.Background(), bookingRequest("staff-1", start, start.Add(time.Hour))); err != nil {
		t.Fatalf("cancelled appointment must free its slot, got %v", err)
	}
}

func TestBookSlotBoundaryTouchingAllowed(t *testing.T) {
	store := newFakeBookingStore()
	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	store.appointments = append(store.appointments, &models.Appointment{
		ID:       "existing",
		StaffID:  "staff-1",
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		Status:   models.AppointmentStatusConfirmed,
	})

	svc := NewBookingService(store, &fakeEnqueuer{}, testBookingOptions())

	if _, err := svc.BookSlot(context.Background(), bookingRequest("staff-1", start.Add(time.Hour), start.Add(2*time.Hour))); err != nil {
		t.Fatalf("back-to-back appointment must be allowed, got %v", err)
	}
}

func TestBookSlotOtherStaffUnaffected(t *testing.T) {
	store := newFakeBookingStore()
	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	store.appointments = append(store.appointments, &models.Appointment{
		ID:       "existing",
		StaffID:  "staff-1",
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		Status:   models.AppointmentStatusConfirmed,
	})

	svc := NewBookingService(store, &fakeEnqueuer{}, testBookingOptions())

	if _, err := svc.BookSlot(context.Background(), bookingRequest("staff-2", start, start.Add(time.Hour))); err != nil {
		t.Fatalf("different staff member must book freely, got %v", err)
	}
}

func TestBookSlotRetriesTransientWriteConflicts(t *testing.T) {
	store := newFakeBookingStore()
	serialization := &pgconn.PgError{Code: "40001"}
	store.createErrs = []error{serialization, serialization, serialization, serialization}

	svc := NewBookingService(store, &fakeEnqueuer{}, testBookingOptions())

	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	appt, err := svc.BookSlot(context.Background(), bookingRequest("staff-1", start, start.Add(time.Hour)))
	if err != nil {
		t.Fatalf("expected success after transient failures, got %v", err)
	}
	if appt == nil {
		t.Fatal("expected appointment on success")
	}
	if store.txCount != 5 {
		t.Errorf("expected 5 transaction attempts, got %d", store.txCount)
	}
}

func TestBookSlotGivesUpAfterMaxAttempts(t *testing.T) {
	store := newFakeBookingStore()
	serialization := &pgconn.PgError{Code: "40001"}
	store.createErrs = []error{serialization, serialization, serialization}

	opts := testBookingOptions()
	opts.MaxAttempts = 3
	svc := NewBookingService(store, &fakeEnqueuer{}, opts)

	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	_, err := svc.BookSlot(context.Background(), bookingRequest("staff-1", start, start.Add(time.Hour)))
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if store.txCount != 3 {
		t.Errorf("expected 3 transaction attempts, got %d", store.txCount)
	}
}

func TestBookSlotExclusionViolationIsConflict(t *testing.T) {
	store := newFakeBookingStore()
	store.createErrs = []error{&pgconn.PgError{Code: "23P01"}}

	svc := NewBookingService(store, &fakeEnqueuer{}, testBookingOptions())

	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	_, err := svc.BookSlot(context.Background(), bookingRequest("staff-1", start, start.Add(time.Hour)))
	if !errors.Is(err, utils.ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict from exclusion violation, got %v", err)
	}
	if store.txCount != 1 {
		t.Errorf("lost insert race is semantic, must not retry; ran %d transactions", store.txCount)
	}
}

func TestCancelMarksAndEnqueuesNotice(t *testing.T) {
	store := newFakeBookingStore()
	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	store.appointments = append(store.appointments, &models.Appointment{
		ID:       "appt-1",
		TenantID: "tenant-1",
		ClientID: "client-1",
		StaffID:  "staff-1",
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		Status:   models.AppointmentStatusConfirmed,
	})
	jobs := &fakeEnqueuer{}
	svc := NewBookingService(store, jobs, testBookingOptions())

	appt, err := svc.Cancel(context.Background(), "appt-1", models.CancelledByClient, "feeling unwell")
	if err != nil {
		t.Fatalf("expected cancel to succeed, got %v", err)
	}
	if appt.Status != models.AppointmentStatusCancelled {
		t.Errorf("expected cancelled status, got %s", appt.Status)
	}
	if store.cancelled["appt-1"] != models.CancelledByClient {
		t.Error("expected cancellation recorded with client actor")
	}
	if len(jobs.jobs) != 1 || jobs.jobs[0].Type != models.NotificationTypeCancellation {
		t.Fatalf("expected one cancellation notification job, got %+v", jobs.jobs)
	}
}

func TestCancelUnknownAppointment(t *testing.T) {
	svc := NewBookingService(newFakeBookingStore(), &fakeEnqueuer{}, testBookingOptions())

	_, err := svc.Cancel(context.Background(), "missing", models.CancelledBySalon, "closed")
	if !errors.Is(err, utils.ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}
