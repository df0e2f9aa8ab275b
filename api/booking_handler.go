package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/slotwise/slotwise/models"
	"github.com/slotwise/slotwise/services"
	"github.com/slotwise/slotwise/utils"
)

// AppointmentReader lists a staff member's appointments for the
// availability endpoint.
type AppointmentReader interface {
	ListForStaffBetween(ctx context.Context, staffID string, from, to time.Time) ([]*models.Appointment, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkNoShow(ctx context.Context, id string) error
}

type BookingHandler struct {
	booking      *services.BookingService
	refunds      *services.RefundService
	appointments AppointmentReader
	logger       *utils.Logger
}

func NewBookingHandler(booking *services.BookingService, refunds *services.RefundService, appointments AppointmentReader) *BookingHandler {
	return &BookingHandler{
		booking:      booking,
		refunds:      refunds,
		appointments: appointments,
		logger:       utils.NewLogger("booking-api"),
	}
}

func (h *BookingHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.TenantID == "" || req.StaffID == "" || req.ClientID == "" || req.ServiceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant_id, staff_id, client_id and service_id are required"})
		return
	}

	appointment, err := h.booking.BookSlot(r.Context(), &req)
	if err != nil {
		h.logger.Warn(r.Context(), "booking rejected", map[string]interface{}{
			"staff_id": req.StaffID,
			"error":    err.Error(),
		})
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, appointment)
}

type cancelRequest struct {
	CancelledBy string `json:"cancelled_by"`
	Reason      string `json:"reason"`
}

type cancelResponse struct {
	Appointment *models.Appointment  `json:"appointment"`
	Refund      *models.RefundResult `json:"refund"`
}

// CancelAppointment cancels the slot and then runs the refund policy.
// A refund failure after a successful cancellation returns 502 with the
// cancelled appointment attached; the refund can be retried safely
// because local payment state is untouched on processor failure.
func (h *BookingHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	actor := models.CancelActor(req.CancelledBy)
	if actor != models.CancelledByClient && actor != models.CancelledBySalon {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cancelled_by must be client or salon"})
		return
	}

	appointment, err := h.booking.Cancel(r.Context(), id, actor, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	refund, err := h.refunds.ProcessCancellationRefund(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.logger.Error(r.Context(), "refund processing failed after cancellation", map[string]interface{}{
			"appointment_id": id,
			"error":          err.Error(),
		})
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"appointment": appointment,
			"error":       "appointment cancelled but refund processing failed; retry the refund",
		})
		return
	}

	writeJSON(w, http.StatusOK, cancelResponse{Appointment: appointment, Refund: refund})
}

func (h *BookingHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.appointments.MarkCompleted(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(models.AppointmentStatusCompleted)})
}

func (h *BookingHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.appointments.MarkNoShow(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(models.AppointmentStatusNoShow)})
}

// StaffSchedule lists a staff member's non-cancelled appointments in
// [from, to). Defaults to the next 7 days.
func (h *BookingHandler) StaffSchedule(w http.ResponseWriter, r *http.Request) {
	staffID := mux.Vars(r)["staff_id"]

	from := time.Now()
	to := from.Add(7 * 24 * time.Hour)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be RFC3339"})
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be RFC3339"})
			return
		}
		to = parsed
	}
	if !to.After(from) {
		writeError(w, utils.ErrInvalidTimeRange)
		return
	}

	appointments, err := h.appointments.ListForStaffBetween(r.Context(), staffID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"staff_id":     staffID,
		"from":         from.Format(time.RFC3339),
		"to":           to.Format(time.RFC3339),
		"appointments": appointments,
	})
}
