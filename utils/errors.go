package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors surfaced by the booking core. ErrSlotConflict is a
// semantic rejection and is never retried.
var (
	ErrSlotConflict        = errors.New("slot conflict: staff member is already booked for this time range")
	ErrInvalidTimeRange    = errors.New("invalid time range: end must be after start")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrProcessorFailure    = errors.New("payment processor failure")
)

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func WrapError(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

func GetHTTPStatusFromError(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	switch {
	case errors.Is(err, ErrSlotConflict):
		return http.StatusConflict
	case errors.Is(err, ErrAppointmentNotFound), errors.Is(err, ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTimeRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrProcessorFailure):
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
