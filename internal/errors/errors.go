package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so handlers can map it to a status code and
// clients can branch on it without parsing messages.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindStaffNotAssigned    Kind = "STAFF_NOT_ASSIGNED"
	KindEventNotBookable    Kind = "EVENT_NOT_BOOKABLE"
	KindCapacityExceeded    Kind = "CAPACITY_EXCEEDED"
	KindDuplicateBooking    Kind = "DUPLICATE_BOOKING"
	KindPaymentRequired     Kind = "PAYMENT_REQUIRED"
	KindPaymentPending      Kind = "PAYMENT_PENDING"
	KindPaymentNotConfirmed Kind = "PAYMENT_NOT_CONFIRMED"
	KindNotOwner            Kind = "NOT_OWNER"
	KindNotCancellable      Kind = "NOT_CANCELLABLE"
	KindTicketNotActive     Kind = "TICKET_NOT_ACTIVE"
	KindEventWindowClosed   Kind = "EVENT_WINDOW_CLOSED"
	KindNotCheckedIn        Kind = "NOT_CHECKED_IN"
	KindInconsistentState   Kind = "INCONSISTENT_STATE"
	KindValidation          Kind = "VALIDATION"
	KindInternal            Kind = "INTERNAL"
)

// Error is the typed result every service operation fails with. Storage
// conflicts are translated into a Kind before they leave the service layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a Kind onto the response status used by the handlers.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindStaffNotAssigned, KindNotOwner:
		return http.StatusForbidden
	case KindEventNotBookable, KindNotCancellable, KindTicketNotActive,
		KindEventWindowClosed, KindNotCheckedIn:
		return http.StatusUnprocessableEntity
	case KindCapacityExceeded, KindDuplicateBooking, KindInconsistentState:
		return http.StatusConflict
	case KindPaymentRequired, KindPaymentNotConfirmed:
		return http.StatusPaymentRequired
	case KindPaymentPending:
		return http.StatusAccepted
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
