package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := New(KindCapacityExceeded, "sold out")
	assert.Equal(t, KindCapacityExceeded, KindOf(err))
	assert.True(t, Is(err, KindCapacityExceeded))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, KindCapacityExceeded, KindOf(wrapped))

	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("plain error")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "sold out", MessageOf(New(KindCapacityExceeded, "sold out")))
	assert.Equal(t, "internal error", MessageOf(fmt.Errorf("db exploded")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(KindInternal, "failed to get event", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to get event")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	for kind, want := range map[Kind]int{
		KindNotFound:            http.StatusNotFound,
		KindUnauthorized:        http.StatusUnauthorized,
		KindStaffNotAssigned:    http.StatusForbidden,
		KindNotOwner:            http.StatusForbidden,
		KindCapacityExceeded:    http.StatusConflict,
		KindDuplicateBooking:    http.StatusConflict,
		KindInconsistentState:   http.StatusConflict,
		KindEventNotBookable:    http.StatusUnprocessableEntity,
		KindNotCancellable:      http.StatusUnprocessableEntity,
		KindTicketNotActive:     http.StatusUnprocessableEntity,
		KindEventWindowClosed:   http.StatusUnprocessableEntity,
		KindNotCheckedIn:        http.StatusUnprocessableEntity,
		KindPaymentRequired:     http.StatusPaymentRequired,
		KindPaymentNotConfirmed: http.StatusPaymentRequired,
		KindPaymentPending:      http.StatusAccepted,
		KindValidation:          http.StatusBadRequest,
		KindInternal:            http.StatusInternalServerError,
	} {
		assert.Equal(t, want, kind.HTTPStatus(), "kind %s", kind)
	}
}
