package session

import (
	"testing"

	domainErrors "github.com/commercegate/paypal-sessions/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	sess, err := New(49.99, "USD")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, sess.Status)
	assert.Equal(t, 49.99, sess.Amount)
	assert.Equal(t, "USD", sess.Currency)
	assert.NotZero(t, sess.ID)
	assert.NotNil(t, sess.Metadata)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(0, "USD")
	var vErr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = New(-10, "USD")
	assert.ErrorAs(t, err, &vErr)

	_, err = New(10, "US")
	assert.ErrorAs(t, err, &vErr)
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusAuthorized, true},
		{StatusPending, StatusCaptured, true},
		{StatusPending, StatusCanceled, true},
		{StatusRequiresMore, StatusPending, true},
		{StatusRequiresMore, StatusAuthorized, true},
		{StatusAuthorized, StatusCaptured, true},
		{StatusAuthorized, StatusCanceled, true},
		{StatusCaptured, StatusCanceled, true},
		{StatusCaptured, StatusAuthorized, false},
		{StatusCanceled, StatusAuthorized, false},
		{StatusCanceled, StatusPending, false},
		{StatusError, StatusPending, true},
		{StatusError, StatusCaptured, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			sess, err := New(10, "USD")
			require.NoError(t, err)
			sess.Status = tt.from

			assert.Equal(t, tt.allowed, sess.CanTransitionTo(tt.to))
			err = sess.TransitionTo(tt.to)
			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, sess.Status)
			} else {
				assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
				assert.Equal(t, tt.from, sess.Status)
			}
		})
	}
}

func TestTransitionTo_SameStatusIsNoop(t *testing.T) {
	sess, err := New(10, "USD")
	require.NoError(t, err)
	sess.Status = StatusCanceled

	assert.NoError(t, sess.TransitionTo(StatusCanceled))
}

func TestApplyProviderStatus_Unconditional(t *testing.T) {
	sess, err := New(10, "USD")
	require.NoError(t, err)
	sess.Status = StatusCaptured

	// Provider state wins even against the state machine.
	sess.ApplyProviderStatus(StatusPending)
	assert.Equal(t, StatusPending, sess.Status)
}

func TestMarkFailed(t *testing.T) {
	sess, err := New(10, "USD")
	require.NoError(t, err)

	require.NoError(t, sess.MarkFailed("capture denied"))
	assert.Equal(t, StatusError, sess.Status)
	require.NotNil(t, sess.LastError)
	assert.Equal(t, "capture denied", *sess.LastError)
}

func TestIsTerminal(t *testing.T) {
	sess, err := New(10, "USD")
	require.NoError(t, err)
	assert.False(t, sess.IsTerminal())

	sess.Status = StatusCanceled
	assert.True(t, sess.IsTerminal())

	// Error is recoverable, not terminal.
	sess.Status = StatusError
	assert.False(t, sess.IsTerminal())
}
