package model

import (
	"errors"
	"testing"

	"conference_registration/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransition(t *testing.T) {
	t.Run("online verify needs admin capability", func(t *testing.T) {
		c, err := CheckTransition(PaymentMethodOnline, PaymentStatusPending, PaymentStatusVerified)
		require.NoError(t, err)
		assert.Equal(t, CapVerifyOnline, c)
	})

	t.Run("online reject", func(t *testing.T) {
		c, err := CheckTransition(PaymentMethodOnline, PaymentStatusPending, PaymentStatusRejected)
		require.NoError(t, err)
		assert.Equal(t, CapVerifyOnline, c)
	})

	t.Run("cash verify needs collect capability", func(t *testing.T) {
		c, err := CheckTransition(PaymentMethodCash, PaymentStatusPendingCash, PaymentStatusVerified)
		require.NoError(t, err)
		assert.Equal(t, CapCollectCash, c)
	})

	t.Run("cash reject is not allowed", func(t *testing.T) {
		_, err := CheckTransition(PaymentMethodCash, PaymentStatusPendingCash, PaymentStatusRejected)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
	})

	t.Run("terminal states are final", func(t *testing.T) {
		for _, from := range []PaymentStatus{PaymentStatusVerified, PaymentStatusRejected} {
			for _, to := range []PaymentStatus{PaymentStatusPending, PaymentStatusVerified, PaymentStatusRejected} {
				_, err := CheckTransition(PaymentMethodOnline, from, to)
				assert.True(t, errors.Is(err, apperrors.ErrConflict), "%s -> %s", from, to)
				assert.Equal(t, "payment already finalized", err.Error())
			}
		}
	})

	t.Run("method and state mismatch", func(t *testing.T) {
		_, err := CheckTransition(PaymentMethodOnline, PaymentStatusPendingCash, PaymentStatusVerified)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
	})
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, PaymentStatusPending, InitialStatus(PaymentMethodOnline))
	assert.Equal(t, PaymentStatusPendingCash, InitialStatus(PaymentMethodCash))
}

func TestIsPaymentComplete(t *testing.T) {
	verified := PaymentStatusVerified
	pending := PaymentStatusPending
	members := func(statuses ...*PaymentStatus) []TeamMemberStatus {
		out := make([]TeamMemberStatus, len(statuses))
		for i, s := range statuses {
			out[i] = TeamMemberStatus{ParticipantID: int64(i + 1), PaymentStatus: s}
		}
		return out
	}

	assert.True(t, IsPaymentComplete(members(&verified, &verified), 2))
	assert.False(t, IsPaymentComplete(members(&verified), 2), "below minimum size")
	assert.False(t, IsPaymentComplete(members(&verified, &pending), 2))
	assert.False(t, IsPaymentComplete(members(&verified, nil), 2), "member without payment")
	assert.False(t, IsPaymentComplete(nil, 0))
}
