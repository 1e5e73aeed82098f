package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRepository_Transition(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepository(mock)
	amount := int64(500)
	now := time.Now()
	tr := model.Transition{
		PaymentID:       9,
		From:            model.PaymentStatusPendingCash,
		To:              model.PaymentStatusVerified,
		VerifiedBy:      3,
		VerifiedAt:      now,
		AmountCollected: &amount,
		CollectedAt:     &now,
	}

	t.Run("applies when status matches", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payments\s+SET status = \$1`).
			WithArgs(model.PaymentStatusVerified, int64(3), now, &amount, &now, pgxmock.AnyArg(), int64(9), model.PaymentStatusPendingCash).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.Transition(context.Background(), tr))
	})

	t.Run("zero rows means someone else finalized it", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payments\s+SET status = \$1`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Transition(context.Background(), tr)
		assert.ErrorIs(t, err, ErrStaleState)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_AttachReceipt_NotPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`UPDATE payments pay\s+SET receipt_path`).
		WithArgs("receipts/1/a.png", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"receipt_path"}))

	previous, err := NewPaymentRepository(mock).AttachReceipt(context.Background(), 1, model.Receipt{Path: "receipts/1/a.png", UploadedAt: time.Now()})
	assert.ErrorIs(t, err, ErrStaleState)
	assert.Nil(t, previous)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_AttachReceipt_ReturnsReplacedPath(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	old := "receipts/1/old.png"
	mock.ExpectQuery(`FROM \(SELECT id, receipt_path FROM payments WHERE id = \$5 FOR UPDATE\) prev`).
		WithArgs("receipts/1/new.png", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"receipt_path"}).AddRow(&old))

	previous, err := NewPaymentRepository(mock).AttachReceipt(context.Background(), 1, model.Receipt{Path: "receipts/1/new.png", UploadedAt: time.Now()})
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, old, *previous)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_Create_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO payments`).
		WithArgs(int64(4), pgxmock.AnyArg(), int64(1000), model.PaymentMethodCash, model.PaymentStatusPendingCash).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payments_participant_id_key"})

	p := &model.Payment{ParticipantID: 4, Amount: 1000, Method: model.PaymentMethodCash, Status: model.PaymentStatusPendingCash}
	err = NewPaymentRepository(mock).Create(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, "payment method already selected", apperrors.Message(err, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_List_SearchFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	email, txID := "A@x.edu", "TX-9"
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	mock.ExpectQuery(`WHERE u\.email = LOWER\(\$1\) AND pay\.transaction_id = \$2 AND pay\.created_at >= \$3 AND pay\.created_at <= \$4 ORDER BY pay\.created_at DESC, pay\.id DESC LIMIT \$5 OFFSET \$6`).
		WithArgs(email, txID, from, to, 20, 40).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	payments, err := NewPaymentRepository(mock).List(context.Background(), model.PaymentFilters{
		Email:         &email,
		TransactionID: &txID,
		CreatedFrom:   &from,
		CreatedTo:     &to,
		Limit:         20,
		Offset:        40,
	})
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
