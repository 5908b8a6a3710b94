package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/psp"
	"github.com/ledgerline/billing-core/internal/psp/mocks"
	"github.com/ledgerline/billing-core/internal/store"
)

// Input validation runs before the reference_id pre-check touches the store,
// so these paths need no collaborators.

func TestChargeCreateRejectsNonPositiveAmount(t *testing.T) {
	svc := NewChargeService(nil, nil, zap.NewNop())

	for _, amount := range []int64{0, -100} {
		_, err := svc.Create(context.Background(), CreateChargeInput{
			AppID:       "acme",
			CustomerID:  uuid.New(),
			AmountCents: amount,
			ReferenceID: "pickup:789",
		})
		require.Error(t, err, "amount %d", amount)
		kind, _ := apperr.Of(err)
		assert.Equal(t, apperr.KindValidation, kind)
	}
}

func TestChargeCreateRequiresReferenceID(t *testing.T) {
	svc := NewChargeService(nil, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateChargeInput{
		AppID:       "acme",
		CustomerID:  uuid.New(),
		AmountCents: 3500,
	})
	require.Error(t, err)
	kind, _ := apperr.Of(err)
	assert.Equal(t, apperr.KindValidation, kind)
	assert.Contains(t, err.Error(), "reference_id")
}

func TestChargeCreateMarksSucceededAfterPSP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	customerID := uuid.New()
	db := &fakeDB{rowQueue: []fakeRow{
		{err: store.ErrNotFound}, // reference_id pre-check misses
		{vals: customerRow("acme", customerID, sptr("cus_1"), sptr("pm_1"), sptr("card"))},
	}}
	svc := NewChargeService(db, client, zap.NewNop())

	client.EXPECT().
		CreateCharge(gomock.Any(), "cus_1", "pm_1", int64(3500), "usd", "extra_pickup").
		Return(&psp.ChargeResult{PSPChargeID: "ch_1"}, nil).
		Times(1)

	charge, err := svc.Create(context.Background(), CreateChargeInput{
		AppID:       "acme",
		CustomerID:  customerID,
		AmountCents: 3500,
		Currency:    "usd",
		Reason:      "extra_pickup",
		ReferenceID: "pickup:789",
	})
	require.NoError(t, err)
	assert.Equal(t, store.ChargeSucceeded, charge.Status)
	require.NotNil(t, charge.PSPChargeID)
	assert.Equal(t, "ch_1", *charge.PSPChargeID)

	// The pending row commits before the PSP call, then flips to succeeded.
	require.Len(t, db.execs, 2)
	assert.Contains(t, db.execs[0].sql, "INSERT INTO charges")
	assert.Contains(t, db.execs[1].sql, "psp_charge_id")
}

func TestChargeCreateReturnsExistingRowWithoutPSP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl) // no EXPECT: any PSP call fails the test

	existingID := uuid.New()
	customerID := uuid.New()
	db := &fakeDB{rowQueue: []fakeRow{
		{vals: chargeRow("acme", existingID, customerID, sptr("ch_1"), sptr("pickup:789"), store.ChargeSucceeded)},
	}}
	svc := NewChargeService(db, client, zap.NewNop())

	charge, err := svc.Create(context.Background(), CreateChargeInput{
		AppID:       "acme",
		CustomerID:  customerID,
		AmountCents: 3500,
		ReferenceID: "pickup:789",
	})
	require.NoError(t, err)
	assert.Equal(t, existingID, charge.ID)
	assert.Empty(t, db.execs)
}

func TestChargeCreatePersistsFailureOnPSPError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	customerID := uuid.New()
	db := &fakeDB{rowQueue: []fakeRow{
		{err: store.ErrNotFound},
		{vals: customerRow("acme", customerID, sptr("cus_1"), sptr("pm_1"), sptr("card"))},
	}}
	svc := NewChargeService(db, client, zap.NewNop())

	client.EXPECT().
		CreateCharge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperr.PaymentProcessor("card_declined", "Your card was declined.", nil)).
		Times(1)

	_, err := svc.Create(context.Background(), CreateChargeInput{
		AppID:       "acme",
		CustomerID:  customerID,
		AmountCents: 3500,
		Currency:    "usd",
		ReferenceID: "pickup:789",
	})
	require.Error(t, err)
	kind, _ := apperr.Of(err)
	assert.Equal(t, apperr.KindPaymentProcessor, kind)

	// The failed row persists for audit.
	require.Len(t, db.execs, 2)
	assert.Contains(t, db.execs[1].sql, "failure_code")
	assert.Contains(t, db.execs[1].args, "card_declined")
}

func TestChargeCreateRecoversFromReferenceIDRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl) // loser must not call the PSP

	winnerID := uuid.New()
	customerID := uuid.New()
	db := &fakeDB{
		rowQueue: []fakeRow{
			{err: store.ErrNotFound}, // pre-check misses
			{vals: customerRow("acme", customerID, sptr("cus_1"), sptr("pm_1"), sptr("card"))},
			{vals: chargeRow("acme", winnerID, customerID, sptr("ch_1"), sptr("pickup:789"), store.ChargeSucceeded)},
		},
		execErrs: []error{uniqueViolation()}, // concurrent insert wins first
	}
	svc := NewChargeService(db, client, zap.NewNop())

	charge, err := svc.Create(context.Background(), CreateChargeInput{
		AppID:       "acme",
		CustomerID:  customerID,
		AmountCents: 3500,
		ReferenceID: "pickup:789",
	})
	require.NoError(t, err)
	assert.Equal(t, winnerID, charge.ID)
}
