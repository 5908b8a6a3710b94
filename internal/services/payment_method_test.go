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

func TestAddAttachesTokenAndStoresMaskedDetail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	customerID := uuid.New()
	db := &fakeDB{rowQueue: []fakeRow{
		{vals: customerRow("acme", customerID, sptr("cus_1"), nil, nil)},
		{err: store.ErrNotFound}, // upsert finds no existing row for the token
	}}
	svc := NewPaymentMethodService(db, client, zap.NewNop())

	client.EXPECT().
		AttachPaymentMethod(gomock.Any(), "cus_1", "pm_tok").
		Return(&psp.PaymentMethodResult{
			PSPPaymentMethodID: "pm_tok",
			Type:               "card",
			Brand:              "visa",
			Last4:              "4242",
			ExpMonth:           12,
			ExpYear:            2030,
		}, nil).
		Times(1)

	pm, err := svc.Add(context.Background(), AddPaymentMethodInput{
		AppID:      "acme",
		CustomerID: customerID,
		Token:      "pm_tok",
	})
	require.NoError(t, err)
	assert.Equal(t, store.PaymentMethodCard, pm.Type)
	require.NotNil(t, pm.Brand)
	assert.Equal(t, "visa", *pm.Brand)
	require.NotNil(t, pm.Last4)
	assert.Equal(t, "4242", *pm.Last4)

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "INSERT INTO payment_methods")
}

func TestAddUnknownCustomerIsNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl) // customer check fails before any PSP call

	svc := NewPaymentMethodService(&fakeDB{}, client, zap.NewNop())

	_, err := svc.Add(context.Background(), AddPaymentMethodInput{
		AppID:      "acme",
		CustomerID: uuid.New(),
		Token:      "pm_tok",
	})
	require.Error(t, err)
	kind, _ := apperr.Of(err)
	assert.Equal(t, apperr.KindNotFound, kind)
}

// Deleting the default method soft-deletes it and clears the customer's
// fast-path fields; a failed PSP detach is warn-only.
func TestDeleteClearsDefaultAndSurvivesDetachFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	customerID := uuid.New()
	methodID := uuid.New()
	db := &fakeDB{listQueue: [][]fakeRow{
		{{vals: paymentMethodRow("acme", methodID, customerID, "pm_tok", true)}},
	}}
	svc := NewPaymentMethodService(db, client, zap.NewNop())

	client.EXPECT().
		DetachPaymentMethod(gomock.Any(), "pm_tok").
		Return(apperr.PaymentProcessor("api_error", "processor unavailable", nil)).
		Times(1)

	err := svc.Delete(context.Background(), "acme", customerID, methodID)
	require.NoError(t, err)

	require.Len(t, db.execs, 2)
	assert.Contains(t, db.execs[0].sql, "deleted_at = now()")
	assert.Contains(t, db.execs[1].sql, "default_payment_method_token = NULL")
}

func TestDeleteUnknownMethodIsNotFound(t *testing.T) {
	db := &fakeDB{listQueue: [][]fakeRow{{}}}
	svc := NewPaymentMethodService(db, nil, zap.NewNop())

	err := svc.Delete(context.Background(), "acme", uuid.New(), uuid.New())
	require.Error(t, err)
	kind, _ := apperr.Of(err)
	assert.Equal(t, apperr.KindNotFound, kind)
	assert.Empty(t, db.execs)
}
