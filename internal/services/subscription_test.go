package services

import (
	"context"
	"testing"
	"time"

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

// The field whitelists run before any store or PSP access, so a request
// carrying unsupported mutation fields is rejected without collaborators.

func TestUpdateRejectsUnsupportedFieldsByName(t *testing.T) {
	svc := NewSubscriptionService(nil, nil, zap.NewNop())

	_, err := svc.Update(context.Background(), "acme", uuid.New(), UpdateSubscriptionInput{
		Fields: map[string]any{
			"plan_id":       "pro-annual",
			"interval_unit": "year",
			"app_id":        "otherapp",
		},
	})

	require.Error(t, err)
	kind, ok := apperr.Of(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, kind)
	assert.Contains(t, err.Error(), "unsupported field(s)")
	assert.Contains(t, err.Error(), "interval_unit")
	assert.Contains(t, err.Error(), "app_id")
	assert.NotContains(t, err.Error(), "plan_id")
}

func TestUpdateWhitelistCoversExactlyTheMutableFields(t *testing.T) {
	for _, field := range []string{"plan_id", "plan_name", "price_cents", "metadata"} {
		assert.True(t, updatableFields[field], field)
	}
	for _, field := range []string{"app_id", "interval_unit", "interval_count", "status", "customer_id"} {
		assert.False(t, updatableFields[field], field)
	}
}

func TestChangeCycleRejectsUnsupportedFieldsByName(t *testing.T) {
	svc := NewSubscriptionService(nil, nil, zap.NewNop())

	_, err := svc.ChangeCycle(context.Background(), "acme", ChangeCycleInput{
		Fields: map[string]any{
			"customer_id": "c1",
			"status":      "active",
		},
	})

	require.Error(t, err)
	kind, _ := apperr.Of(err)
	assert.Equal(t, apperr.KindValidation, kind)
	assert.Contains(t, err.Error(), "status")
	assert.NotContains(t, err.Error(), "customer_id")
}

func subscriptionPeriod() (time.Time, time.Time) {
	start := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func TestSubscriptionCreateFailsFastOnPSPError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	customerID := uuid.New()
	db := &fakeDB{rowQueue: []fakeRow{
		{vals: customerRow("acme", customerID, sptr("cus_1"), sptr("pm_1"), sptr("card"))},
	}}
	svc := NewSubscriptionService(db, client, zap.NewNop())

	client.EXPECT().
		CreateSubscription(gomock.Any(), gomock.Any()).
		Return(nil, apperr.PaymentProcessor("resource_missing", "no such price", nil)).
		Times(1)

	start, end := subscriptionPeriod()
	_, err := svc.Create(context.Background(), CreateSubscriptionInput{
		AppID:              "acme",
		CustomerID:         customerID,
		PlanID:             "pro-monthly",
		PlanName:           "Pro Monthly",
		PriceCents:         9900,
		IntervalUnit:       store.IntervalMonth,
		IntervalCount:      1,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
	})
	require.Error(t, err)
	// No local row persists for a failed creation.
	assert.Empty(t, db.execs)
}

func TestSubscriptionCreatePersistsAfterPSPSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	customerID := uuid.New()
	db := &fakeDB{rowQueue: []fakeRow{
		{vals: customerRow("acme", customerID, sptr("cus_1"), sptr("pm_1"), sptr("card"))},
	}}
	svc := NewSubscriptionService(db, client, zap.NewNop())

	client.EXPECT().
		CreateSubscription(gomock.Any(), psp.CreateSubscriptionParams{
			PSPCustomerID:   "cus_1",
			PriceID:         "pro-monthly",
			PaymentMethodID: "pm_1",
			Quantity:        1,
		}).
		Return(&psp.SubscriptionResult{PSPSubscriptionID: "sub_new"}, nil).
		Times(1)

	start, end := subscriptionPeriod()
	sub, err := svc.Create(context.Background(), CreateSubscriptionInput{
		AppID:              "acme",
		CustomerID:         customerID,
		PlanID:             "pro-monthly",
		PlanName:           "Pro Monthly",
		PriceCents:         9900,
		IntervalUnit:       store.IntervalMonth,
		IntervalCount:      1,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
	})
	require.NoError(t, err)
	require.NotNil(t, sub.PSPSubscriptionID)
	assert.Equal(t, "sub_new", *sub.PSPSubscriptionID)

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "INSERT INTO subscriptions")
}

func TestSubscriptionCreateRequiresPaymentMethod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	customerID := uuid.New()
	db := &fakeDB{rowQueue: []fakeRow{
		{vals: customerRow("acme", customerID, sptr("cus_1"), nil, nil)},
	}}
	svc := NewSubscriptionService(db, client, zap.NewNop())

	start, end := subscriptionPeriod()
	_, err := svc.Create(context.Background(), CreateSubscriptionInput{
		AppID:              "acme",
		CustomerID:         customerID,
		PlanID:             "pro-monthly",
		PlanName:           "Pro Monthly",
		PriceCents:         9900,
		IntervalUnit:       store.IntervalMonth,
		IntervalCount:      1,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
	})
	require.Error(t, err)
	kind, _ := apperr.Of(err)
	assert.Equal(t, apperr.KindConflict, kind)
}

func TestCancelNowFailsFastOnPSPError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	subID := uuid.New()
	start, end := subscriptionPeriod()
	db := &fakeDB{rowQueue: []fakeRow{
		{vals: subscriptionRow("acme", subID, uuid.New(), sptr("sub_1"), 9900, start, end)},
	}}
	svc := NewSubscriptionService(db, client, zap.NewNop())

	client.EXPECT().
		CancelNow(gomock.Any(), "sub_1").
		Return(apperr.PaymentProcessor("api_error", "processor unavailable", nil)).
		Times(1)

	_, err := svc.Cancel(context.Background(), "acme", subID, false)
	require.Error(t, err)
	assert.Empty(t, db.execs)
}

func TestCancelNowMarksCanceledAfterPSP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	subID := uuid.New()
	start, end := subscriptionPeriod()
	db := &fakeDB{rowQueue: []fakeRow{
		{vals: subscriptionRow("acme", subID, uuid.New(), sptr("sub_1"), 9900, start, end)},
	}}
	svc := NewSubscriptionService(db, client, zap.NewNop())

	client.EXPECT().CancelNow(gomock.Any(), "sub_1").Return(nil).Times(1)

	sub, err := svc.Cancel(context.Background(), "acme", subID, false)
	require.NoError(t, err)
	assert.Equal(t, store.SubCanceled, sub.Status)
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "canceled_at")
}

func TestCancelAtPeriodEndIsBestEffortTowardPSP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	subID := uuid.New()
	start, end := subscriptionPeriod()
	db := &fakeDB{rowQueue: []fakeRow{
		{vals: subscriptionRow("acme", subID, uuid.New(), sptr("sub_1"), 9900, start, end)},
	}}
	svc := NewSubscriptionService(db, client, zap.NewNop())

	// Local truth is set first; the PSP sync may fail without failing the
	// request.
	client.EXPECT().
		UpdateCancelAtPeriodEnd(gomock.Any(), "sub_1", true).
		Return(apperr.PaymentProcessor("api_error", "processor unavailable", nil)).
		Times(1)

	sub, err := svc.Cancel(context.Background(), "acme", subID, true)
	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, store.SubActive, sub.Status)
	require.Len(t, db.execs, 1)
}

// If cancel-old fails, the whole operation aborts before any local write:
// no new row, no mutation of the old one.
func TestChangeCycleAbortsBeforeLocalWriteWhenCancelOldFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	customerID := uuid.New()
	oldSubID := uuid.New()
	start, end := subscriptionPeriod()
	db := &fakeDB{rowQueue: []fakeRow{
		{vals: customerRow("acme", customerID, sptr("cus_1"), sptr("pm_1"), sptr("card"))},
		{vals: subscriptionRow("acme", oldSubID, customerID, sptr("sub_old"), 9900, start, end)},
	}}
	svc := NewSubscriptionService(db, client, zap.NewNop())

	client.EXPECT().
		CreateSubscription(gomock.Any(), gomock.Any()).
		Return(&psp.SubscriptionResult{PSPSubscriptionID: "sub_new"}, nil).
		Times(1)
	client.EXPECT().
		CancelNow(gomock.Any(), "sub_old").
		Return(apperr.PaymentProcessor("api_error", "processor unavailable", nil)).
		Times(1)

	_, err := svc.ChangeCycle(context.Background(), "acme", ChangeCycleInput{
		CustomerID:         customerID,
		FromSubscriptionID: oldSubID,
		NewPlanID:          "pro-annual",
		NewPlanName:        "Pro Annual",
		PriceCents:         99900,
		IntervalUnit:       store.IntervalYear,
		IntervalCount:      1,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(1, 0, 0),
	})
	require.Error(t, err)
	kind, _ := apperr.Of(err)
	assert.Equal(t, apperr.KindPaymentProcessor, kind)
	assert.Empty(t, db.execs)
	assert.False(t, db.committed)
}

func TestChangeCycleCommitsBothMutationsTogether(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockClient(ctrl)

	customerID := uuid.New()
	oldSubID := uuid.New()
	start, end := subscriptionPeriod()
	db := &fakeDB{rowQueue: []fakeRow{
		{vals: customerRow("acme", customerID, sptr("cus_1"), sptr("pm_1"), sptr("card"))},
		{vals: subscriptionRow("acme", oldSubID, customerID, sptr("sub_old"), 9900, start, end)},
	}}
	svc := NewSubscriptionService(db, client, zap.NewNop())

	client.EXPECT().
		CreateSubscription(gomock.Any(), gomock.Any()).
		Return(&psp.SubscriptionResult{PSPSubscriptionID: "sub_new"}, nil).
		Times(1)
	client.EXPECT().CancelNow(gomock.Any(), "sub_old").Return(nil).Times(1)

	sub, err := svc.ChangeCycle(context.Background(), "acme", ChangeCycleInput{
		CustomerID:         customerID,
		FromSubscriptionID: oldSubID,
		NewPlanID:          "pro-annual",
		NewPlanName:        "Pro Annual",
		PriceCents:         99900,
		IntervalUnit:       store.IntervalYear,
		IntervalCount:      1,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "pro-annual", sub.PlanID)
	require.NotNil(t, sub.PSPSubscriptionID)
	assert.Equal(t, "sub_new", *sub.PSPSubscriptionID)

	// Old row canceled and new row inserted in one transaction.
	assert.True(t, db.committed)
	require.Len(t, db.execs, 2)
	assert.Contains(t, db.execs[0].sql, "canceled_at")
	assert.Contains(t, db.execs[1].sql, "INSERT INTO subscriptions")
}
