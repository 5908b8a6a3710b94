// Package requests holds the request DTOs bound at the HTTP edge, each
// tagged with go-playground/validator/v10 rules. Text fields are
// trimmed/escaped by the handler after binding; monetary fields are
// validated here as non-negative integers.
package requests

type CreateCustomer struct {
	AppID              string         `json:"app_id" binding:"required"`
	ExternalCustomerID string         `json:"external_customer_id"`
	Email              string         `json:"email" binding:"required,email"`
	Name               string         `json:"name" binding:"required"`
	Metadata           map[string]any `json:"metadata"`
}

type UpdateCustomer struct {
	AppID    string         `json:"app_id" binding:"required"`
	Email    *string        `json:"email" binding:"omitempty,email"`
	Name     *string        `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

type SetDefaultPaymentMethod struct {
	AppID           string `json:"app_id" binding:"required"`
	PaymentMethodID string `json:"payment_method_id" binding:"required,uuid"`
}

type AddPaymentMethod struct {
	AppID      string `json:"app_id" binding:"required"`
	CustomerID string `json:"customer_id" binding:"required,uuid"`
	Token      string `json:"token" binding:"required"`
}

type CreateSubscription struct {
	AppID              string         `json:"app_id" binding:"required"`
	CustomerID         string         `json:"customer_id" binding:"required,uuid"`
	PlanID             string         `json:"plan_id" binding:"required"`
	PlanName           string         `json:"plan_name" binding:"required"`
	PriceCents         int64          `json:"price_cents" binding:"required,gte=0"`
	IntervalUnit       string         `json:"interval_unit" binding:"required,oneof=day week month year"`
	IntervalCount      int            `json:"interval_count" binding:"required,gte=1"`
	PaymentMethodID    string         `json:"payment_method_id"`
	Quantity           int64          `json:"quantity" binding:"omitempty,gte=1"`
	CurrentPeriodStart string         `json:"current_period_start" binding:"required"`
	CurrentPeriodEnd   string         `json:"current_period_end" binding:"required"`
	Metadata           map[string]any `json:"metadata"`
}

type UpdateSubscription struct {
	AppID      string         `json:"app_id" binding:"required"`
	PlanID     *string        `json:"plan_id"`
	PlanName   *string        `json:"plan_name"`
	PriceCents *int64         `json:"price_cents" binding:"omitempty,gte=0"`
	Metadata   map[string]any `json:"metadata"`
}

type CancelSubscription struct {
	AppID       string `json:"app_id" binding:"required"`
	AtPeriodEnd bool   `json:"at_period_end"`
}

type ChangeCycle struct {
	AppID              string `json:"app_id" binding:"required"`
	CustomerID         string `json:"customer_id" binding:"required,uuid"`
	FromSubscriptionID string `json:"from_subscription_id" binding:"required,uuid"`
	NewPlanID          string `json:"new_plan_id" binding:"required"`
	NewPlanName        string `json:"new_plan_name" binding:"required"`
	PriceCents         int64  `json:"price_cents" binding:"required,gte=0"`
	IntervalUnit       string `json:"interval_unit" binding:"required,oneof=day week month year"`
	IntervalCount      int    `json:"interval_count" binding:"required,gte=1"`
	CurrentPeriodStart string `json:"current_period_start" binding:"required"`
	CurrentPeriodEnd   string `json:"current_period_end" binding:"required"`
}

type CreateCharge struct {
	AppID           string         `json:"app_id" binding:"required"`
	ExternalCustomerID string      `json:"external_customer_id"`
	CustomerID      string         `json:"customer_id" binding:"omitempty,uuid"`
	AmountCents     int64          `json:"amount_cents" binding:"required,gte=0"`
	Currency        string         `json:"currency" binding:"omitempty,currency"`
	Reason          string         `json:"reason"`
	ReferenceID     string         `json:"reference_id" binding:"required"`
	PaymentMethodID string         `json:"payment_method_id"`
	Metadata        map[string]any `json:"metadata"`
}

type CreateRefund struct {
	AppID       string `json:"app_id" binding:"required"`
	ChargeID    string `json:"charge_id" binding:"required,uuid"`
	AmountCents int64  `json:"amount_cents" binding:"required,gte=0"`
	Reason      string `json:"reason"`
	ReferenceID string `json:"reference_id" binding:"required"`
}

type ProrationCalculate struct {
	AppID          string `json:"app_id" binding:"required"`
	PeriodStart    string `json:"period_start" binding:"required"`
	PeriodEnd      string `json:"period_end" binding:"required"`
	ChangeDate     string `json:"change_date" binding:"required"`
	OldPriceCents  int64  `json:"old_price_cents" binding:"gte=0"`
	NewPriceCents  int64  `json:"new_price_cents" binding:"gte=0"`
	QuantityChange int64  `json:"quantity_change"`
}
