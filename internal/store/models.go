// Package store is the persistence layer: typed DAOs over pgx, one file per
// aggregate. Tenant-scoped lookups and updates take app_id right after ctx
// and the DBTX, and inserts read it from the row they write; the webhook
// envelope status updates key on the envelope id alone.
package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CustomerStatus string

const (
	CustomerActive     CustomerStatus = "active"
	CustomerDelinquent CustomerStatus = "delinquent"
	CustomerDeleted    CustomerStatus = "deleted"
)

type Customer struct {
	ID                        uuid.UUID
	AppID                     string
	ExternalCustomerID        *string
	PSPCustomerID             *string
	Email                     string
	Name                      string
	DefaultPaymentMethodToken *string
	DefaultPaymentMethodType  *string
	Status                    CustomerStatus
	DelinquentSince           *time.Time
	Metadata                  map[string]any
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

type PaymentMethodType string

const (
	PaymentMethodCard      PaymentMethodType = "card"
	PaymentMethodACHDebit  PaymentMethodType = "ach_debit"
	PaymentMethodEFTDebit  PaymentMethodType = "eft_debit"
)

type PaymentMethod struct {
	ID                 uuid.UUID
	AppID              string
	CustomerID         uuid.UUID
	PSPPaymentMethodID string
	Type               PaymentMethodType
	Brand              *string
	Last4              *string
	ExpMonth           *int
	ExpYear            *int
	BankName           *string
	BankLast4          *string
	IsDefault          bool
	DeletedAt          *time.Time
	Metadata           map[string]any
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type SubscriptionStatus string

const (
	SubIncomplete        SubscriptionStatus = "incomplete"
	SubIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubTrialing          SubscriptionStatus = "trialing"
	SubActive            SubscriptionStatus = "active"
	SubPastDue           SubscriptionStatus = "past_due"
	SubCanceled          SubscriptionStatus = "canceled"
	SubUnpaid            SubscriptionStatus = "unpaid"
	SubPaused            SubscriptionStatus = "paused"
)

type IntervalUnit string

const (
	IntervalDay   IntervalUnit = "day"
	IntervalWeek  IntervalUnit = "week"
	IntervalMonth IntervalUnit = "month"
	IntervalYear  IntervalUnit = "year"
)

type Subscription struct {
	ID                  uuid.UUID
	AppID               string
	CustomerID          uuid.UUID
	PSPSubscriptionID   *string
	PlanID              string
	PlanName            string
	PriceCents          int64
	Status              SubscriptionStatus
	IntervalUnit        IntervalUnit
	IntervalCount       int
	BillingCycleAnchor  *time.Time
	CurrentPeriodStart  time.Time
	CurrentPeriodEnd    time.Time
	CancelAtPeriodEnd   bool
	CancelAt            *time.Time
	CanceledAt          *time.Time
	EndedAt             *time.Time
	PaymentMethodToken  string
	PaymentMethodType   string
	Metadata            map[string]any
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type ChargeStatus string

const (
	ChargePending   ChargeStatus = "pending"
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargeFailed    ChargeStatus = "failed"
)

type Charge struct {
	ID              uuid.UUID
	AppID           string
	CustomerID      uuid.UUID
	SubscriptionID  *uuid.UUID
	InvoiceID       *uuid.UUID
	PSPChargeID     *string
	Status          ChargeStatus
	AmountCents     int64
	Currency        string
	Reason          *string
	ReferenceID     *string
	ServiceDate     *time.Time
	Note            *string
	FailureCode     *string
	FailureMessage  *string
	Metadata        map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundSucceeded RefundStatus = "succeeded"
	RefundFailed    RefundStatus = "failed"
)

type Refund struct {
	ID             uuid.UUID
	AppID          string
	CustomerID     uuid.UUID
	ChargeID       uuid.UUID
	PSPRefundID    *string
	Status         RefundStatus
	AmountCents    int64
	Currency       string
	Reason         *string
	ReferenceID    string
	FailureCode    *string
	FailureMessage *string
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Dispute struct {
	ID             uuid.UUID
	AppID          string
	CustomerID     uuid.UUID
	ChargeID       uuid.UUID
	PSPDisputeID   string
	Status         string
	AmountCents    int64
	Currency       string
	Reason         *string
	EvidenceDueBy  *time.Time
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type IdempotencyRecord struct {
	AppID        string
	Key          string
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

type WebhookStatus string

const (
	WebhookReceived   WebhookStatus = "received"
	WebhookProcessing WebhookStatus = "processing"
	WebhookProcessed  WebhookStatus = "processed"
	WebhookFailed     WebhookStatus = "failed"
)

type WebhookEnvelope struct {
	ID          uuid.UUID
	AppID       string
	EventID     string
	EventType   string
	Status      WebhookStatus
	Attempts    int
	ReceivedAt  time.Time
	ProcessedAt *time.Time
	Error       *string
}

type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
	CouponVolume     CouponType = "volume"
	CouponReferral   CouponType = "referral"
	CouponContract   CouponType = "contract"
)

type VolumeTier struct {
	Min   int64 `json:"min"`
	Max   *int64 `json:"max,omitempty"`
	Value int64  `json:"value"`
}

type Coupon struct {
	ID                uuid.UUID
	AppID             string
	Code              string
	Type              CouponType
	Value             int64
	Active            bool
	RedeemBy          *time.Time
	MaxRedemptions    *int
	RedemptionCount   int
	ProductCategories []string
	CustomerSegments  []string
	MinQuantity       *int
	MaxDiscountCents  *int64
	SeasonalStart     *time.Time
	SeasonalEnd       *time.Time
	VolumeTiers       []VolumeTier
	Stackable         bool
	Priority          int
}

type TaxRate struct {
	ID               uuid.UUID
	AppID            string
	JurisdictionCode string
	TaxType          string
	Rate             decimal.Decimal // fraction 0..1; kept exact across repeated application
	EffectiveDate    time.Time
	ExpirationDate   *time.Time
	Description      *string
}

type DiscountApplication struct {
	ID            uuid.UUID
	AppID         string
	InvoiceID     *uuid.UUID
	ChargeID      *uuid.UUID
	CouponID      uuid.UUID
	DiscountCents int64
	CreatedAt     time.Time
}

type TaxCalculation struct {
	ID          uuid.UUID
	AppID       string
	InvoiceID   *uuid.UUID
	ChargeID    *uuid.UUID
	Jurisdiction string
	TaxableCents int64
	TaxCents     int64
	CreatedAt    time.Time
}

type ProrationEvent struct {
	ID          uuid.UUID
	AppID       string
	SubscriptionID uuid.UUID
	NetCents    int64
	Metadata    map[string]any
	CreatedAt   time.Time
}
