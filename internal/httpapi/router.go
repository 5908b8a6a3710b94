package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/config"
	"github.com/ledgerline/billing-core/internal/idempotency"
)

// RouterDeps carries everything NewRouter wires together. All collaborators
// are injected; the only package-level state the router touches is the
// isProduction flag consumed by the terminal error mapper.
type RouterDeps struct {
	Pool     *pgxpool.Pool
	Cfg      *config.Config
	Logger   *zap.Logger
	Registry *Registry
	Idem     *idempotency.Engine
	Identity IdentityChecker
}

// NewRouter assembles the gin engine with the middleware ordering baked in
// at construction time: the webhook route gets raw-body capture and nothing
// else in front of it; every business route passes through the tenant
// resolver and the PCI rejector before its validator and handler; the
// charge and refund creation routes additionally pass through the
// idempotency engine.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	isProduction = deps.Cfg.IsProduction()
	RegisterValidators()

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(CorrelationID())
	engine.Use(requestLogger(deps.Logger))
	engine.Use(configureCORS())

	health := NewHealthHandlers(deps.Pool, deps.Cfg)
	engine.GET("/health/live", health.Live)
	engine.GET("/health/ready", health.Ready)

	// The webhook route receives raw bytes: no PCI scan, no tenant resolver,
	// no generic JSON binding ahead of the signature check.
	webhooks := NewWebhookHandlers(deps.Registry.Webhooks, deps.Cfg, deps.Logger)
	engine.POST("/webhooks/:app_id", RawBodyCapture(), webhooks.Receive)

	customers := NewCustomerHandlers(deps.Registry)
	paymentMethods := NewPaymentMethodHandlers(deps.Registry)
	subscriptions := NewSubscriptionHandlers(deps.Registry)
	charges := NewChargeHandlers(deps.Registry)
	refunds := NewRefundHandlers(deps.Registry)
	proration := NewProrationHandlers(deps.Registry.Proration)
	disputes := NewDisputeHandlers(deps.Pool)
	state := NewStateHandlers(deps.Pool, deps.Registry, deps.Cfg)

	api := engine.Group("/", TenantResolver(deps.Identity), PCIReject(deps.Logger))
	{
		api.GET("/state", state.Get)

		api.POST("/customers", customers.Create)
		api.GET("/customers", customers.GetByExternalID)
		api.GET("/customers/:id", customers.Get)
		api.PUT("/customers/:id", customers.Update)
		api.POST("/customers/:id/default-payment-method", customers.SetDefaultPaymentMethod)

		api.POST("/payment-methods", paymentMethods.Add)
		api.GET("/payment-methods", paymentMethods.List)
		api.DELETE("/payment-methods/:id", paymentMethods.Delete)

		api.POST("/subscriptions", subscriptions.Create)
		api.GET("/subscriptions", subscriptions.List)
		api.GET("/subscriptions/:id", subscriptions.Get)
		api.PUT("/subscriptions/:id", subscriptions.Update)
		api.DELETE("/subscriptions/:id", subscriptions.Cancel)
		api.POST("/subscriptions/change-cycle", subscriptions.ChangeCycle)
		api.POST("/subscriptions/:id/proration/apply", proration.Apply)
		api.POST("/subscriptions/:id/proration/cancellation-refund", proration.CancellationRefund)

		api.POST("/charges/one-time", RequireIdempotencyKey(deps.Idem), charges.Create)
		api.GET("/charges/:id", charges.Get)

		api.POST("/refunds", RequireIdempotencyKey(deps.Idem), refunds.Create)
		api.GET("/refunds/:id", refunds.Get)

		api.GET("/disputes", disputes.ListByCharge)

		api.POST("/proration/calculate", proration.Calculate)
	}

	return engine
}

// requestLogger emits one structured line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("correlation_id", getCorrelationID(c)))
	}
}

// configureCORS is permissive enough for the PSP's hosted-tokenization page
// to call back cross-origin, with the idempotency and correlation headers
// explicitly allowed.
func configureCORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		"Idempotency-Key", "X-Correlation-ID",
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}
