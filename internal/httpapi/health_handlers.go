package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/billing-core/internal/config"
)

// HealthHandlers serves the liveness/readiness probes. Readiness verifies
// DB reachability and per-app PSP credential presence.
type HealthHandlers struct {
	pool *pgxpool.Pool
	cfg  *config.Config
}

func NewHealthHandlers(pool *pgxpool.Pool, cfg *config.Config) *HealthHandlers {
	return &HealthHandlers{pool: pool, cfg: cfg}
}

func (h *HealthHandlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "live"})
}

func (h *HealthHandlers) Ready(c *gin.Context) {
	if err := h.pool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "database unreachable"})
		return
	}

	var missingCreds []string
	for _, appID := range h.cfg.KnownAppIDs() {
		creds, ok := h.cfg.AppCredentials(appID)
		if !ok || creds.PSPSecretKey == "" {
			missingCreds = append(missingCreds, appID)
		}
	}
	if len(missingCreds) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready", "reason": "missing psp credentials", "apps": missingCreds,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
