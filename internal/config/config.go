// Package config assembles the service's runtime configuration from the
// environment via viper, following the per-tenant map shape the rest of the
// billing pack uses for webhook configuration.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppCredentials holds the per-tenant PSP wiring resolved from
// PSP_SECRET_KEY_<APP>, PSP_ACCOUNT_ID_<APP>, and PSP_WEBHOOK_SECRET_<APP>.
type AppCredentials struct {
	AppID              string
	PSPSecretKey       string
	PSPAccountID       string
	PSPWebhookSecret   string
	PSPSandbox         bool
	EntitlementsByPlan map[string][]string
}

// Config is the fully resolved process configuration.
type Config struct {
	Env                          string
	LogLevel                     string
	DatabaseURL                  string
	IdempotencyTTLDays           int
	WebhookTimestampToleranceSec int
	Port                         string
	PSPMaxConcurrency            int

	apps map[string]AppCredentials
}

// IsProduction reports whether 500 response bodies must be scrubbed of
// internal detail.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IdempotencyTTL returns the configured idempotency-record lifetime.
func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLDays) * 24 * time.Hour
}

// WebhookTimestampTolerance returns the allowed clock skew for webhook
// signature timestamps.
func (c *Config) WebhookTimestampTolerance() time.Duration {
	return time.Duration(c.WebhookTimestampToleranceSec) * time.Second
}

// AppCredentials returns the resolved PSP credentials for the given app_id,
// and whether any were configured for it.
func (c *Config) AppCredentials(appID string) (AppCredentials, bool) {
	creds, ok := c.apps[appID]
	return creds, ok
}

// KnownAppIDs returns every app_id listed in BILLING_APPS, whether or not its
// PSP credentials are filled in; the readiness probe checks them.
func (c *Config) KnownAppIDs() []string {
	ids := make([]string, 0, len(c.apps))
	for id := range c.apps {
		ids = append(ids, id)
	}
	return ids
}

// Load builds a Config from the process environment (and an optional .env
// file, loaded best-effort for local development).
func Load() (*Config, error) {
	// Absence of .env is not fatal — production deployments rely on real
	// env vars instead.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("IDEMPOTENCY_TTL_DAYS", 30)
	v.SetDefault("WEBHOOK_TIMESTAMP_TOLERANCE_SEC", 300)
	v.SetDefault("API_PORT", "8000")
	v.SetDefault("PSP_MAX_CONCURRENCY", 8)

	env := firstNonEmpty(v.GetString("ENV"), v.GetString("NODE_ENV"), "development")

	dbURL := v.GetString("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}

	cfg := &Config{
		Env:                          env,
		LogLevel:                     v.GetString("LOG_LEVEL"),
		DatabaseURL:                  dbURL,
		IdempotencyTTLDays:           v.GetInt("IDEMPOTENCY_TTL_DAYS"),
		WebhookTimestampToleranceSec: v.GetInt("WEBHOOK_TIMESTAMP_TOLERANCE_SEC"),
		Port:                         v.GetString("API_PORT"),
		PSPMaxConcurrency:            v.GetInt("PSP_MAX_CONCURRENCY"),
		apps:                         map[string]AppCredentials{},
	}

	apps := v.GetString("BILLING_APPS")
	for _, appID := range splitAndTrim(apps) {
		upper := strings.ToUpper(appID)
		creds := AppCredentials{
			AppID:            appID,
			PSPSecretKey:     v.GetString("PSP_SECRET_KEY_" + upper),
			PSPAccountID:     v.GetString("PSP_ACCOUNT_ID_" + upper),
			PSPWebhookSecret: v.GetString("PSP_WEBHOOK_SECRET_" + upper),
			PSPSandbox:       v.GetBool("PSP_SANDBOX"),
		}

		if raw := v.GetString("ENTITLEMENTS_JSON_" + upper); raw != "" {
			var entitlements map[string][]string
			if err := json.Unmarshal([]byte(raw), &entitlements); err != nil {
				return nil, fmt.Errorf("config: ENTITLEMENTS_JSON_%s: %w", upper, err)
			}
			creds.EntitlementsByPlan = entitlements
		}

		cfg.apps[appID] = creds
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitAndTrim(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
