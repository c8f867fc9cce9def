package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_parseEnv_Overrides(t *testing.T) {
	t.Setenv("ENDPOINT_ADDR_HTTP", ":9999")
	t.Setenv("DATABASE_DSN", "postgres://env")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("SESSION_VALIDITY_DURATION", "12h")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, ":9999", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 12*time.Hour, cfg.SessionValidityDuration)
	// untouched fields keep defaults
	assert.Equal(t, "secretKey", cfg.SecretKey)
}

func Test_parseEnv_NoVarsKeepsDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	before := *cfg
	parseEnv(cfg)

	assert.Equal(t, before.SessionValidityDuration, cfg.SessionValidityDuration)
	assert.Equal(t, before.VerificationValidityDuration, cfg.VerificationValidityDuration)
}
