package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from the environment. A .env file in the
// working directory is loaded first if present; missing files are not an
// error. Duration fields are overridden via SESSION_VALIDITY_DURATION and
// VERIFICATION_VALIDITY_DURATION in Go duration syntax.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if err := env.Parse(config); err != nil {
		panic(err)
	}

	overlayEnvDuration("SESSION_VALIDITY_DURATION", &config.SessionValidityDuration)
	overlayEnvDuration("VERIFICATION_VALIDITY_DURATION", &config.VerificationValidityDuration)
}

func overlayEnvDuration(name string, target *time.Duration) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*target = d
}
