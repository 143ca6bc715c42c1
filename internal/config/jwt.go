package config

import (
	"fmt"
	"os"
	"strconv"
)

// JWTConfig holds JWT signing configuration.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// defaultJWTExpirationHours applies when JWT_EXPIRATION_HOURS is unset.
const defaultJWTExpirationHours = 24

// NewJWTConfig builds JWT configuration from the environment. JWT_SECRET is
// required; JWT_EXPIRATION_HOURS is optional.
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	hours := defaultJWTExpirationHours
	if raw := os.Getenv("JWT_EXPIRATION_HOURS"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be a positive integer")
		}
		hours = parsed
	}

	return &JWTConfig{Secret: secret, ExpirationHours: hours}, nil
}
