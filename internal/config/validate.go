// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInsecureSecret is returned when the development JWT secret is used outside development.
var ErrInsecureSecret = errors.New("JWT_SECRET must be changed from the development default outside development")

// Validate checks struct tags first, then the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Server.Environment != "development" && c.Security.JWTSecret == DevelopmentJWTSecret {
		return ErrInsecureSecret
	}
	if c.Server.Environment == "production" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production (got %d)", len(c.Security.JWTSecret))
	}

	switch c.Fanout.Backend {
	case FanoutRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("fanout backend %q requires REDIS_ADDR", FanoutRedis)
		}
	case FanoutNATS:
		if !c.NATS.Embedded && c.NATS.URL == "" {
			return fmt.Errorf("fanout backend %q requires NATS_URL or NATS_EMBEDDED=true", FanoutNATS)
		}
	}

	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs > 0 && c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	return nil
}
