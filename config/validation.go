package config

import (
	"fmt"
	"strings"
)

func (c *Config) Validate() error {
	var problems []string

	if c.Database.User == "" {
		problems = append(problems, "database user is required")
	}
	if c.Database.DBName == "" {
		problems = append(problems, "database name is required")
	}

	switch c.PaymentProvider {
	case "stripe":
		if c.Stripe.Secret == "" {
			problems = append(problems, "stripe secret is required when payment_provider=stripe")
		}
	case "xendit":
		if c.Xendit.Secret == "" {
			problems = append(problems, "xendit secret is required when payment_provider=xendit")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown payment provider %q", c.PaymentProvider))
	}

	if c.Booking.MaxAttempts < 1 {
		problems = append(problems, "booking max_attempts must be at least 1")
	}
	if c.Worker.BatchSize < 1 {
		problems = append(problems, "worker batch_size must be at least 1")
	}
	if c.Worker.RetentionDays < 1 {
		problems = append(problems, "worker retention_days must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
