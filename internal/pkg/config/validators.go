// internal/pkg/config/validators.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const developmentSecret = "development-secret-change-in-production"

// fieldRules checks the validate tags on Config
var fieldRules = validator.New(validator.WithRequiredStructEnabled())

// rule is a check spanning several sections. Production rules are skipped
// outside production.
type rule struct {
	name       string
	production bool
	check      func(*Config) error
}

var rules = []rule{
	{name: "storage", check: func(c *Config) error {
		switch {
		case c.Storage.Backend == "s3" && c.AWS.S3Bucket == "":
			return fmt.Errorf("%w: AWS.S3Bucket for the s3 backend", ErrMissingRequiredConfig)
		case c.Storage.Backend == "local" && c.Storage.LocalPath == "":
			return fmt.Errorf("%w: Storage.LocalPath for the local backend", ErrMissingRequiredConfig)
		}
		return nil
	}},
	{name: "tls", check: func(c *Config) error {
		if c.Server.TLSEnabled && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
			return errors.New("TLS cert and key files must be provided when TLS is enabled")
		}
		return nil
	}},
	{name: "jwt", production: true, check: func(c *Config) error {
		switch {
		case c.Security.JWTSecret == developmentSecret:
			return errors.New("default JWT secret cannot be used in production")
		case len(c.Security.JWTSecret) < 32:
			return errors.New("JWT secret must be at least 32 characters")
		}
		return nil
	}},
	{name: "database", production: true, check: func(c *Config) error {
		if c.Database.Password == "" {
			return fmt.Errorf("%w: Database.Password", ErrMissingRequiredConfig)
		}
		if c.Database.SSLMode == "disable" {
			return errors.New("database SSL must be enabled in production")
		}
		return nil
	}},
	{name: "http", production: true, check: func(c *Config) error {
		if !c.Security.SecureHeaders {
			return errors.New("secure headers must be enabled in production")
		}
		if len(c.Security.AllowedOrigins) == 0 {
			return errors.New("allowed origins must be configured in production")
		}
		for _, origin := range c.Security.AllowedOrigins {
			if origin == "*" {
				return errors.New("wildcard origin (*) not allowed in production")
			}
		}
		return nil
	}},
}

// Validate checks field tags first and then the cross-section rules. It
// returns the first failure.
func (c *Config) Validate() error {
	if err := checkFields(c); err != nil {
		return err
	}

	for _, r := range rules {
		if r.production && !c.IsProduction() {
			continue
		}
		if err := r.check(c); err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
	}
	return nil
}

func checkFields(c *Config) error {
	err := fieldRules.Struct(c)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fe := fieldErrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s", ErrMissingRequiredConfig, field)
	case "timezone":
		return fmt.Errorf("%s %q is not a valid IANA zone", field, fe.Value())
	case "oneof":
		return fmt.Errorf("%s %q must be one of: %s", field, fe.Value(), fe.Param())
	case "gtefield":
		return fmt.Errorf("%s must be >= %s", field, fe.Param())
	default:
		return fmt.Errorf("%s=%v fails %s=%s", field, fe.Value(), fe.Tag(), fe.Param())
	}
}
