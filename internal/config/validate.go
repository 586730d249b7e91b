package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	var errs []error
	for _, section := range []any{c.HTTP, c.Identity, c.API, c.Storage, c.Cookies} {
		err := validate.Struct(section)
		if err == nil {
			continue
		}

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating configuration: %w", err)
		}

		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: failed on %q", fe.Namespace(), fe.Tag()))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	if c.Identity.ClientAuth.Type == ClientAuthMTLS && c.Identity.ClientAuth.MTLS == nil {
		return errors.New("invalid configuration: identity.clientAuth.mTLS is required for mtls client auth")
	}

	if c.Cookies.Device.Name == c.Cookies.Tab.Name {
		return errors.New("invalid configuration: device and tab cookies must have different names")
	}

	return nil
}
