package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against its struct validation tags.
//
// Validation happens after defaults are applied, so a config that passes
// Load is guaranteed to have every required field populated and every
// enumerated field holding a known value.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			// Report the first failure with its field path; one actionable
			// error beats a wall of them.
			v := verrs[0]
			return fmt.Errorf("invalid configuration: field %q failed %q validation (value: %v)",
				v.Namespace(), v.Tag(), v.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
