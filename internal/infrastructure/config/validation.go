package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidateConfig checks every struct-tag constraint on the loaded config and
// reports all violations in one error.
func ValidateConfig(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	lines := make([]string, 0, len(verrs))
	for _, e := range verrs {
		lines = append(lines, fmt.Sprintf("%s violates %q (got %v)", e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("invalid configuration:\n  %s", strings.Join(lines, "\n  "))
}
