package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns the validator used for configuration structs.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := NewValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Tracker.Validate(); err != nil {
		return err
	}
	if c.Capture.IdleFPS > c.Capture.ActiveFPS {
		return fmt.Errorf("invalid config: capture.idle_fps %d exceeds capture.active_fps %d",
			c.Capture.IdleFPS, c.Capture.ActiveFPS)
	}
	return nil
}
