package booking

import (
	"fmt"
	"time"
)

const (
	DefaultMaxPerSlot    = 4
	DefaultRequestExpiry = 6 * time.Hour
)

// Config holds the booking policy knobs.
type Config struct {
	// MaxPerSlot bounds active appointments per garage, date and slot.
	MaxPerSlot int
	// RequestExpiry is how long a REQUESTED appointment waits before it expires.
	RequestExpiry time.Duration
	// Location decides calendar dates and slot times.
	Location *time.Location
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxPerSlot:    DefaultMaxPerSlot,
		RequestExpiry: DefaultRequestExpiry,
		Location:      time.Local,
	}
}

// Validate rejects negative knobs.
func (config Config) Validate() error {
	if config.MaxPerSlot < 0 {
		return fmt.Errorf("%w: max per slot must not be negative", ErrInvalidServiceConfig)
	}
	if config.RequestExpiry < 0 {
		return fmt.Errorf("%w: request expiry must not be negative", ErrInvalidServiceConfig)
	}
	return nil
}

func (config Config) withDefaults() Config {
	defaults := DefaultConfig()
	if config.MaxPerSlot == 0 {
		config.MaxPerSlot = defaults.MaxPerSlot
	}
	if config.RequestExpiry == 0 {
		config.RequestExpiry = defaults.RequestExpiry
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	return config
}

// WithConfig overrides the default booking policy.
func WithConfig(config Config) ServiceOption {
	return func(service *Service) {
		service.config = config
	}
}
