package config

import (
	"errors"
	"fmt"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidTimeout indicates a negative timeout
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidPattern indicates a glob that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// Validate checks that the configuration is usable.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Workers))
	}
	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidTimeout, cfg.Timeout))
	}
	for _, p := range append(append([]string{}, cfg.Ignore...), cfg.Include...) {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err))
		}
	}

	return errors.Join(errs...)
}
