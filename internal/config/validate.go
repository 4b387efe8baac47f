package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// minTimeout keeps a typo like --timeout 0 from failing every request.
const minTimeout = 1 * time.Second

var validFormats = map[string]bool{
	"nifti": true,
	"dicom": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks config file values and returns all errors found, so
// users can fix every issue in one pass.
func Validate(cfg *File) error {
	var errs []error

	if cfg.Domain == "" {
		errs = append(errs, errors.New("domain: must not be empty"))
	} else if strings.Contains(cfg.Domain, "://") || strings.Contains(cfg.Domain, "/") {
		errs = append(errs, fmt.Errorf("domain: expected a host name such as %q, got %q", DefaultDomain, cfg.Domain))
	}

	if !validFormats[cfg.Format] {
		errs = append(errs, fmt.Errorf("format: must be one of nifti, dicom; got %q", cfg.Format))
	}

	errs = append(errs, validateTimeout(cfg.Timeout)...)

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", cfg.LogLevel))
	}

	return errors.Join(errs...)
}

func validateTimeout(value string) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("timeout: invalid duration %q: %w", value, err)}
	}

	if d < minTimeout {
		return []error{fmt.Errorf("timeout: must be >= %s, got %s", minTimeout, d)}
	}

	return nil
}

// ValidateSettings checks the constraints that only make sense once every
// layer has been applied.
func ValidateSettings(s Settings) error {
	var errs []error

	if s.Username == "" {
		errs = append(errs, errors.New("username: must not be empty"))
	}

	if s.OutputDir == "" {
		errs = append(errs, errors.New("output_folder: must not be empty"))
	}

	if s.Certificate != "" {
		if _, err := os.Stat(s.Certificate); err != nil {
			errs = append(errs, fmt.Errorf("certificate: %w", err))
		}
	}

	return errors.Join(errs...)
}
