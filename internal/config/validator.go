package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "lock.read_timeout_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Paths.Namespace == "" {
		errs = append(errs, ValidationError{
			Field:   "paths.namespace",
			Value:   c.Paths.Namespace,
			Message: "must not be empty",
		})
	}
	if !strings.HasPrefix(c.Paths.Extension, ".") {
		errs = append(errs, ValidationError{
			Field:   "paths.extension",
			Value:   c.Paths.Extension,
			Message: "must start with a dot",
		})
	}
	if c.Paths.LegacyGraceWindowMinutes < 0 {
		errs = append(errs, ValidationError{
			Field:   "paths.legacy_grace_window_minutes",
			Value:   c.Paths.LegacyGraceWindowMinutes,
			Message: "must not be negative",
		})
	}

	if c.Lock.ReadTimeoutMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.read_timeout_ms",
			Value:   c.Lock.ReadTimeoutMs,
			Message: "must not be negative",
		})
	}
	if c.Lock.WriteTimeoutMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.write_timeout_ms",
			Value:   c.Lock.WriteTimeoutMs,
			Message: "must not be negative",
		})
	}
	if c.Lock.StaleThresholdMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.stale_threshold_ms",
			Value:   c.Lock.StaleThresholdMs,
			Message: "must be positive",
		})
	}
	if c.Lock.RetryIntervalMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.retry_interval_ms",
			Value:   c.Lock.RetryIntervalMs,
			Message: "must be positive",
		})
	}
	if c.Lock.RetryIntervalMs > 0 && c.Lock.StaleThresholdMs > 0 &&
		c.Lock.RetryIntervalMs > c.Lock.StaleThresholdMs {
		errs = append(errs, ValidationError{
			Field:   "lock.retry_interval_ms",
			Value:   c.Lock.RetryIntervalMs,
			Message: "must not exceed lock.stale_threshold_ms",
		})
	}

	if c.Sweep.MaxAgeHours <= 0 {
		errs = append(errs, ValidationError{
			Field:   "sweep.max_age_hours",
			Value:   c.Sweep.MaxAgeHours,
			Message: "must be positive",
		})
	}
	if c.Sweep.ActiveTTLMinutes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "sweep.active_ttl_minutes",
			Value:   c.Sweep.ActiveTTLMinutes,
			Message: "must be positive",
		})
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errs
}
