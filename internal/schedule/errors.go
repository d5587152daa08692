package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError is returned when a baseline day type the resolver
// depends on is missing for an owner
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: required day type %q is missing", e.Missing)
}

// NotFoundError is returned when a referenced entity does not exist for the owner
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// ValidationError is returned for malformed input, before any state changes
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IntegrityError lists every unresolved reference found in an import payload
type IntegrityError struct {
	Problems []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed: %s", strings.Join(e.Problems, "; "))
}

// IsConfiguration reports whether err wraps a ConfigurationError
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err wraps a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsIntegrity reports whether err wraps an IntegrityError
func IsIntegrity(err error) bool {
	var target *IntegrityError
	return errors.As(err, &target)
}
