package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion error taxonomy.
// Typed errors below match them through errors.Is.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrNotFound             = errors.New("not found")
	ErrNoData               = errors.New("no data found")
	ErrNoDeviceDescriptor   = errors.New("no device descriptor found")
)

// ConfigurationError reports a rejected configuration value
type ConfigurationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// Is lets errors.Is(err, ErrInvalidConfiguration) match
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// IsTransient returns false as configuration errors are permanent
func (e *ConfigurationError) IsTransient() bool {
	return false
}

// NotFoundError represents a missing file set or XML element
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
