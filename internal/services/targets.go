package services

import (
	"fmt"
	"strings"

	"acsf-platform/internal/models"
)

// ResolveTargets applies the lenient construction-time policy: a missing or
// partly invalid request falls back to the full channel whitelist. The
// returned warning is empty when the request was adopted unchanged.
func ResolveTargets(requested []string) ([]string, string) {
	if len(requested) == 0 {
		return models.AllowedChannels(), fmt.Sprintf(
			"no targets set, building the table for all channels: %s",
			strings.Join(models.AllowedChannels(), ", "))
	}

	if invalid := invalidTargets(requested); len(invalid) > 0 {
		return models.AllowedChannels(), fmt.Sprintf(
			"target(s) %s not allowed, falling back to the default: %s",
			strings.Join(invalid, ", "), strings.Join(models.AllowedChannels(), ", "))
	}

	return append([]string(nil), requested...), ""
}

// ValidateTargets applies the strict policy used when targets are re-set
// after construction: any invalid entry is a configuration error.
func ValidateTargets(requested []string) error {
	if len(requested) == 0 {
		return &models.ConfigurationError{
			Field:   "targets",
			Message: "at least one target is required",
		}
	}

	if invalid := invalidTargets(requested); len(invalid) > 0 {
		return &models.ConfigurationError{
			Field:   "targets",
			Value:   strings.Join(invalid, ","),
			Message: fmt.Sprintf("only %s are allowed", strings.Join(models.AllowedChannels(), ", ")),
		}
	}

	return nil
}

func invalidTargets(requested []string) []string {
	var invalid []string
	for _, t := range requested {
		if !models.IsAllowedChannel(t) {
			invalid = append(invalid, t)
		}
	}
	return invalid
}
