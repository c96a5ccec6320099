package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses an optional duration string from config.
// Empty input returns (0, false, nil) so callers can apply their own default.
func ParseDurationField(value, field string) (time.Duration, bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d < 0 {
		return 0, false, fmt.Errorf("invalid %s %q: must be >= 0", field, value)
	}
	return d, true, nil
}

// ParseDurationOrDefault parses an optional duration string, falling back to
// def when the field is empty.
func ParseDurationOrDefault(value, field string, def time.Duration) (time.Duration, error) {
	d, ok, err := ParseDurationField(value, field)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	return d, nil
}
