// SPDX-License-Identifier: MPL-2.0

package violation

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// SeverityInfo is the lowest severity and the default gate floor.
	SeverityInfo Severity = iota
	// SeverityWarning is a non-blocking tool warning.
	SeverityWarning
	// SeverityError is a tool error.
	SeverityError
)

// ErrInvalidSeverity is returned when a severity name is not recognized.
var ErrInvalidSeverity = errors.New("invalid severity")

type (
	// Severity orders findings; higher is more severe.
	Severity int

	// Finding is a single tool finding normalized across report formats.
	Finding struct {
		Tool     Kind
		Rule     string
		Severity Severity
		// File is an absolute path when the report carried one.
		File    string
		Line    int
		Message string
	}
)

// ParseSeverity parses INFO, WARN/WARNING or ERROR (case-insensitive).
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return SeverityInfo, nil
	case "WARN", "WARNING":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("%w: %q (valid: INFO, WARN, ERROR)", ErrInvalidSeverity, s)
	}
}

// String returns the canonical severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Location renders file:line for display.
func (f Finding) Location() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return f.File
}
