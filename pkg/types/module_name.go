// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidModuleName is the sentinel error wrapped by InvalidModuleNameError.
var ErrInvalidModuleName = errors.New("invalid module name")

var moduleNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)

type (
	// ModuleName identifies a subproject within the workspace.
	// A valid name starts with a letter and contains only letters, digits,
	// underscores, dots and dashes. Colons are reserved for task paths.
	ModuleName string

	// InvalidModuleNameError is returned when a ModuleName does not match the
	// allowed pattern.
	InvalidModuleNameError struct {
		Value ModuleName
	}
)

// String returns the string representation of the ModuleName.
func (n ModuleName) String() string { return string(n) }

// IsValid returns whether the ModuleName is valid.
func (n ModuleName) IsValid() (bool, []error) {
	if !moduleNamePattern.MatchString(string(n)) {
		return false, []error{&InvalidModuleNameError{Value: n}}
	}
	return true, nil
}

// Error implements the error interface for InvalidModuleNameError.
func (e *InvalidModuleNameError) Error() string {
	return fmt.Sprintf("invalid module name %q (must match %s)", e.Value, moduleNamePattern)
}

// Unwrap returns ErrInvalidModuleName for errors.Is() compatibility.
func (e *InvalidModuleNameError) Unwrap() error { return ErrInvalidModuleName }
