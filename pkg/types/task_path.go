// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTaskPath is the sentinel error wrapped by InvalidTaskPathError.
var ErrInvalidTaskPath = errors.New("invalid task path")

type (
	// TaskPath is the fully qualified address of a task: ":<task>" for tasks
	// owned by the workspace root and ":<module>:<task>" for module tasks.
	// Included builds address their own tasks the same way, relative to the
	// included build root.
	TaskPath string

	// InvalidTaskPathError is returned when a TaskPath is malformed.
	InvalidTaskPathError struct {
		Value  TaskPath
		Reason string
	}
)

// RootTask returns the path of a task owned by the workspace root.
func RootTask(name string) TaskPath {
	return TaskPath(":" + name)
}

// ModuleTask returns the path of a task owned by the given module.
func ModuleTask(module ModuleName, name string) TaskPath {
	return TaskPath(":" + string(module) + ":" + name)
}

// String returns the string representation of the TaskPath.
func (p TaskPath) String() string { return string(p) }

// IsRoot reports whether the task is owned by the workspace root.
func (p TaskPath) IsRoot() bool {
	return strings.Count(string(p), ":") == 1
}

// Name returns the last path segment (the task name).
func (p TaskPath) Name() string {
	s := string(p)
	return s[strings.LastIndex(s, ":")+1:]
}

// Owner returns the module segment, or "" for root tasks.
func (p TaskPath) Owner() ModuleName {
	s := strings.TrimPrefix(string(p), ":")
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return ""
	}
	return ModuleName(s[:idx])
}

// IsValid returns whether the TaskPath is well formed.
func (p TaskPath) IsValid() (bool, []error) {
	s := string(p)
	if !strings.HasPrefix(s, ":") {
		return false, []error{&InvalidTaskPathError{Value: p, Reason: "must start with ':'"}}
	}
	for _, seg := range strings.Split(s[1:], ":") {
		if strings.TrimSpace(seg) == "" {
			return false, []error{&InvalidTaskPathError{Value: p, Reason: "empty segment"}}
		}
	}
	return true, nil
}

// Error implements the error interface for InvalidTaskPathError.
func (e *InvalidTaskPathError) Error() string {
	return fmt.Sprintf("invalid task path %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidTaskPath for errors.Is() compatibility.
func (e *InvalidTaskPathError) Unwrap() error { return ErrInvalidTaskPath }
