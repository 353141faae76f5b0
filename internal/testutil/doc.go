// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error:
// environment overrides (MustSetenv), file fixtures
// (MustWriteFile, MustReadFile) and analyzer report fixtures in the formats
// PMD, Android Lint and Checkstyle emit.
package testutil
