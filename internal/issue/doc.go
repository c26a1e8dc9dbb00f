// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Errors built here carry the failed operation, the resource involved, and
// remediation suggestions, so the CLI can print something more helpful than a
// bare error string.
package issue
