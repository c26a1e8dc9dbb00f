// SPDX-License-Identifier: MPL-2.0

// Package fragment validates user-authored Python fragments and decomposes
// them into the pieces a composed program needs: import statements,
// declarations, initialization code, and a single result expression.
//
// Validation is structural: the fragment's own syntax tree is parsed with
// gpython and pattern-matched, never executed.
package fragment

import "errors"

// ErrNoPostcondition is the sentinel error wrapped when a fragment does not
// declare the expected PostconditionBase subclass.
var ErrNoPostcondition = errors.New("no PostconditionBase subclass declared")

// Parser decomposes one user fragment into the four pieces that, stitched
// together in order (imports, declarations, initialize, then the result
// expression), form a runnable program body.
//
// Implementations validate the fragment in their constructor; a Parser that
// exists is a Parser whose fragment passed structural validation.
type Parser interface {
	// Imports returns the import statements the other pieces depend on.
	// It must not assume any name is already in scope.
	Imports() string

	// Declarations returns the classes and functions that must be declared
	// before the result expression can run.
	Declarations() string

	// Initialize returns imperative setup code to run once before the
	// result expression. May be empty.
	Initialize() string

	// ResultExpression returns a single Python expression that performs the
	// task and evaluates to the outcome dict. checkMode is passed through
	// as a Python boolean literal.
	ResultExpression(checkMode bool) string
}

// pyBool renders a Go bool as a Python boolean literal.
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
