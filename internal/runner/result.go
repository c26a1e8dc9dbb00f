// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"encoding/json"
	"strconv"
)

type (
	// ExitCode represents a subprocess exit status, 0-255 on POSIX systems.
	// The zero value means success.
	ExitCode int

	// Result is the runner-side view of one run: the subprocess exit code
	// and any infrastructure error. A non-zero ExitCode with a nil Error is
	// a normal termination that is the fragment's business, not ours.
	Result struct {
		// ExitCode is the subprocess's own exit code.
		ExitCode ExitCode
		// Error is set only for infrastructure failures (composition,
		// asset creation, subprocess launch), never for fragment failures.
		Error error
		// Outcome holds the decoded outcome document when the run was
		// executed with capture; nil otherwise.
		Outcome *Outcome
	}

	// Outcome is the single structured document the composed program prints
	// to standard output. Keys beyond the well-known three are preserved in
	// Extra, since the fragment's result expression may contribute any
	// fields it likes.
	Outcome struct {
		Failed    bool
		Msg       string
		Traceback string
		Extra     map[string]any
	}
)

// IsSuccess returns true if the exit code indicates success.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// String returns the decimal representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// Success returns true when the subprocess exited zero with no
// infrastructure error.
func (r *Result) Success() bool {
	return r.ExitCode.IsSuccess() && r.Error == nil
}

// UnmarshalJSON decodes the wire document, routing unknown keys into Extra.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["failed"]; ok {
		if err := json.Unmarshal(v, &o.Failed); err != nil {
			return err
		}
		delete(raw, "failed")
	}
	if v, ok := raw["msg"]; ok {
		if err := json.Unmarshal(v, &o.Msg); err != nil {
			return err
		}
		delete(raw, "msg")
	}
	if v, ok := raw["traceback"]; ok {
		if err := json.Unmarshal(v, &o.Traceback); err != nil {
			return err
		}
		delete(raw, "traceback")
	}

	if len(raw) > 0 {
		o.Extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			o.Extra[k] = val
		}
	}
	return nil
}
