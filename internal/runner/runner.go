// SPDX-License-Identifier: MPL-2.0

// Package runner stitches a validated fragment into a complete Python
// program, materializes it through an execution filesystem, runs it
// out-of-process, and relays the subprocess's exit code.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	"pysling/internal/execfs"
	"pysling/internal/issue"
	"pysling/internal/script"
	"pysling/pkg/fragment"
)

// ProgramStem is the default name stem for the composed program file.
const ProgramStem = "pysling_run.py"

// ErrAlreadyRun is returned when a Runner is asked to run twice. A Runner
// owns one run: once finished, its filesystem has been cleaned.
var ErrAlreadyRun = errors.New("runner has already finished")

// Runner drives one fragment execution. Construct with New, optionally
// replace FS or Invoker to target a different execution topology, then call
// Run (or RunAndExit) exactly once.
type Runner struct {
	frag      fragment.Parser
	checkMode bool

	// FS places the composed program and payload copies into the target
	// process's namespace. Defaults to a LocalFilesystem in the current
	// directory.
	FS execfs.Filesystem

	// Invoker builds the subprocess argument vector. Defaults to a bare
	// PythonInvoker.
	Invoker Invoker

	// PayloadPaths are archive paths the target process needs on its
	// module search path, in caller-namespace terms and priority order.
	PayloadPaths []string

	// InhibitCleanup skips filesystem cleanup after the run, e.g. for a
	// keep-remote-files debugging mode. Consulted immediately before
	// cleanup, not at construction.
	InhibitCleanup bool

	// Stdout and Stderr receive the subprocess's output streams. Stdout
	// carries the outcome document and defaults to the process stdout.
	Stdout io.Writer
	Stderr io.Writer

	logger *log.Logger

	copiedPayloads []string
	payloadsCopied bool
	finished       bool
}

// New creates a Runner bound to frag with the given check-mode flag,
// defaulting to a same-namespace filesystem and a bare python3 invocation.
func New(frag fragment.Parser, checkMode bool) *Runner {
	return &Runner{
		frag:      frag,
		checkMode: checkMode,
		FS:        execfs.NewLocalFilesystem(""),
		Invoker:   &PythonInvoker{},
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		logger:    log.NewWithOptions(os.Stderr, log.Options{Prefix: "pysling"}),
	}
}

// copyPayloads copies each payload archive through the bound filesystem,
// once per Runner, returning target-namespace paths in the order given.
func (r *Runner) copyPayloads() ([]string, error) {
	if r.payloadsCopied {
		return r.copiedPayloads, nil
	}
	copied := make([]string, 0, len(r.PayloadPaths))
	for _, p := range r.PayloadPaths {
		target, err := r.FS.CopyFile(p)
		if err != nil {
			return nil, issue.WrapWithContext(err, "copy payload archive", p)
		}
		copied = append(copied, target)
	}
	r.copiedPayloads = copied
	r.payloadsCopied = true
	return copied, nil
}

// ComposeProgram returns the full program text to run in the subprocess.
// Payload copies happen here (memoized); the text itself is recomputed on
// each call.
func (r *Runner) ComposeProgram() (string, error) {
	payloads, err := r.copyPayloads()
	if err != nil {
		return "", err
	}
	return script.Compose(r.frag, r.checkMode, payloads), nil
}

// Run composes the program, materializes it, launches the subprocess, and
// waits for it to terminate. A non-zero exit from the subprocess is not an
// error here: the fragment's own failure is already folded into the outcome
// document it printed. Cleanup runs afterwards unless inhibited.
func (r *Runner) Run(ctx context.Context) *Result {
	return r.run(ctx, r.Stdout)
}

// RunCapture behaves like Run but captures standard output and decodes the
// outcome document into the returned Result.
func (r *Runner) RunCapture(ctx context.Context) *Result {
	var stdout bytes.Buffer
	res := r.run(ctx, &stdout)
	if res.Error != nil {
		return res
	}

	var outcome Outcome
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &outcome); err != nil {
		res.Error = issue.WrapWithOperation(err, "decode outcome document")
		return res
	}
	res.Outcome = &outcome
	return res
}

// RunAndExit runs the fragment and terminates the calling process with the
// subprocess's own exit code, so callers observing this process's exit see
// exactly what the fragment's process reported. Infrastructure failures
// exit non-zero with no outcome document on stdout.
func (r *Runner) RunAndExit(ctx context.Context) {
	res := r.Run(ctx)
	if res.Error != nil {
		r.logger.Error("run failed", "err", res.Error)
		if res.ExitCode.IsSuccess() {
			os.Exit(1)
		}
	}
	os.Exit(int(res.ExitCode))
}

func (r *Runner) run(ctx context.Context, stdout io.Writer) *Result {
	if r.finished {
		return &Result{ExitCode: 1, Error: ErrAlreadyRun}
	}
	r.finished = true
	defer r.cleanup()

	text, err := r.ComposeProgram()
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	scriptPath, err := r.FS.MakeFile(ProgramStem, []byte(text))
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}
	r.logger.Debug("composed program materialized", "path", scriptPath, "bytes", len(text))

	argv := r.Invoker.Argv(scriptPath)
	r.logger.Debug("launching subprocess", "argv", argv)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = r.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The fragment's business, already reported through its
			// outcome document.
			return &Result{ExitCode: ExitCode(exitErr.ExitCode())}
		}
		return &Result{ExitCode: 1, Error: issue.WrapWithOperation(err, "launch subprocess")}
	}

	return &Result{ExitCode: 0}
}

// cleanup releases filesystem assets unless the caller inhibited it. The
// flag is read here, at cleanup time, so it can be flipped any time before
// the run finishes.
func (r *Runner) cleanup() {
	if r.InhibitCleanup {
		r.logger.Debug("cleanup inhibited, keeping files")
		return
	}
	if err := r.FS.Cleanup(); err != nil {
		r.logger.Warn("cleanup incomplete", "err", err)
	}
}
