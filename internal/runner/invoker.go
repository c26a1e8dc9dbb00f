// SPDX-License-Identifier: MPL-2.0

package runner

// Invoker resolves the concrete argument vector for launching an
// interpreter against a composed program. The scriptPath argument is the
// path the target process should use, i.e. the path returned by the bound
// filesystem's MakeFile.
//
// Each execution topology supplies its own Invoker; the runner knows
// nothing about container or snap launch syntax.
type Invoker interface {
	Argv(scriptPath string) []string
}

// PythonInvoker launches a plain forked interpreter sharing the caller's
// namespace.
type PythonInvoker struct {
	// Python overrides the interpreter executable (default "python3").
	Python string
}

// Argv returns the interpreter invocation for scriptPath.
func (p *PythonInvoker) Argv(scriptPath string) []string {
	python := p.Python
	if python == "" {
		python = "python3"
	}
	return []string{python, scriptPath}
}

// ArgvPrefixInvoker prepends a caller-supplied argument vector to the
// script path. It lets container or snap callers express "however you
// reach your interpreter, then the script" without this package learning
// their launch syntax, e.g.:
//
//	&ArgvPrefixInvoker{Prefix: []string{"docker", "exec", id, "python3"}}
type ArgvPrefixInvoker struct {
	Prefix []string
}

// Argv returns the prefix with scriptPath appended.
func (a *ArgvPrefixInvoker) Argv(scriptPath string) []string {
	argv := make([]string, 0, len(a.Prefix)+1)
	argv = append(argv, a.Prefix...)
	return append(argv, scriptPath)
}
