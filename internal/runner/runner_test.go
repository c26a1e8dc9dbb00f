// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pysling/internal/execfs"
	"pysling/pkg/fragment"
)

const holdsFragment = `
from pysling.postconditions import Postcondition as PostconditionBase

class Postcondition(PostconditionBase):
    def holds(self):
        return True
`

const raisesFragment = `
from pysling.postconditions import Postcondition as PostconditionBase

class Postcondition(PostconditionBase):
    def holds(self):
        raise RuntimeError("boom")
`

// supportModule is a minimal stand-in for the pysling Python package that
// payload archives normally provide.
const supportModule = `
class Postcondition:
    def holds(self):
        raise NotImplementedError

def run_postcondition(postcondition, check_mode):
    if postcondition.holds():
        return dict(failed=False)
    return dict(failed=True, msg="postcondition does not hold")
`

// requirePython skips tests that need a real interpreter.
func requirePython(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

// writeSupportPayload lays out a directory that, once on sys.path, makes
// "from pysling import postconditions" importable.
func writeSupportPayload(t *testing.T) string {
	t.Helper()
	payload := filepath.Join(t.TempDir(), "payload")
	pkg := filepath.Join(payload, "pysling")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "__init__.py"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "postconditions.py"), []byte(supportModule), 0o644))
	return payload
}

func newTestRunner(t *testing.T, source string, checkMode bool) *Runner {
	t.Helper()
	frag, err := fragment.NewPostconditionFragment(source)
	require.NoError(t, err)

	r := New(frag, checkMode)
	r.FS = execfs.NewLocalFilesystem(t.TempDir())
	r.PayloadPaths = []string{writeSupportPayload(t)}
	r.Stderr = &bytes.Buffer{}
	return r
}

func TestRunner_HoldingPostcondition(t *testing.T) {
	requirePython(t)

	r := newTestRunner(t, holdsFragment, true)
	res := r.RunCapture(context.Background())

	require.NoError(t, res.Error)
	assert.Equal(t, ExitCode(0), res.ExitCode)
	require.NotNil(t, res.Outcome)
	assert.False(t, res.Outcome.Failed)
}

func TestRunner_RaisingPostcondition(t *testing.T) {
	requirePython(t)

	r := newTestRunner(t, raisesFragment, false)
	res := r.RunCapture(context.Background())

	// A failure inside the fragment is reported through the document, not
	// the exit code.
	require.NoError(t, res.Error)
	assert.Equal(t, ExitCode(0), res.ExitCode)
	require.NotNil(t, res.Outcome)
	assert.True(t, res.Outcome.Failed)
	assert.Contains(t, res.Outcome.Msg, "boom")
	assert.NotEmpty(t, res.Outcome.Traceback)
}

func TestRunner_CleanupRemovesAssets(t *testing.T) {
	requirePython(t)

	dir := t.TempDir()
	r := newTestRunner(t, holdsFragment, false)
	r.FS = execfs.NewLocalFilesystem(dir)

	res := r.RunCapture(context.Background())
	require.NoError(t, res.Error)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunner_InhibitCleanupKeepsAssets(t *testing.T) {
	requirePython(t)

	dir := t.TempDir()
	r := newTestRunner(t, holdsFragment, false)
	r.FS = execfs.NewLocalFilesystem(dir)
	r.InhibitCleanup = true

	res := r.RunCapture(context.Background())
	require.NoError(t, res.Error)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "pysling_run"))
}

func TestRunner_SharedDirFilesystem(t *testing.T) {
	requirePython(t)

	dir := t.TempDir()
	r := newTestRunner(t, holdsFragment, false)
	r.FS = execfs.NewSharedDirFilesystem(dir)

	// Directory payloads only work in the same namespace; ship the support
	// module as a zip so the shared directory can copy it byte-for-byte.
	r.PayloadPaths = []string{writeSupportZip(t)}

	res := r.RunCapture(context.Background())
	require.NoError(t, res.Error)
	require.NotNil(t, res.Outcome)
	assert.False(t, res.Outcome.Failed)

	assert.NoDirExists(t, filepath.Join(dir, ".pysling_tmp"))
}

func TestRunner_SubprocessLaunchFailure(t *testing.T) {
	r := newTestRunner(t, holdsFragment, false)
	r.Invoker = &PythonInvoker{Python: "/nonexistent/python3"}

	res := r.Run(context.Background())
	require.Error(t, res.Error)
	assert.False(t, res.ExitCode.IsSuccess())
	assert.Nil(t, res.Outcome)
}

func TestRunner_RunTwiceFails(t *testing.T) {
	r := newTestRunner(t, holdsFragment, false)
	r.Invoker = &PythonInvoker{Python: "/nonexistent/python3"}

	_ = r.Run(context.Background())
	res := r.Run(context.Background())
	assert.ErrorIs(t, res.Error, ErrAlreadyRun)
}

func TestRunner_ComposeProgramMemoizesPayloadCopies(t *testing.T) {
	fs := &countingFilesystem{Filesystem: execfs.NewLocalFilesystem(t.TempDir())}

	frag, err := fragment.NewPostconditionFragment(holdsFragment)
	require.NoError(t, err)

	r := New(frag, false)
	r.FS = fs
	r.PayloadPaths = []string{"/payload/a.zip", "/payload/b.zip"}

	first, err := r.ComposeProgram()
	require.NoError(t, err)
	second, err := r.ComposeProgram()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, fs.copies, "payloads must be copied once, not per composition")
	assert.Contains(t, first, "sys.path.insert(0, '''/payload/a.zip''')")
}

// countingFilesystem counts CopyFile calls.
type countingFilesystem struct {
	execfs.Filesystem
	copies int
}

func (c *countingFilesystem) CopyFile(fromPath string) (string, error) {
	c.copies++
	return c.Filesystem.CopyFile(fromPath)
}

func TestOutcome_UnmarshalExtras(t *testing.T) {
	var o Outcome
	err := o.UnmarshalJSON([]byte(`{"failed": true, "msg": "m", "traceback": "tb", "changed": true, "rc": 3}`))
	require.NoError(t, err)

	assert.True(t, o.Failed)
	assert.Equal(t, "m", o.Msg)
	assert.Equal(t, "tb", o.Traceback)
	assert.Equal(t, map[string]any{"changed": true, "rc": float64(3)}, o.Extra)
}

func TestPythonInvoker_Argv(t *testing.T) {
	assert.Equal(t, []string{"python3", "/tmp/s.py"}, (&PythonInvoker{}).Argv("/tmp/s.py"))
	assert.Equal(t, []string{"python3.12", "/tmp/s.py"}, (&PythonInvoker{Python: "python3.12"}).Argv("/tmp/s.py"))
}

func TestArgvPrefixInvoker_Argv(t *testing.T) {
	inv := &ArgvPrefixInvoker{Prefix: []string{"docker", "exec", "cid", "python3"}}
	assert.Equal(t, []string{"docker", "exec", "cid", "python3", "/work/s.py"}, inv.Argv("/work/s.py"))
}
