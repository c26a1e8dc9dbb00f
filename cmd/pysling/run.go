// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pysling/internal/config"
	"pysling/internal/execfs"
	"pysling/internal/issue"
	"pysling/internal/runner"
	"pysling/pkg/fragment"
)

var (
	// checkMode simulates instead of applying changes; passed through to
	// the fragment unmodified.
	checkMode bool
	// keepFiles inhibits filesystem cleanup after the run
	keepFiles bool
	// fsBackend selects the execution-filesystem backend
	fsBackend string
	// baseDir overrides where file assets are created
	baseDir string
	// mountPoint is the volume backend's mount point
	mountPoint string
	// volumePath locates the shared directory under the mount point
	volumePath string
	// payloads are archive paths for the target's module search path
	payloads []string
	// interpreter overrides the Python executable
	interpreter string

	// runCmd executes a fragment out-of-process.
	runCmd = &cobra.Command{
		Use:   "run <fragment-file>",
		Short: "Run a Python fragment and relay its outcome",
		Long: `Run a Python fragment out-of-process.

The fragment must declare a PostconditionBase subclass. Its outcome is
printed to standard output as a single JSON document, and this process
exits with the subprocess's own exit code. Use '-' to read the fragment
from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFragment(cmd, args[0])
		},
	}
)

func init() {
	addFragmentFlags(runCmd)
	runCmd.Flags().BoolVar(&keepFiles, "keep-files", false, "keep created files after the run")
}

// addFragmentFlags registers the flags shared by run and compose.
func addFragmentFlags(c *cobra.Command) {
	c.Flags().BoolVar(&checkMode, "check", false, "pass check mode through to the fragment")
	c.Flags().StringVar(&fsBackend, "fs", "", "execution filesystem backend (local, shared, volume)")
	c.Flags().StringVar(&baseDir, "base-dir", "", "base directory for created files")
	c.Flags().StringVar(&mountPoint, "mount-point", "", "mount point for the volume backend")
	c.Flags().StringVar(&volumePath, "volume-path", "", "directory under the mount point for the volume backend")
	c.Flags().StringArrayVar(&payloads, "payload", nil, "payload archive for the target's module search path (repeatable)")
	c.Flags().StringVar(&interpreter, "interpreter", "", "Python executable (default python3)")
}

func runFragment(cmd *cobra.Command, path string) error {
	r, err := buildRunner(cmd, path)
	if err != nil {
		return formatError(err)
	}

	res := r.Run(cmd.Context())
	if res.Error != nil {
		return formatError(res.Error)
	}
	if !res.ExitCode.IsSuccess() {
		return &ExitError{Code: res.ExitCode}
	}
	return nil
}

// buildRunner resolves config, validates the fragment, and assembles a
// Runner bound to the selected filesystem backend.
func buildRunner(cmd *cobra.Command, path string) (*runner.Runner, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	source, err := readFragmentSource(path)
	if err != nil {
		return nil, err
	}

	frag, err := fragment.NewPostconditionFragment(source)
	if err != nil {
		return nil, err
	}

	fs, err := buildFilesystem(cfg)
	if err != nil {
		return nil, err
	}

	r := runner.New(frag, checkMode)
	r.FS = fs
	r.PayloadPaths = cfg.Payloads
	r.InhibitCleanup = keepFiles || cfg.KeepFiles
	r.Invoker = &runner.PythonInvoker{Python: cfg.Interpreter}
	return r, nil
}

// loadConfig loads the config file and applies flag overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("fs") {
		cfg.FS = config.Backend(fsBackend)
	}
	if cmd.Flags().Changed("base-dir") {
		cfg.BaseDir = baseDir
	}
	if cmd.Flags().Changed("mount-point") {
		cfg.MountPoint = mountPoint
	}
	if cmd.Flags().Changed("volume-path") {
		cfg.VolumePath = volumePath
	}
	if cmd.Flags().Changed("interpreter") {
		cfg.Interpreter = interpreter
	}
	if len(payloads) > 0 {
		cfg.Payloads = payloads
	}
	return cfg, nil
}

// buildFilesystem maps the configured backend onto an execfs implementation.
func buildFilesystem(cfg *config.Config) (execfs.Filesystem, error) {
	switch cfg.FS {
	case config.BackendLocal, "":
		return execfs.NewLocalFilesystem(cfg.BaseDir), nil
	case config.BackendShared:
		return execfs.NewSharedDirFilesystem(cfg.BaseDir), nil
	case config.BackendVolume:
		if cfg.MountPoint == "" {
			return nil, issue.NewErrorContext().
				WithOperation("select filesystem backend").
				WithSuggestion("The volume backend requires --mount-point").
				Build()
		}
		return execfs.NewMountedVolumeFilesystem(cfg.MountPoint, cfg.VolumePath), nil
	default:
		return nil, fmt.Errorf("unknown filesystem backend %q", cfg.FS)
	}
}

// readFragmentSource reads the fragment from a file, or stdin for "-".
func readFragmentSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", issue.WrapWithOperation(err, "read fragment from stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", issue.WrapWithContext(err, "read fragment", path)
	}
	return string(data), nil
}

// formatError expands actionable errors with their suggestions when
// verbose output is requested.
func formatError(err error) error {
	var actionable *issue.ActionableError
	if verbose && errors.As(err, &actionable) {
		return errors.New(actionable.Verbose())
	}
	return err
}
