// SPDX-License-Identifier: MPL-2.0

package execfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"pysling/internal/issue"
)

// LocalFilesystem is the simplest backend: the target process shares the
// caller's namespace, so CopyFile is the identity function and MakeFile
// claims unique names under a base directory.
type LocalFilesystem struct {
	baseDir string
	created []string
}

var _ Filesystem = (*LocalFilesystem)(nil)

// NewLocalFilesystem creates a LocalFilesystem rooted at baseDir, or the
// current directory when baseDir is empty.
func NewLocalFilesystem(baseDir string) *LocalFilesystem {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalFilesystem{baseDir: baseDir}
}

// CopyFile returns fromPath unchanged; the forked process can already reach
// it under the same path.
func (l *LocalFilesystem) CopyFile(fromPath string) (string, error) {
	return fromPath, nil
}

// MakeFile claims a unique name derived from stem under the base directory
// and remembers it for cleanup.
func (l *LocalFilesystem) MakeFile(stem string, data []byte) (string, error) {
	path, err := claimFile(filepath.Join(l.baseDir, stem), data)
	if err != nil {
		return "", err
	}
	l.created = append(l.created, path)
	return path, nil
}

// Cleanup unlinks every created file in creation order. Files that have
// already vanished are not an error, and a second call is a no-op.
func (l *LocalFilesystem) Cleanup() error {
	var firstErr error
	for _, path := range l.created {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) && firstErr == nil {
			firstErr = issue.WrapWithContext(err, "remove file", path)
		}
	}
	l.created = nil
	return firstErr
}
