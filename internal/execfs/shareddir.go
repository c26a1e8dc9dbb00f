// SPDX-License-Identifier: MPL-2.0

package execfs

import (
	"os"
	"path/filepath"

	"pysling/internal/issue"
)

// SharedDirFilesystem stores every asset inside one lazily created private
// directory, which makes cleanup a single tree removal instead of
// per-file bookkeeping.
type SharedDirFilesystem struct {
	baseDir string
	tmpDir  string
	hasDir  bool
}

var _ Filesystem = (*SharedDirFilesystem)(nil)

// NewSharedDirFilesystem creates a SharedDirFilesystem whose private
// directory will live under baseDir.
func NewSharedDirFilesystem(baseDir string) *SharedDirFilesystem {
	return &SharedDirFilesystem{baseDir: baseDir}
}

// dir returns the private directory, creating it on first use with the same
// collision-probing discipline as file creation.
func (s *SharedDirFilesystem) dir() (string, error) {
	if s.hasDir {
		return s.tmpDir, nil
	}
	path, err := claimDir(filepath.Join(s.baseDir, TmpDirPrefix))
	if err != nil {
		return "", err
	}
	s.tmpDir = path
	s.hasDir = true
	return path, nil
}

// CopyFile slurps the source file and re-creates it inside the private
// directory under its base name.
func (s *SharedDirFilesystem) CopyFile(fromPath string) (string, error) {
	data, err := os.ReadFile(fromPath)
	if err != nil {
		return "", issue.WrapWithContext(err, "read file", fromPath)
	}
	return s.MakeFile(filepath.Base(fromPath), data)
}

// MakeFile claims a unique name derived from stem inside the private
// directory. Individual files are not tracked; Cleanup removes the whole
// directory.
func (s *SharedDirFilesystem) MakeFile(stem string, data []byte) (string, error) {
	dir, err := s.dir()
	if err != nil {
		return "", err
	}
	return claimFile(filepath.Join(dir, stem), data)
}

// Cleanup removes the private directory tree, if and only if it was
// actually created. Safe to call more than once.
func (s *SharedDirFilesystem) Cleanup() error {
	if !s.hasDir {
		return nil
	}
	s.hasDir = false
	if err := os.RemoveAll(s.tmpDir); err != nil {
		return issue.WrapWithContext(err, "remove directory", s.tmpDir)
	}
	return nil
}
