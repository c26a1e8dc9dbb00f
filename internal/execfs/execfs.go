// SPDX-License-Identifier: MPL-2.0

// Package execfs places files into whatever filesystem namespace the
// eventually-spawned process will see.
//
// Three backends cover the supported execution topologies: LocalFilesystem
// for a process sharing the caller's namespace, SharedDirFilesystem for a
// sandbox reached through a shared directory, and MountedVolumeFilesystem
// for a separately-mounted volume (e.g. a container) that requires path
// translation.
package execfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"pysling/internal/issue"
)

// TmpDirPrefix is the name stem for the private directory created by
// SharedDirFilesystem.
const TmpDirPrefix = ".pysling_tmp"

// Filesystem is the uniform contract across all backends. Every path
// returned by CopyFile and MakeFile is expressed in the namespace of the
// process that will consume the file, which may differ from the caller's.
type Filesystem interface {
	// CopyFile makes an existing file, identified by a path in the
	// caller's namespace, available to the target process. Backends whose
	// target shares the caller's namespace may return fromPath unchanged.
	CopyFile(fromPath string) (string, error)

	// MakeFile writes data to a freshly claimed file named after stem and
	// returns the path the target process should use.
	MakeFile(stem string, data []byte) (string, error)

	// Cleanup releases every asset created by the two calls above. It is
	// idempotent and never fails on assets that no longer exist.
	Cleanup() error
}

// nameSequence yields an infinite, deterministic series of distinct file
// names resembling stem: "report.txt", "report_1.txt", "report_2.txt", ...
type nameSequence struct {
	root    string
	ext     string
	counter int
}

func newNameSequence(stem string) *nameSequence {
	ext := filepath.Ext(stem)
	// A leading-dot name like ".pysling_tmp" has no extension.
	if ext == filepath.Base(stem) {
		ext = ""
	}
	return &nameSequence{root: stem[:len(stem)-len(ext)], ext: ext}
}

func (s *nameSequence) next() string {
	if s.counter == 0 {
		s.counter++
		return s.root + s.ext
	}
	name := fmt.Sprintf("%s_%d%s", s.root, s.counter, s.ext)
	s.counter++
	return name
}

// claimFile walks the candidate-name sequence for stem, atomically claiming
// the first free slot with create-exclusive semantics. A name collision
// moves on to the next candidate; any other error is fatal.
func claimFile(stem string, data []byte) (string, error) {
	seq := newNameSequence(stem)
	for {
		path := seq.next()
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", issue.WrapWithContext(err, "create file", path)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", issue.WrapWithContext(err, "write file", path)
		}
		if err := f.Close(); err != nil {
			return "", issue.WrapWithContext(err, "write file", path)
		}
		return path, nil
	}
}

// claimDir is claimFile's directory counterpart.
func claimDir(stem string) (string, error) {
	seq := newNameSequence(stem)
	for {
		path := seq.next()
		err := os.Mkdir(path, 0o755)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", issue.WrapWithContext(err, "create directory", path)
		}
		return path, nil
	}
}
