// SPDX-License-Identifier: MPL-2.0

package execfs

import (
	"path/filepath"
	"strings"

	"pysling/internal/issue"
)

// MountedVolumeFilesystem targets a process whose filesystem root is a
// volume mounted at mountPoint in the caller's namespace (a container or
// snap). It composes a SharedDirFilesystem rooted inside the mount and
// translates every returned path into the target's namespace by stripping
// the mount-point prefix.
type MountedVolumeFilesystem struct {
	mountPoint string
	inner      *SharedDirFilesystem
}

var _ Filesystem = (*MountedVolumeFilesystem)(nil)

// NewMountedVolumeFilesystem creates a MountedVolumeFilesystem. Trailing
// slashes on mountPoint are stripped, since path translation relies on
// exact prefix matching. relPath locates the shared directory's base under
// the mount point.
func NewMountedVolumeFilesystem(mountPoint, relPath string) *MountedVolumeFilesystem {
	for strings.HasSuffix(mountPoint, "/") {
		mountPoint = strings.TrimSuffix(mountPoint, "/")
	}
	return &MountedVolumeFilesystem{
		mountPoint: mountPoint,
		inner:      NewSharedDirFilesystem(filepath.Join(mountPoint, relPath)),
	}
}

// TranslateInside converts a path expressed in the caller's namespace into
// the target process's namespace. Paths outside the mount point indicate a
// misconfigured filesystem and are an error.
func (m *MountedVolumeFilesystem) TranslateInside(pathOutside string) (string, error) {
	if !strings.HasPrefix(pathOutside, m.mountPoint) {
		return "", issue.NewErrorContext().
			WithOperation("translate path").
			WithResource(pathOutside).
			WithSuggestion("Only paths under " + m.mountPoint + " are visible to the target process").
			Build()
	}
	return strings.TrimPrefix(pathOutside, m.mountPoint), nil
}

// CopyFile copies through the inner shared directory and translates the
// resulting path.
func (m *MountedVolumeFilesystem) CopyFile(fromPath string) (string, error) {
	path, err := m.inner.CopyFile(fromPath)
	if err != nil {
		return "", err
	}
	return m.TranslateInside(path)
}

// MakeFile writes through the inner shared directory and translates the
// resulting path.
func (m *MountedVolumeFilesystem) MakeFile(stem string, data []byte) (string, error) {
	path, err := m.inner.MakeFile(stem, data)
	if err != nil {
		return "", err
	}
	return m.TranslateInside(path)
}

// Cleanup delegates to the inner shared directory.
func (m *MountedVolumeFilesystem) Cleanup() error {
	return m.inner.Cleanup()
}
