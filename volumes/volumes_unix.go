//go:build unix

package volumes

import (
	"os"

	"golang.org/x/sys/unix"
)

const mountTable = "/proc/self/mounts"

// Roots returns the readable mount points of real block devices, or "/" when
// the mount table is unavailable or yields nothing.
func Roots() ([]string, error) {
	f, err := os.Open(mountTable)
	if err != nil {
		return []string{"/"}, nil
	}
	defer f.Close()

	mounts, err := ParseMounts(f)
	if err != nil {
		return nil, err
	}
	roots := SelectRoots(mounts, usable)
	if len(roots) == 0 {
		return []string{"/"}, nil
	}
	return roots, nil
}

// usable reports whether dir is a listable filesystem with storage behind it.
func usable(dir string) bool {
	if unix.Access(dir, unix.R_OK|unix.X_OK) != nil {
		return false
	}
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return false
	}
	return st.Blocks > 0
}
