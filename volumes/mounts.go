// Package volumes lists the filesystem roots searched when no input path is given.
package volumes

import (
	"bufio"
	"io"
	"path"
	"sort"
	"strings"
)

// Mount is one entry of a mount table.
type Mount struct {
	Device string
	Dir    string
	FSType string
}

// ParseMounts reads a /proc/self/mounts style table. Octal escapes in the
// mount point (\040 for space) are decoded.
func ParseMounts(r io.Reader) ([]Mount, error) {
	var mounts []Mount
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mounts = append(mounts, Mount{
			Device: fields[0],
			Dir:    unescapeMountField(fields[1]),
			FSType: fields[2],
		})
	}
	return mounts, sc.Err()
}

func unescapeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			b.WriteByte((s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

// SelectRoots keeps mount points of block devices that usable accepts and
// drops any mount nested under another kept one, since a walk of the parent
// already reaches it. The result is sorted.
func SelectRoots(mounts []Mount, usable func(dir string) bool) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, m := range mounts {
		if !strings.HasPrefix(m.Device, "/dev/") || strings.HasPrefix(m.Device, "/dev/loop") {
			continue
		}
		dir := path.Clean(m.Dir)
		if seen[dir] || !usable(dir) {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var roots []string
	for _, dir := range dirs {
		nested := false
		for _, r := range roots {
			if isUnder(dir, r) {
				nested = true
				break
			}
		}
		if !nested {
			roots = append(roots, dir)
		}
	}
	return roots
}

// DriveRoots turns a logical drive bitmask (bit 0 = A:) into drive roots.
func DriveRoots(mask uint32) []string {
	var roots []string
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) != 0 {
			roots = append(roots, string(rune('A'+i))+`:\`)
		}
	}
	return roots
}

func isUnder(dir, parent string) bool {
	if parent == "/" {
		return true
	}
	return strings.HasPrefix(dir, parent+"/")
}
