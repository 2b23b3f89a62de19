//go:build !unix && !windows

package volumes

// Roots falls back to the filesystem root.
func Roots() ([]string, error) {
	return []string{"/"}, nil
}
