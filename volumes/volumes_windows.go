//go:build windows

package volumes

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Roots returns every logical drive as "X:\".
func Roots() ([]string, error) {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil, fmt.Errorf("GetLogicalDrives: %w", err)
	}
	return DriveRoots(mask), nil
}
