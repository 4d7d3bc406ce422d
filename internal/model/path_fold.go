//go:build windows || darwin

package model

import "strings"

// Windows and macOS default to case-insensitive filesystems.
func samePath(a, b string) bool {
	return strings.EqualFold(a, b)
}
