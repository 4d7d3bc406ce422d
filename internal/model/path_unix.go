//go:build !windows && !darwin

package model

func samePath(a, b string) bool {
	return a == b
}
