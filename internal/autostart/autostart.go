package autostart

import (
	"runtime"
	"strings"
)

const name = "sigbridge"

// AutoStarter registers the bridge to start when the user logs in.
type AutoStarter interface {
	Install(execPath string, args []string) error
	Uninstall() error
	IsInstalled() (bool, error)
}

func New() AutoStarter {
	switch runtime.GOOS {
	case "windows":
		return &WindowsAutoStarter{}
	case "linux":
		return &LinuxAutoStarter{}
	default:
		return &UnsupportedAutoStarter{}
	}
}

// CommandLine quotes execPath and any argument containing spaces.
func CommandLine(execPath string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, p := range append([]string{execPath}, args...) {
		if strings.ContainsAny(p, " \t") {
			p = `"` + p + `"`
		}
		parts = append(parts, p)
	}

	return strings.Join(parts, " ")
}

type UnsupportedAutoStarter struct{}

func (u *UnsupportedAutoStarter) Install(_ string, _ []string) error {
	return nil
}

func (u *UnsupportedAutoStarter) Uninstall() error {
	return nil
}

func (u *UnsupportedAutoStarter) IsInstalled() (bool, error) {
	return false, nil
}
