package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
)

const serviceTemplate = `[Unit]
Description=sigbridge signal file bridge

[Service]
ExecStart={{.CommandLine}}
Restart=no

[Install]
WantedBy=default.target
`

const unitName = name + ".service"

type LinuxAutoStarter struct {
	// Dir overrides ~/.config/systemd/user. Commands are skipped when set.
	Dir string
}

func (l *LinuxAutoStarter) servicePath() (string, error) {
	dir := l.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "systemd", "user")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, unitName), nil
}

func (l *LinuxAutoStarter) Install(execPath string, args []string) error {
	path, err := l.servicePath()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create service file: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	tmpl := template.Must(template.New("service").Parse(serviceTemplate))
	if err := tmpl.Execute(f, map[string]string{"CommandLine": CommandLine(execPath, args)}); err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}

	return l.systemctl(true,
		[]string{"daemon-reload"},
		[]string{"enable", unitName},
		[]string{"start", unitName})
}

func (l *LinuxAutoStarter) Uninstall() error {
	_ = l.systemctl(false,
		[]string{"stop", unitName},
		[]string{"disable", unitName})

	path, err := l.servicePath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove service file: %w", err)
	}

	return nil
}

func (l *LinuxAutoStarter) IsInstalled() (bool, error) {
	path, err := l.servicePath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	return err == nil, nil
}

func (l *LinuxAutoStarter) systemctl(strict bool, cmds ...[]string) error {
	if l.Dir != "" {
		return nil
	}

	for _, args := range cmds {
		cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
		if out, err := cmd.CombinedOutput(); err != nil && strict {
			return fmt.Errorf("failed to run systemctl %v: %w\n%s", args, err, out)
		}
	}

	return nil
}
