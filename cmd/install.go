package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sigbridge/internal/autostart"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Start the bridge automatically at login",
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		watchArgs := []string{"watch"}
		if cfgFile != "" {
			abs, err := filepath.Abs(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to resolve config path: %w", err)
			}
			watchArgs = append(watchArgs, "--config", abs)
		}

		as := autostart.New()
		if installed, err := as.IsInstalled(); err == nil && installed {
			fmt.Println("sigbridge is already registered, updating the registration")
		}

		if err := as.Install(execPath, watchArgs); err != nil {
			return err
		}

		fmt.Println("sigbridge registered for autostart")
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the autostart registration",
	RunE: func(cmd *cobra.Command, args []string) error {
		as := autostart.New()
		if installed, err := as.IsInstalled(); err == nil && !installed {
			fmt.Println("sigbridge is not registered for autostart")
			return nil
		}

		if err := as.Uninstall(); err != nil {
			return err
		}

		fmt.Println("sigbridge autostart removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd, uninstallCmd)
}
