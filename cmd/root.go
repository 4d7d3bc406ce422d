package cmd

import (
	"fmt"
	"os"
	"sigbridge/internal/config"
	"sigbridge/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "sigbridge",
	Short:         "Mirror a charting tool's signal file into a trading terminal's alerts file",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		logger.Init(debug)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func daemonURL(path string) (string, error) {
	if cfg.Daemon.Port == 0 {
		return "", fmt.Errorf("status server is disabled (daemon.port is 0)")
	}

	return fmt.Sprintf("http://127.0.0.1:%d%s", cfg.Daemon.Port, path), nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml, then ~/.sigbridge/config.yaml)")
}
