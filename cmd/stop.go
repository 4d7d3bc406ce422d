package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := daemonURL("/stop")
		if err != nil {
			return err
		}

		resp, err := http.Post(url, "application/json", nil)
		if err != nil {
			return fmt.Errorf("bridge not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		fmt.Println("stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
